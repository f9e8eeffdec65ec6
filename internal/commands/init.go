package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/crossbind/crossbind/internal/config"
)

type InitOptions struct {
	ProjectName string
	Languages   []string
}

type FileSystem interface {
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(name string, data []byte, perm os.FileMode) error
}

type osFileSystem struct{}

func (fs *osFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (fs *osFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (fs *osFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

type InitCommand struct {
	filesystem FileSystem
	// For testing: if set, skip prompting
	testOptions *InitOptions
}

func NewInitCommand() *InitCommand {
	return &InitCommand{filesystem: &osFileSystem{}}
}

func (c *Controller) Init(ctx context.Context) error {
	cmd := NewInitCommand()
	return cmd.Run(ctx)
}

func (ic *InitCommand) Run(ctx context.Context) error {
	var options *InitOptions
	var err error

	// For testing: use provided options instead of prompting
	if ic.testOptions != nil {
		options = ic.testOptions
	} else {
		options, err = ic.promptInitOptions()
		if err != nil {
			return fmt.Errorf("failed to get init options: %w", err)
		}
	}

	if err := ic.scaffoldProject(options); err != nil {
		return err
	}

	fmt.Printf("✅ Successfully created project: %s\n", options.ProjectName)
	return nil
}

func (ic *InitCommand) promptInitOptions() (*InitOptions, error) {
	var projectName string
	var languages []string

	form := ic.createInitForm(&projectName, &languages)
	if err := form.Run(); err != nil {
		return nil, err
	}

	return &InitOptions{
		ProjectName: projectName,
		Languages:   languages,
	}, nil
}

func (ic *InitCommand) createInitForm(projectName *string, languages *[]string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("Name of your new crossbind project").
				Value(projectName).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("project name cannot be empty")
					}
					if _, err := ic.filesystem.Stat(s); err == nil {
						return fmt.Errorf("directory %s already exists", s)
					}
					return nil
				}),

			huh.NewMultiSelect[string]().
				Title("Target languages").
				Description("Bindings to generate from the schema").
				Options(
					huh.NewOption("Python", "python").Selected(true),
					huh.NewOption("TypeScript", "typescript").Selected(true),
				).
				Value(languages),
		),
	)
}

func (ic *InitCommand) scaffoldProject(options *InitOptions) error {
	if err := ic.filesystem.MkdirAll(options.ProjectName, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	cfg := config.Config{
		Name:      options.ProjectName,
		Version:   "0.1.0",
		Schema:    "./component.udl",
		Languages: options.Languages,
		Generate:  config.GenerateConfig{OutDir: "./bindings", Header: true},
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	configPath := filepath.Join(options.ProjectName, "crossbind.json")
	if err := ic.filesystem.WriteFile(configPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	schema := fmt.Sprintf("namespace %s {\n    string hello(string name);\n};\n", options.ProjectName)
	schemaPath := filepath.Join(options.ProjectName, "component.udl")
	if err := ic.filesystem.WriteFile(schemaPath, []byte(schema), 0644); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	return nil
}
