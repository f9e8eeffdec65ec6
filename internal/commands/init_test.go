package commands

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossbind/crossbind/internal/config"
	"github.com/crossbind/crossbind/internal/model"
	"github.com/crossbind/crossbind/internal/udl"
)

// fakeFileSystem records writes in memory.
type fakeFileSystem struct {
	dirs  []string
	files map[string][]byte
}

func newFakeFileSystem() *fakeFileSystem {
	return &fakeFileSystem{files: make(map[string][]byte)}
}

func (fs *fakeFileSystem) Stat(name string) (os.FileInfo, error) {
	return nil, os.ErrNotExist
}

func (fs *fakeFileSystem) MkdirAll(path string, perm os.FileMode) error {
	fs.dirs = append(fs.dirs, path)
	return nil
}

func (fs *fakeFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	fs.files[name] = data
	return nil
}

func TestInitCommand_Scaffolding(t *testing.T) {
	// Test plan:
	// - Run with test options creates the project directory
	// - The project file carries name, languages and header generation
	// - The starter schema parses and builds

	fs := newFakeFileSystem()
	cmd := &InitCommand{
		filesystem: fs,
		testOptions: &InitOptions{
			ProjectName: "geo",
			Languages:   []string{"python"},
		},
	}

	require.NoError(t, cmd.Run(context.Background()))

	assert.Contains(t, fs.dirs, "geo")

	configData, ok := fs.files[filepath.Join("geo", "crossbind.json")]
	require.True(t, ok)
	var cfg config.Config
	require.NoError(t, json.Unmarshal(configData, &cfg))
	assert.Equal(t, "geo", cfg.Name)
	assert.Equal(t, "0.1.0", cfg.Version)
	assert.Equal(t, []string{"python"}, cfg.Languages)
	assert.Equal(t, "./component.udl", cfg.Schema)
	assert.True(t, cfg.Generate.Header)

	schemaData, ok := fs.files[filepath.Join("geo", "component.udl")]
	require.True(t, ok)
	doc, err := udl.Parse(string(schemaData))
	require.NoError(t, err)
	ci, err := model.BuildComponentInterface(doc)
	require.NoError(t, err)
	assert.Equal(t, "geo", ci.Namespace)
	require.Len(t, ci.Functions, 1)
	assert.Equal(t, "hello", ci.Functions[0].Name)
}
