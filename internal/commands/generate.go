package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/crossbind/crossbind/internal/bindgen"
	"github.com/crossbind/crossbind/internal/config"
)

// Generate runs the full pipeline once: parse the schema, validate it, and
// write bindings for every configured language.
func (c *Controller) Generate(ctx context.Context) error {
	cfg, projectRoot, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load project config: %w", err)
	}

	pipeline := bindgen.NewPipeline(cfg, projectRoot, log.Logger)
	schemaPath := filepath.Join(projectRoot, cfg.Schema)

	if err := pipeline.LoadInterface(schemaPath); err != nil {
		return err
	}
	if err := pipeline.Generate(); err != nil {
		return err
	}

	artifacts, err := pipeline.GetArtifacts()
	if err != nil {
		return err
	}
	for lang, path := range artifacts.Outputs {
		fmt.Printf("✅ %s bindings: %s\n", lang, path)
	}
	return nil
}
