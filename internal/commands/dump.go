package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/crossbind/crossbind/internal/bindgen"
	"github.com/crossbind/crossbind/internal/config"
)

// Dump writes the versioned JSON snapshot of the component interface and
// its derived FFI signatures to stdout.
func (c *Controller) Dump(ctx context.Context) error {
	cfg, projectRoot, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load project config: %w", err)
	}

	pipeline := bindgen.NewPipeline(cfg, projectRoot, log.Logger)
	schemaPath := filepath.Join(projectRoot, cfg.Schema)

	if err := pipeline.LoadInterface(schemaPath); err != nil {
		return err
	}

	artifacts, err := pipeline.GetArtifacts()
	if err != nil {
		return err
	}

	data, err := bindgen.NewDump(artifacts).Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal dump: %w", err)
	}

	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
