package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/crossbind/crossbind/internal/bindgen"
	"github.com/crossbind/crossbind/internal/config"
)

// Validate parses the schema and builds the component interface without
// writing any output. A zero exit code means the schema is well-formed and
// every derived FFI signature is well-typed.
func (c *Controller) Validate(ctx context.Context) error {
	cfg, projectRoot, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load project config: %w", err)
	}

	pipeline := bindgen.NewPipeline(cfg, projectRoot, log.Logger)
	schemaPath := filepath.Join(projectRoot, cfg.Schema)

	if err := pipeline.LoadInterface(schemaPath); err != nil {
		return err
	}

	fmt.Printf("✅ %s is valid\n", schemaPath)
	return nil
}
