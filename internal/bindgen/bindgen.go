// Package bindgen drives the full pipeline: parse the schema, build the
// component interface, derive the FFI signatures, then run the configured
// binding generators.
package bindgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/crossbind/crossbind/internal/codegen"
	"github.com/crossbind/crossbind/internal/config"
	"github.com/crossbind/crossbind/internal/ffi"
	"github.com/crossbind/crossbind/internal/model"
	"github.com/crossbind/crossbind/internal/udl"
)

// Artifacts contains everything one pipeline run produced
type Artifacts struct {
	// Interface is the validated component interface
	Interface *model.ComponentInterface

	// Signatures is the derived FFI surface
	Signatures *ffi.SignatureSet

	// Outputs maps language name to the written binding file
	Outputs map[string]string

	// Info contains run metadata
	Info Info
}

// Info contains metadata about a pipeline run
type Info struct {
	// Timestamp when the run started
	Timestamp time.Time

	// Version from config
	Version string

	// SchemaChecksum is the sha256 of the schema source
	SchemaChecksum string
}

// Pipeline runs the schema-to-bindings pipeline for one project
type Pipeline struct {
	config      *config.Config
	projectRoot string
	logger      zerolog.Logger
	registry    *codegen.Registry

	// Run state
	iface    *model.ComponentInterface
	sigs     *ffi.SignatureSet
	outputs  map[string]string
	checksum string
	runStart time.Time
}

// NewPipeline creates a pipeline for the given project
func NewPipeline(cfg *config.Config, projectRoot string, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		config:      cfg,
		projectRoot: projectRoot,
		logger:      logger,
		registry:    codegen.DefaultRegistry,
	}
}

// LoadInterface parses and validates the schema, leaving the component
// interface and derived signatures available for generation.
func (p *Pipeline) LoadInterface(schemaPath string) error {
	p.runStart = time.Now()

	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file %s: %w", schemaPath, err)
	}
	if len(content) == 0 {
		return fmt.Errorf("schema file is empty: %s", schemaPath)
	}

	sum := sha256.Sum256(content)
	p.checksum = hex.EncodeToString(sum[:])

	p.logger.Debug().
		Str("path", schemaPath).
		Int("size", len(content)).
		Msg("read schema file")

	doc, err := udl.Parse(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse schema: %w", err)
	}

	iface, err := model.BuildComponentInterface(doc)
	if err != nil {
		return fmt.Errorf("failed to build component interface: %w", err)
	}
	p.iface = iface

	sigs, err := ffi.Derive(iface)
	if err != nil {
		return fmt.Errorf("failed to derive FFI signatures: %w", err)
	}
	p.sigs = sigs

	p.logger.Debug().
		Str("namespace", iface.Namespace).
		Int("enums", len(iface.Enums)).
		Int("records", len(iface.Records)).
		Int("objects", len(iface.Objects)).
		Int("functions", len(iface.Functions)).
		Int("ffi_symbols", len(sigs.Functions)).
		Msg("built component interface")

	return nil
}

// Generate runs every configured generator and writes its output under the
// configured output directory.
func (p *Pipeline) Generate() error {
	if p.iface == nil {
		return fmt.Errorf("LoadInterface must be called before Generate")
	}

	outDir := filepath.Join(p.projectRoot, p.config.Generate.OutDir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	languages := p.config.Languages
	if p.config.Generate.Header {
		languages = append(append([]string{}, languages...), "c-header")
	}

	p.outputs = make(map[string]string, len(languages))
	for _, lang := range languages {
		gen, err := p.registry.Get(lang, p.config.Name)
		if err != nil {
			return err
		}

		source, err := gen.Generate(p.iface, p.sigs)
		if err != nil {
			return fmt.Errorf("failed to generate %s bindings: %w", gen.Language(), err)
		}

		outPath := filepath.Join(outDir, p.iface.Namespace+gen.FileExtension())
		if err := os.WriteFile(outPath, source, 0644); err != nil {
			return fmt.Errorf("failed to write %s bindings: %w", gen.Language(), err)
		}

		p.outputs[gen.Language()] = outPath
		p.logger.Info().
			Str("language", gen.Language()).
			Str("path", outPath).
			Int("size", len(source)).
			Msg("generated bindings")
	}

	return nil
}

// GetArtifacts returns the run artifacts after a successful Generate
func (p *Pipeline) GetArtifacts() (*Artifacts, error) {
	if p.iface == nil {
		return nil, fmt.Errorf("no pipeline run has been performed")
	}

	return &Artifacts{
		Interface:  p.iface,
		Signatures: p.sigs,
		Outputs:    p.outputs,
		Info: Info{
			Timestamp:      p.runStart,
			Version:        p.config.Version,
			SchemaChecksum: p.checksum,
		},
	}, nil
}
