package bindgen

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossbind/crossbind/internal/config"
)

const testSchema = `
namespace geo {
    f64 distance(Point a, Point b);
};

dictionary Point {
    f64 x;
    f64 y;
};`

func testPipeline(t *testing.T, cfg *config.Config) (*Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	schemaPath := filepath.Join(root, "component.udl")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testSchema), 0644))

	p := NewPipeline(cfg, root, zerolog.Nop())
	require.NoError(t, p.LoadInterface(schemaPath))
	return p, root
}

func TestPipeline_EndToEnd(t *testing.T) {
	// Test plan:
	// - Load, generate and collect artifacts for a small project
	// - One output file per configured language, named by namespace
	// - The header is added when configured

	cfg := &config.Config{
		Name:      "geo",
		Version:   "1.0.0",
		Languages: []string{"python", "typescript"},
		Generate:  config.GenerateConfig{OutDir: "out", Header: true},
	}
	p, root := testPipeline(t, cfg)
	require.NoError(t, p.Generate())

	artifacts, err := p.GetArtifacts()
	require.NoError(t, err)

	assert.Equal(t, "geo", artifacts.Interface.Namespace)
	require.Len(t, artifacts.Outputs, 3)

	for lang, want := range map[string]string{
		"python":     "geo.py",
		"typescript": "geo.ts",
		"c-header":   "geo.h",
	} {
		path, ok := artifacts.Outputs[lang]
		require.True(t, ok, lang)
		assert.Equal(t, filepath.Join(root, "out", want), path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}

	assert.Equal(t, "1.0.0", artifacts.Info.Version)
	assert.Len(t, artifacts.Info.SchemaChecksum, 64)
	assert.False(t, artifacts.Info.Timestamp.IsZero())
}

func TestPipeline_LoadErrors(t *testing.T) {
	// Test plan:
	// - Missing and empty schema files fail with context
	// - Invalid schemas surface the underlying error
	// - Generate before LoadInterface fails

	cfg := &config.Config{Name: "geo", Languages: []string{"python"}}
	root := t.TempDir()
	p := NewPipeline(cfg, root, zerolog.Nop())

	err := p.LoadInterface(filepath.Join(root, "missing.udl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")

	empty := filepath.Join(root, "empty.udl")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	err = p.LoadInterface(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema file is empty")

	bad := filepath.Join(root, "bad.udl")
	require.NoError(t, os.WriteFile(bad, []byte("nonsense"), 0644))
	err = p.LoadInterface(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse schema")

	err = NewPipeline(cfg, root, zerolog.Nop()).Generate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LoadInterface must be called before Generate")
}

func TestDump(t *testing.T) {
	// Test plan:
	// - A dump carries the format version, a fresh build ID and the checksum
	// - Marshal produces JSON that round-trips the top-level fields

	cfg := &config.Config{
		Name:      "geo",
		Version:   "1.0.0",
		Languages: []string{"python"},
		Generate:  config.GenerateConfig{OutDir: "out"},
	}
	p, _ := testPipeline(t, cfg)
	require.NoError(t, p.Generate())
	artifacts, err := p.GetArtifacts()
	require.NoError(t, err)

	dump := NewDump(artifacts)
	assert.Equal(t, DumpFormatVersion, dump.FormatVersion)
	assert.NotEmpty(t, dump.BuildID)
	assert.Equal(t, artifacts.Info.SchemaChecksum, dump.SchemaChecksum)
	assert.NotEqual(t, dump.BuildID, NewDump(artifacts).BuildID)

	data, err := dump.Marshal()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(DumpFormatVersion), decoded["formatVersion"])
	assert.Contains(t, decoded, "interface")
	assert.Contains(t, decoded, "signatures")
}
