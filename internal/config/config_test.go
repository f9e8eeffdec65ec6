package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromPath_JSON(t *testing.T) {
	// Test plan:
	// - Parse a JSON project file
	// - Missing fields pick up defaults

	dir := t.TempDir()
	path := filepath.Join(dir, "crossbind.json")
	content := `{
  "name": "geo",
  "version": "0.2.0",
  "languages": ["python"]
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfigFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "geo", cfg.Name)
	assert.Equal(t, "0.2.0", cfg.Version)
	assert.Equal(t, []string{"python"}, cfg.Languages)
	assert.Equal(t, "./component.udl", cfg.Schema)
	assert.Equal(t, "./bindings", cfg.Generate.OutDir)
	assert.NotEmpty(t, cfg.Watch.Include)
	assert.NotEmpty(t, cfg.Watch.Exclude)
}

func TestLoadConfigFromPath_YAML(t *testing.T) {
	// Test plan:
	// - .yaml files parse as YAML
	// - Nested generate settings survive

	dir := t.TempDir()
	path := filepath.Join(dir, "crossbind.yaml")
	content := `name: geo
schema: ./schema/geo.udl
languages:
  - typescript
generate:
  outDir: ./out
  header: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfigFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "geo", cfg.Name)
	assert.Equal(t, "./schema/geo.udl", cfg.Schema)
	assert.Equal(t, []string{"typescript"}, cfg.Languages)
	assert.Equal(t, "./out", cfg.Generate.OutDir)
	assert.True(t, cfg.Generate.Header)
}

func TestLoadConfigFromPath_Errors(t *testing.T) {
	// Test plan:
	// - Missing files and malformed content fail with context

	_, err := LoadConfigFromPath(filepath.Join(t.TempDir(), "crossbind.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "crossbind.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = LoadConfigFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfigFromDir_ParentSearch(t *testing.T) {
	// Test plan:
	// - The project file is found from a nested directory
	// - The project root is the directory containing the file
	// - An absent file reports the searched directory

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	content := `{"name": "geo"}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "crossbind.json"), []byte(content), 0644))

	cfg, foundRoot, err := loadConfigFromDir(nested)
	require.NoError(t, err)
	assert.Equal(t, "geo", cfg.Name)
	assert.Equal(t, root, foundRoot)

	_, _, err = loadConfigFromDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no crossbind.json found")
}
