package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  mode: release\nkeying:\n  key_color: \"#00EE00\"\ncomposition:\n  export_format: webp\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "#00EE00", cfg.Keying.KeyColor)
	assert.Equal(t, 60.0, cfg.Keying.Tolerance)
	assert.Equal(t, "webp", cfg.Composition.ExportFormat)
	assert.Equal(t, 0.8, cfg.Composition.InitialScale)
	assert.Equal(t, 30*time.Second, cfg.Generator.QueueTimeout)
	assert.Equal(t, "meu-heroi-multiverso-composicao.png", cfg.Composition.ExportFilename)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "#00FF00", cfg.Keying.KeyColor)
	assert.Equal(t, 1024, cfg.Composition.SurfaceWidth)
	assert.Equal(t, 3, cfg.Generator.MaxConcurrent)
}
