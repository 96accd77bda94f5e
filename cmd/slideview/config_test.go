// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/jkudo/slideview/pkg/types"
)

func TestLoadConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("SLIDEVIEW_SOURCE_DIR", "decks")
	t.Setenv("SLIDEVIEW_EXTENSIONS", ".pptx,.odp")
	t.Setenv("SLIDEVIEW_CONVERTER_TIMEOUT", "90s")
	t.Setenv("SLIDEVIEW_INDEX_FORMAT", "json")
	t.Setenv("SLIDEVIEW_HISTORY_ENABLED", "false")

	v := viper.New()
	require.NoError(t, setupViper(v, ""))
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "decks", cfg.SourceDir)
	assert.Equal(t, []string{".pptx", ".odp"}, cfg.Extensions)
	assert.Equal(t, 90*time.Second, cfg.Converter.Timeout)
	assert.Equal(t, types.IndexJSON, cfg.Index.Format)
	assert.False(t, cfg.History.Enabled)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slideview.yaml")
	content := `
source_dir: talks
artifact_dir: site/pdfs
sweep_strays: false
converter:
  backend: container
  image: example/libreoffice:7
index:
  path: site/index.html
  sources_path: site/slides.json
watch:
  debounce: 500ms
  interval: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	require.NoError(t, setupViper(v, path))
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "talks", cfg.SourceDir)
	assert.Equal(t, "site/pdfs", cfg.ArtifactDir)
	assert.False(t, cfg.SweepStrays)
	assert.Equal(t, types.BackendContainer, cfg.Converter.Backend)
	assert.Equal(t, "example/libreoffice:7", cfg.Converter.Image)
	assert.Equal(t, "site/slides.json", cfg.Index.SourcesPath)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 10*time.Minute, cfg.Watch.Interval)
	// Unset keys keep their defaults.
	assert.Equal(t, "docs/pdf-list.json", cfg.ManifestPath)
	assert.Equal(t, 5*time.Minute, cfg.Converter.Timeout)
}

func TestSetupViper_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	err := setupViper(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("converter.backend", "unoconv")
	v.Set("extensions", []string{".pdf"})

	_, err := loadConfig(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "converter.backend")
	assert.Contains(t, err.Error(), "collides with the artifact extension")
}

func TestRenderSettings(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	settings := v.AllSettings()

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderSettings(&buf, settings, "yaml"))
		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "slides", got["source_dir"])
		converter, ok := got["converter"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "5m0s", converter["timeout"])
	})

	t.Run("toml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderSettings(&buf, settings, "toml"))
		var got map[string]any
		require.NoError(t, toml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "docs/pdfs", got["artifact_dir"])
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, renderSettings(&buf, settings, "json"))
		assert.Contains(t, buf.String(), `"manifest_path": "docs/pdf-list.json"`)
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Error(t, renderSettings(&bytes.Buffer{}, settings, "ini"))
	})
}
