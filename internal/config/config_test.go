package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.OutputType, cfg.OutputType)
	assert.Equal(t, d.InputPath, cfg.InputPath)
	assert.True(t, cfg.ExpandMessages)
	assert.Equal(t, d.MaxBodyBytes, cfg.MaxBodyBytes)
	assert.Empty(t, cfg.FilterMethods)
}

func TestLoadYAMLFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pageload.yaml")
	data := []byte(`page_url: https://example.com/
output_type: jsonl
expand_messages: false
filter_methods:
  - Network.
  - Page.
log_level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("PAGELOAD_LOG_LEVEL", "warn")
	t.Setenv("PAGELOAD_SINK_MAX_RETRIES", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/", cfg.PageURL)
	assert.Equal(t, "jsonl", cfg.OutputType)
	assert.False(t, cfg.ExpandMessages)
	assert.Equal(t, []string{"Network.", "Page."}, cfg.FilterMethods)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 7, cfg.SinkMaxRetries)
}

func TestLoadFilterMethodsFromEnv(t *testing.T) {
	t.Setenv("PAGELOAD_FILTER_METHODS", "Network.; Page.loadEventFired")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"Network.", "Page.loadEventFired"}, cfg.FilterMethods)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestMergePrefersOverride(t *testing.T) {
	base := Default()
	got := Merge(base, Config{PageURL: "http://a.test", OutputType: "file", OutputPath: "out.json"})

	assert.Equal(t, "http://a.test", got.PageURL)
	assert.Equal(t, "file", got.OutputType)
	assert.Equal(t, "out.json", got.OutputPath)
	assert.Equal(t, base.LogLevel, got.LogLevel)
	assert.True(t, got.ExpandMessages)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Default()))

	cfg := Default()
	cfg.OutputType = "kafka"
	cfg.LogLevel = "loud"
	cfg.SinkMaxRetries = -1
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid output_type "kafka"`)
	assert.Contains(t, err.Error(), `invalid log_level "loud"`)
	assert.Contains(t, err.Error(), "sink_max_retries cannot be negative")

	cfg = Default()
	cfg.OutputType = "file"
	assert.ErrorContains(t, Validate(cfg), "output is required")
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseList(" a, ;b;c ,"))
	assert.Empty(t, ParseList(""))
}
