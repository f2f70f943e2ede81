package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intelligence.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 9090
redis:
  addr: localhost:6379
  db: 2
classifier:
  slow_load_threshold_ms: 2500
  error_severity: 0.9
alerts:
  min_severity: 0.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 2500.0, cfg.Classifier.SlowLoadThresholdMS)
	assert.Equal(t, 0.9, cfg.Classifier.ErrorSeverity)
	assert.Equal(t, 0.5, cfg.Alerts.MinSeverity)

	// Unset fields fall back to defaults.
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "gpt-4o-mini", cfg.Intent.Model)
	assert.Equal(t, 10000.0, cfg.Classifier.LoadTimeScaleMS)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	path := writeConfig(t, `
intent:
  api_key: ${TEST_OPENAI_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", cfg.Intent.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.ClickHouse.MaxOpenConns)
	assert.Equal(t, "gpt-4o-mini", cfg.Intent.Model)
	assert.Equal(t, 30*time.Second, cfg.Intent.Timeout)
	assert.Equal(t, 100, cfg.Archive.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Archive.FlushInterval)
	assert.Equal(t, 0.7, cfg.Alerts.MinSeverity)
}

func TestClassifierDefaults(t *testing.T) {
	var c ClassifierConfig
	c.ApplyDefaults()

	assert.Equal(t, 3000.0, c.SlowLoadThresholdMS)
	assert.Equal(t, 10000.0, c.LoadTimeScaleMS)
	assert.Equal(t, 5000.0, c.LatencyScaleMS)
	assert.Equal(t, 10.0, c.RapidClickScale)
	assert.Equal(t, 2000.0, c.QuickReversalMS)
	assert.Equal(t, 0.7, c.QuickReversalSeverity)
	assert.Equal(t, 0.8, c.ErrorSeverity)
	assert.Equal(t, 3, c.RepeatedReversalMin)
	assert.Equal(t, 0.6, c.RepeatedReversalSeverity)
}

func TestClassifierDefaultsKeepOverrides(t *testing.T) {
	c := ClassifierConfig{SlowLoadThresholdMS: 1500, RepeatedReversalMin: 5}
	c.ApplyDefaults()

	assert.Equal(t, 1500.0, c.SlowLoadThresholdMS)
	assert.Equal(t, 5, c.RepeatedReversalMin)
	assert.Equal(t, 10000.0, c.LoadTimeScaleMS)
}
