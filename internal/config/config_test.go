package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5.0, cfg.Detector.SafetyBuffer)
	assert.Equal(t, time.Second, cfg.Detector.BinWidth)
	assert.Equal(t, 1.0, cfg.Detector.TimeWeight)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := writeFile(t, "deconflict.yaml", `
detector:
  safety_buffer: 12.5
  bin_width: 500ms
  time_weight: 0
  parallelism: 4
logging:
  level: debug
  format: json
output:
  report: out/report.json.zst
  frame_tick: 250ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 12.5, cfg.Detector.SafetyBuffer)
	assert.Equal(t, 500*time.Millisecond, cfg.Detector.BinWidth)
	assert.Equal(t, 0.0, cfg.Detector.TimeWeight)
	assert.Equal(t, 4, cfg.Detector.Parallelism)
	assert.Equal(t, 2.0, cfg.Detector.Acceleration, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "out/report.json.zst", cfg.Output.Report)
	assert.Equal(t, 250*time.Millisecond, cfg.Output.FrameTick)
	assert.Equal(t, 10, cfg.Output.SummaryLimit)

	dc := cfg.DetectorConfig()
	assert.Equal(t, 12.5, dc.SafetyBuffer)
	assert.Equal(t, 500*time.Millisecond, dc.BinWidth)
	assert.Equal(t, 2.0, dc.DefaultKinematics.Deceleration)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "detector: [not, a, map")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DECONFLICT_SAFETY_BUFFER", "7.5")
	t.Setenv("DECONFLICT_BIN_WIDTH", "2s")
	t.Setenv("DECONFLICT_PARALLELISM", "8")
	t.Setenv("DECONFLICT_LOG_LEVEL", "warn")
	t.Setenv("DECONFLICT_TRACING_ENABLED", "true")

	cfg, err := ApplyEnv(Default())
	require.NoError(t, err)
	assert.Equal(t, 7.5, cfg.Detector.SafetyBuffer)
	assert.Equal(t, 2*time.Second, cfg.Detector.BinWidth)
	assert.Equal(t, 8, cfg.Detector.Parallelism)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestApplyEnvReportsMalformedValues(t *testing.T) {
	t.Setenv("DECONFLICT_SAFETY_BUFFER", "five")
	t.Setenv("DECONFLICT_BIN_WIDTH", "soon")

	_, err := ApplyEnv(Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DECONFLICT_SAFETY_BUFFER")
	assert.Contains(t, err.Error(), "DECONFLICT_BIN_WIDTH")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero buffer", func(c *Config) { c.Detector.SafetyBuffer = 0 }},
		{"zero bin width", func(c *Config) { c.Detector.BinWidth = 0 }},
		{"negative weight", func(c *Config) { c.Detector.TimeWeight = -1 }},
		{"nan weight", func(c *Config) { c.Detector.TimeWeight = math.NaN() }},
		{"infinite weight", func(c *Config) { c.Detector.TimeWeight = math.Inf(1) }},
		{"frames without tick", func(c *Config) { c.Output.Frames = "f.jsonl"; c.Output.FrameTick = 0 }},
		{"unknown format", func(c *Config) { c.Output.ReportFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
