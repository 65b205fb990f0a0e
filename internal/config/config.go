// Package config loads deconfliction run settings from a YAML file and
// DECONFLICT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/drone-deconfliction/core"
	"github.com/signalsfoundry/drone-deconfliction/internal/logging"
	"github.com/signalsfoundry/drone-deconfliction/internal/observability"
	"github.com/signalsfoundry/drone-deconfliction/model"
	"gopkg.in/yaml.v3"
)

// Config is the full set of run settings.
type Config struct {
	Detector DetectorSettings            `yaml:"detector"`
	Logging  logging.Config              `yaml:"logging"`
	Tracing  observability.TracingConfig `yaml:"tracing"`
	Output   OutputSettings              `yaml:"output"`
}

// DetectorSettings mirrors core.DetectorConfig in file form.
type DetectorSettings struct {
	SafetyBuffer float64       `yaml:"safety_buffer"`
	BinWidth     time.Duration `yaml:"bin_width"`
	TimeWeight   float64       `yaml:"time_weight"`
	Parallelism  int           `yaml:"parallelism"`

	// Defaults applied to missions that leave their envelope unset.
	// A zero cruise speed fits the speed to each mission window.
	CruiseSpeed  float64 `yaml:"cruise_speed"`
	Acceleration float64 `yaml:"acceleration"`
	Deceleration float64 `yaml:"deceleration"`
}

// OutputSettings selects the artefacts a run writes.
type OutputSettings struct {
	Report       string        `yaml:"report"`        // path; "" disables
	ReportFormat string        `yaml:"report_format"` // json | msgpack; inferred from path when empty
	Plot         string        `yaml:"plot"`          // PNG path
	Frames       string        `yaml:"frames"`        // JSON lines path
	FrameTick    time.Duration `yaml:"frame_tick"`
	SummaryLimit int           `yaml:"summary_limit"`
	EventGap     time.Duration `yaml:"event_gap"`    // max spacing of records merged into one encounter
	MetricsFile  string        `yaml:"metrics_file"` // Prometheus textfile
	MetricsAddr  string        `yaml:"metrics_addr"` // serve /metrics while running
}

// Default returns the built-in settings.
func Default() Config {
	dc := core.DefaultDetectorConfig()
	return Config{
		Detector: DetectorSettings{
			SafetyBuffer: dc.SafetyBuffer,
			BinWidth:     dc.BinWidth,
			TimeWeight:   dc.TimeWeight,
			Parallelism:  dc.Parallelism,
			CruiseSpeed:  dc.DefaultKinematics.CruiseSpeed,
			Acceleration: dc.DefaultKinematics.Acceleration,
			Deceleration: dc.DefaultKinematics.Deceleration,
		},
		Logging: logging.Config{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
		Output: OutputSettings{
			FrameTick:    time.Second,
			SummaryLimit: 10,
			EventGap:     2 * time.Second,
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
// Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays DECONFLICT_* variables onto cfg. Malformed numeric
// values are reported rather than ignored.
func ApplyEnv(cfg Config) (Config, error) {
	var errs []error
	lookupFloat := func(name string, dst *float64) {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = v
	}
	lookupInt := func(name string, dst *int) {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = v
	}
	lookupDuration := func(name string, dst *time.Duration) {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			return
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = v
	}
	lookupString := func(name string, dst *string) {
		if raw := os.Getenv(name); raw != "" {
			*dst = raw
		}
	}

	lookupFloat("DECONFLICT_SAFETY_BUFFER", &cfg.Detector.SafetyBuffer)
	lookupDuration("DECONFLICT_BIN_WIDTH", &cfg.Detector.BinWidth)
	lookupFloat("DECONFLICT_TIME_WEIGHT", &cfg.Detector.TimeWeight)
	lookupInt("DECONFLICT_PARALLELISM", &cfg.Detector.Parallelism)
	lookupFloat("DECONFLICT_CRUISE_SPEED", &cfg.Detector.CruiseSpeed)
	lookupFloat("DECONFLICT_ACCELERATION", &cfg.Detector.Acceleration)
	lookupFloat("DECONFLICT_DECELERATION", &cfg.Detector.Deceleration)

	lookupString("DECONFLICT_LOG_LEVEL", &cfg.Logging.Level)
	lookupString("DECONFLICT_LOG_FORMAT", &cfg.Logging.Format)
	lookupString("DECONFLICT_LOG_FILE", &cfg.Logging.File)

	lookupString("DECONFLICT_REPORT", &cfg.Output.Report)
	lookupString("DECONFLICT_METRICS_FILE", &cfg.Output.MetricsFile)
	lookupString("DECONFLICT_METRICS_ADDR", &cfg.Output.MetricsAddr)

	cfg.Tracing = observability.ApplyTracingEnv(cfg.Tracing)

	if len(errs) > 0 {
		return cfg, fmt.Errorf("environment overrides: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// DetectorConfig converts the detector settings for core.NewDetector.
func (c Config) DetectorConfig() core.DetectorConfig {
	return core.DetectorConfig{
		SafetyBuffer: c.Detector.SafetyBuffer,
		BinWidth:     c.Detector.BinWidth,
		TimeWeight:   c.Detector.TimeWeight,
		Parallelism:  c.Detector.Parallelism,
		DefaultKinematics: model.Kinematics{
			CruiseSpeed:  c.Detector.CruiseSpeed,
			Acceleration: c.Detector.Acceleration,
			Deceleration: c.Detector.Deceleration,
		},
	}
}

// Validate checks the settings that core does not.
func (c Config) Validate() error {
	if err := c.DetectorConfig().Validate(); err != nil {
		return err
	}
	if c.Output.Frames != "" && c.Output.FrameTick <= 0 {
		return fmt.Errorf("frame tick must be positive, got %s", c.Output.FrameTick)
	}
	if c.Output.EventGap < 0 {
		return fmt.Errorf("event gap must not be negative, got %s", c.Output.EventGap)
	}
	switch strings.ToLower(c.Output.ReportFormat) {
	case "", "json", "msgpack":
	default:
		return fmt.Errorf("unsupported report format %q", c.Output.ReportFormat)
	}
	return nil
}
