// Package config resolves runtime settings from defaults, an optional YAML
// file and environment variables, in that order.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings.
type Config struct {
	DBPath      string          `yaml:"db_path"`
	CatalogPath string          `yaml:"catalog_path"`
	Sweep       SweepConfig     `yaml:"sweep"`
	Reconcile   ReconcileConfig `yaml:"reconcile"`
	Reminders   ReminderConfig  `yaml:"reminders"`
	Log         LogConfig       `yaml:"log"`
}

type SweepConfig struct {
	Interval        Duration `yaml:"interval"`
	DispatchTimeout Duration `yaml:"dispatch_timeout"`
	MaxConcurrent   int      `yaml:"max_concurrent"`
	RatePerSecond   float64  `yaml:"rate_per_second"`
	BatchLimit      int      `yaml:"batch_limit"`
	// ClaimTTL is how long a sweep holds selected entries before another
	// process may take them over.
	ClaimTTL Duration `yaml:"claim_ttl"`
}

type ReconcileConfig struct {
	Interval Duration `yaml:"interval"`
}

type ReminderConfig struct {
	MorningHour int    `yaml:"morning_hour"`
	Title       string `yaml:"title"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	UseCases bool   `yaml:"use_cases"`
}

// Default returns the built-in settings. The database lives under
// ~/.quitplan unless the home directory cannot be determined.
func Default() Config {
	dbPath := "quitplan.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".quitplan", "quitplan.db")
	}
	return Config{
		DBPath: dbPath,
		Sweep: SweepConfig{
			Interval:        Duration(60 * time.Second),
			DispatchTimeout: Duration(10 * time.Second),
			MaxConcurrent:   4,
			RatePerSecond:   20,
			BatchLimit:      500,
			ClaimTTL:        Duration(5 * time.Minute),
		},
		Reconcile: ReconcileConfig{Interval: Duration(time.Hour)},
		Reminders: ReminderConfig{MorningHour: 8, Title: "SmartQuit"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the effective configuration: defaults, then the YAML file named
// by QUITPLAN_CONFIG if set, then environment overrides.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("QUITPLAN_CONFIG"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the file
// keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnv applies QUITPLAN_* overrides. Values that do not parse are ignored.
func applyEnv(cfg *Config) {
	if v := os.Getenv("QUITPLAN_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("QUITPLAN_CATALOG"); v != "" {
		cfg.CatalogPath = v
	}
	applyDurationEnv(&cfg.Sweep.Interval, "QUITPLAN_SWEEP_INTERVAL")
	applyDurationEnv(&cfg.Sweep.DispatchTimeout, "QUITPLAN_DISPATCH_TIMEOUT")
	applyDurationEnv(&cfg.Sweep.ClaimTTL, "QUITPLAN_SWEEP_CLAIM_TTL")
	applyDurationEnv(&cfg.Reconcile.Interval, "QUITPLAN_RECONCILE_INTERVAL")
	if v := os.Getenv("QUITPLAN_SWEEP_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sweep.MaxConcurrent = n
		}
	}
	if v := os.Getenv("QUITPLAN_SWEEP_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Sweep.RatePerSecond = f
		}
	}
	if v := os.Getenv("QUITPLAN_SWEEP_BATCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sweep.BatchLimit = n
		}
	}
	if v := os.Getenv("QUITPLAN_MORNING_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			cfg.Reminders.MorningHour = n
		}
	}
	if v := os.Getenv("QUITPLAN_LOG_LEVEL"); v != "" {
		if _, err := parseLevel(v); err == nil {
			cfg.Log.Level = v
		}
	}
	if v := os.Getenv("QUITPLAN_LOG_FORMAT"); v == "text" || v == "json" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("QUITPLAN_LOG_USE_CASES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.UseCases = b
		}
	}
}

func applyDurationEnv(dst *Duration, envName string) {
	v := os.Getenv(envName)
	if v == "" {
		return
	}
	d, err := ParseDuration(v)
	if err != nil || d <= 0 {
		return
	}
	*dst = Duration(d)
}

// Validate rejects settings the sweep and scheduler cannot run with.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("config: sweep.interval must be positive")
	}
	if c.Sweep.DispatchTimeout <= 0 {
		return fmt.Errorf("config: sweep.dispatch_timeout must be positive")
	}
	if c.Sweep.MaxConcurrent <= 0 {
		return fmt.Errorf("config: sweep.max_concurrent must be positive")
	}
	if c.Sweep.RatePerSecond < 0 {
		return fmt.Errorf("config: sweep.rate_per_second must not be negative")
	}
	if c.Sweep.BatchLimit <= 0 {
		return fmt.Errorf("config: sweep.batch_limit must be positive")
	}
	if c.Sweep.ClaimTTL <= c.Sweep.DispatchTimeout {
		return fmt.Errorf("config: sweep.claim_ttl must exceed sweep.dispatch_timeout")
	}
	if c.Reconcile.Interval <= 0 {
		return fmt.Errorf("config: reconcile.interval must be positive")
	}
	if c.Reminders.MorningHour < 0 || c.Reminders.MorningHour > 23 {
		return fmt.Errorf("config: reminders.morning_hour %d is outside 0-23", c.Reminders.MorningHour)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// Logger builds the process logger described by the log settings.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
