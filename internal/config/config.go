// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

// Package config loads roo's settings from built-in defaults, an optional
// YAML file and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// CodeInvalidConfig marks configuration that fails validation.
const CodeInvalidConfig = "CONFIG_INVALID"

// DefaultFileName is looked up in ConfigDir when no file is given.
const DefaultFileName = "config.yaml"

// Config is the complete runtime configuration.
type Config struct {
	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Store      StoreConfig      `koanf:"store"`
	Checkpoint CheckpointConfig `koanf:"checkpoint"`
	World      WorldConfig      `koanf:"world"`
	Script     ScriptConfig     `koanf:"script"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the metrics and health endpoint. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// StoreConfig selects where checkpoints go.
type StoreConfig struct {
	Driver      string `koanf:"driver"`
	Dir         string `koanf:"dir"`
	BaseName    string `koanf:"basename"`
	KeepBackups int    `koanf:"keep_backups"`
	Compress    bool   `koanf:"compress"`
	BoltPath    string `koanf:"bolt_path"`
	PostgresURL string `koanf:"postgres_url"`
}

// CheckpointConfig configures periodic checkpoints. A zero interval only
// checkpoints on shutdown.
type CheckpointConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// WorldConfig configures how the world starts.
type WorldConfig struct {
	// Seed is a YAML seed file for fresh worlds. Empty uses the built-in
	// minimal world.
	Seed               string `koanf:"seed"`
	OnLoadFailure      string `koanf:"on_load_failure"`
	MaxObjectsPerOwner int    `koanf:"max_objects_per_owner"`
}

// ScriptConfig configures the Lua runtime.
type ScriptConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// RateLimitConfig configures per-session command limits. A zero burst
// disables limiting.
type RateLimitConfig struct {
	Burst         int     `koanf:"burst"`
	SustainedRate float64 `koanf:"sustained_rate"`
}

// Defaults returns the built-in settings as koanf keys.
func Defaults() map[string]any {
	data := DataDir()
	return map[string]any{
		"log.format":                  "text",
		"log.level":                   "info",
		"metrics.addr":                "127.0.0.1:9100",
		"store.driver":                "file",
		"store.dir":                   data,
		"store.basename":              "world",
		"store.keep_backups":          5,
		"store.compress":              true,
		"store.bolt_path":             filepath.Join(data, "world.db"),
		"store.postgres_url":          "",
		"checkpoint.interval":         "5m",
		"world.seed":                  "",
		"world.on_load_failure":       "fail",
		"world.max_objects_per_owner": 0,
		"script.timeout":              "5s",
		"rate_limit.burst":            10,
		"rate_limit.sustained_rate":   2.0,
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"log-format":          "log.format",
	"log-level":           "log.level",
	"metrics-addr":        "metrics.addr",
	"store":               "store.driver",
	"data-dir":            "store.dir",
	"basename":            "store.basename",
	"keep-backups":        "store.keep_backups",
	"compress":            "store.compress",
	"bolt-path":           "store.bolt_path",
	"database-url":        "store.postgres_url",
	"checkpoint-interval": "checkpoint.interval",
	"seed":                "world.seed",
	"on-load-failure":     "world.on_load_failure",
	"max-objects":         "world.max_objects_per_owner",
	"script-timeout":      "script.timeout",
}

// RegisterFlags adds the flags Load understands to fs. Their defaults are
// display only: unset flags never override the file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-format", "text", "log format (json or text)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.String("store", "file", "snapshot store (file, bolt or postgres)")
	fs.String("data-dir", "", "snapshot directory (default: XDG_DATA_HOME/roo)")
	fs.String("basename", "world", "snapshot file base name")
	fs.Int("keep-backups", 5, "number of previous snapshots to keep")
	fs.Bool("compress", true, "zstd-compress snapshot files")
	fs.String("bolt-path", "", "bbolt database file (default: XDG_DATA_HOME/roo/world.db)")
	fs.String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")
	fs.Duration("checkpoint-interval", 5*time.Minute, "time between checkpoints (0 = only on exit)")
	fs.String("seed", "", "YAML seed for a fresh world (default: built-in minimal world)")
	fs.String("on-load-failure", "fail", "what a corrupt snapshot does (bootstrap or fail)")
	fs.Int("max-objects", 0, "objects a non-wizard may own (0 = unlimited)")
	fs.Duration("script-timeout", 5*time.Second, "time limit for one verb or eval line")
}

// Load reads the defaults, then path (or DefaultFileName in ConfigDir when
// path is empty and that file exists), then the flags set on fs. fs may be
// nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.In("config").Wrapf(err, "load defaults")
	}

	if path == "" {
		candidate := filepath.Join(ConfigDir(), DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.In("config").With("file", path).Wrapf(err, "load config file")
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").Wrapf(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.In("config").Wrapf(err, "decode config")
	}
	if cfg.Store.PostgresURL == "" {
		cfg.Store.PostgresURL = os.Getenv("DATABASE_URL")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func invalid(key, format string, args ...any) error {
	return oops.In("config").Code(CodeInvalidConfig).With("key", key).Errorf(format, args...)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, invalid("log.level", "log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	switch c.Store.Driver {
	case "file":
		if c.Store.Dir == "" {
			errs = append(errs, invalid("store.dir", "store.dir is required for the file store"))
		}
		if c.Store.BaseName == "" {
			errs = append(errs, invalid("store.basename", "store.basename is required for the file store"))
		}
	case "bolt":
		if c.Store.BoltPath == "" {
			errs = append(errs, invalid("store.bolt_path", "store.bolt_path is required for the bolt store"))
		}
	case "postgres":
		if c.Store.PostgresURL == "" {
			errs = append(errs, invalid("store.postgres_url", "store.postgres_url or DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, invalid("store.driver", "store.driver must be file, bolt or postgres, got %q", c.Store.Driver))
	}
	if c.Store.KeepBackups < 0 {
		errs = append(errs, invalid("store.keep_backups", "store.keep_backups must not be negative"))
	}

	if c.Checkpoint.Interval < 0 {
		errs = append(errs, invalid("checkpoint.interval", "checkpoint.interval must not be negative"))
	}
	if c.World.OnLoadFailure != "bootstrap" && c.World.OnLoadFailure != "fail" {
		errs = append(errs, invalid("world.on_load_failure", "world.on_load_failure must be 'bootstrap' or 'fail', got %q", c.World.OnLoadFailure))
	}
	if c.World.MaxObjectsPerOwner < 0 {
		errs = append(errs, invalid("world.max_objects_per_owner", "world.max_objects_per_owner must not be negative"))
	}
	if c.Script.Timeout <= 0 {
		errs = append(errs, invalid("script.timeout", "script.timeout must be positive"))
	}
	if c.RateLimit.Burst < 0 || c.RateLimit.SustainedRate < 0 {
		errs = append(errs, invalid("rate_limit", "rate_limit values must not be negative"))
	}
	return errors.Join(errs...)
}
