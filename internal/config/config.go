// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads userauth configuration from a YAML file overlaid by
// command-line flags.
package config

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/8srael/alx-backend-user-data/internal/auth"
	"github.com/8srael/alx-backend-user-data/internal/logging"
	"github.com/8srael/alx-backend-user-data/internal/xdg"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the complete userauth configuration.
type Config struct {
	Store   StoreConfig   `koanf:"store"`
	Log     LogConfig     `koanf:"log"`
	Hasher  HasherConfig  `koanf:"hasher"`
	Access  AccessConfig  `koanf:"access"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// StoreConfig selects and locates the user store.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// LogConfig controls log output.
type LogConfig struct {
	Format string   `koanf:"format"`
	Level  string   `koanf:"level"`
	Redact []string `koanf:"redact"`
}

// HasherConfig holds argon2id cost parameters.
type HasherConfig struct {
	Time    uint32 `koanf:"time"`
	Memory  uint32 `koanf:"memory"`
	Threads uint8  `koanf:"threads"`
}

// AccessConfig lists request paths that do not require a session.
type AccessConfig struct {
	ExcludedPaths []string `koanf:"excluded_paths"`
}

// MetricsConfig controls metrics export. An empty Textfile disables it.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	p := auth.DefaultArgon2Params()
	return Config{
		Store: StoreConfig{Driver: DriverSQLite},
		Log: LogConfig{
			Format: "json",
			Level:  "info",
			Redact: slices.Clone(logging.DefaultPIIFields),
		},
		Hasher: HasherConfig{
			Time:    p.Time,
			Memory:  p.Memory,
			Threads: p.Threads,
		},
		Access: AccessConfig{
			ExcludedPaths: []string{"/api/v1/status/"},
		},
	}
}

// defaultValues flattens Default into koanf keys.
func defaultValues() map[string]any {
	d := Default()
	return map[string]any{
		"store.driver":          d.Store.Driver,
		"store.dsn":             d.Store.DSN,
		"log.format":            d.Log.Format,
		"log.level":             d.Log.Level,
		"log.redact":            d.Log.Redact,
		"hasher.time":           d.Hasher.Time,
		"hasher.memory":         d.Hasher.Memory,
		"hasher.threads":        d.Hasher.Threads,
		"access.excluded_paths": d.Access.ExcludedPaths,
		"metrics.textfile":      d.Metrics.Textfile,
	}
}

// RegisterFlags adds the configuration flags to fs. Flag defaults mirror
// Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("store-driver", d.Store.Driver, "user store driver (memory, postgres, sqlite)")
	fs.String("store-dsn", d.Store.DSN, "store connection string or database file")
	fs.String("log-format", d.Log.Format, "log format (json, text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.StringSlice("log-redact", d.Log.Redact, "log attribute keys to redact")
	fs.Uint32("hasher-time", d.Hasher.Time, "argon2id iterations")
	fs.Uint32("hasher-memory", d.Hasher.Memory, "argon2id memory in KiB")
	fs.Uint8("hasher-threads", d.Hasher.Threads, "argon2id parallelism")
	fs.String("metrics-textfile", d.Metrics.Textfile, "write metrics to this file on exit")
}

// flagKey maps a flag name such as "store-driver" to the key "store.driver".
func flagKey(name string) string {
	return strings.Replace(name, "-", ".", 1)
}

// Load layers defaults, the YAML file at path (skipped if it does not
// exist) and flags changed on the command line, in that order. flags may
// be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaultValues() {
		if err := k.Set(key, v); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "set default").
				With("key", key).
				Wrap(err)
		}
	}

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").
					With("operation", "read config file").
					With("path", path).
					Wrap(err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "stat config file").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read flags").
				Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "decode config").
			Wrap(err)
	}

	if cfg.Store.DSN == "" {
		switch cfg.Store.Driver {
		case DriverPostgres:
			cfg.Store.DSN = os.Getenv("DATABASE_URL")
		case DriverSQLite:
			cfg.Store.DSN = xdg.DatabaseFile()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains([]string{DriverMemory, DriverPostgres, DriverSQLite}, c.Store.Driver) {
		return oops.Code("CONFIG_INVALID").
			With("store.driver", c.Store.Driver).
			Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == DriverPostgres && c.Store.DSN == "" {
		return oops.Code("CONFIG_INVALID").Errorf("postgres store requires store.dsn or DATABASE_URL")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log.format", c.Log.Format).
			Errorf("unknown log format %q", c.Log.Format)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return oops.Code("CONFIG_INVALID").
			With("log.level", c.Log.Level).
			Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Hasher.Time == 0 || c.Hasher.Memory == 0 || c.Hasher.Threads == 0 {
		return oops.Code("CONFIG_INVALID").
			With("hasher.time", c.Hasher.Time).
			With("hasher.memory", c.Hasher.Memory).
			With("hasher.threads", c.Hasher.Threads).
			Errorf("hasher time, memory and threads must be positive")
	}
	return nil
}

// Argon2Params converts the hasher settings for auth.NewArgon2idHasherWithParams.
func (c *Config) Argon2Params() auth.Argon2Params {
	return auth.Argon2Params{
		Time:    c.Hasher.Time,
		Memory:  c.Hasher.Memory,
		Threads: c.Hasher.Threads,
	}
}
