// Package config provides configuration loading for schneider.
//
// Settings come from a TOML file (or YAML when the path ends in .yaml/.yml)
// and are overridden by SCHNEIDER_<SECTION>_<KEY> environment variables.
// Fields are pointers so callers can tell unset values from zero values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/verte-zerg/schneider/internal/course"
)

// EnvPrefix prefixes environment overrides, e.g. SCHNEIDER_SESSION_LAPS.
const EnvPrefix = "SCHNEIDER_"

// ErrInvalidConfig is returned when a configured value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// FileConfig represents the configuration file.
type FileConfig struct {
	Session SessionConfig `toml:"session" koanf:"session"`
	Store   StoreConfig   `toml:"store" koanf:"store"`
	Engine  EngineConfig  `toml:"engine" koanf:"engine"`
	Log     LogConfig     `toml:"log" koanf:"log"`
}

// SessionConfig maps session defaults.
type SessionConfig struct {
	Course   *string `toml:"course" koanf:"course"`
	Laps     *int    `toml:"laps" koanf:"laps"`
	Practice *bool   `toml:"practice" koanf:"practice"`
	Seed     *int64  `toml:"seed" koanf:"seed"`
}

// StoreConfig selects where records and history are kept.
type StoreConfig struct {
	Backend *string `toml:"backend" koanf:"backend"`
	Path    *string `toml:"path" koanf:"path"`
}

// EngineConfig maps engine failure handling.
type EngineConfig struct {
	FailureCommand *string `toml:"failure-command" koanf:"failure-command"`
}

// LogConfig maps logger settings.
type LogConfig struct {
	Level  *string `toml:"level" koanf:"level"`
	Format *string `toml:"format" koanf:"format"`
}

// LoadConfig reads the config at path and applies environment overrides.
// A missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}

	var cfg FileConfig
	k := koanf.New(".")

	exists := true
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
		}
		exists = false
	}
	if exists {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
			}
		default:
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return FileConfig{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// envKey maps SCHNEIDER_ENGINE_FAILURE_COMMAND to engine.failure-command,
// the key used in config files.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	return section + "." + strings.ReplaceAll(key, "_", "-")
}

// Validate checks the values that are set.
func (c FileConfig) Validate() error {
	if c.Session.Course != nil {
		if _, err := course.ParseVariant(*c.Session.Course); err != nil {
			return fmt.Errorf("%w: session.course: %w", ErrInvalidConfig, err)
		}
	}
	if c.Session.Laps != nil && *c.Session.Laps < 1 {
		return fmt.Errorf("%w: session.laps must be at least 1, got %d", ErrInvalidConfig, *c.Session.Laps)
	}
	if c.Store.Backend != nil {
		switch *c.Store.Backend {
		case BackendSQLite, BackendTOML:
		default:
			return fmt.Errorf("%w: store.backend must be %q or %q, got %q", ErrInvalidConfig, BackendSQLite, BackendTOML, *c.Store.Backend)
		}
	}
	if c.Log.Format != nil {
		switch *c.Log.Format {
		case "console", "json":
		default:
			return fmt.Errorf("%w: log.format must be console or json, got %q", ErrInvalidConfig, *c.Log.Format)
		}
	}
	return nil
}
