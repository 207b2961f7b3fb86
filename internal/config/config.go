package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-spice-must-recur/internal/clock"
	"github.com/Veraticus/the-spice-must-recur/internal/common"
	"github.com/Veraticus/the-spice-must-recur/internal/engine"
	"github.com/Veraticus/the-spice-must-recur/internal/session"
)

// Configuration keys.
const (
	KeyDatabasePath      = "database.path"
	KeyOwnerID           = session.OwnerKey
	KeyCatchUp           = "engine.catch_up"
	KeyMaxCatchUp        = "engine.max_catch_up"
	KeyWorkers           = "engine.workers"
	KeyStoreTimeout      = "engine.store_timeout"
	KeyQueryRetries      = "engine.query_retries"
	KeyDescriptionSuffix = "engine.description_suffix"
	KeyAtomic            = "engine.atomic"
	KeyClockLocation     = "clock.location"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "$HOME/.local/share/recur/recur.db"

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	defaults := engine.DefaultConfig()

	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyCatchUp, string(defaults.CatchUp))
	v.SetDefault(KeyMaxCatchUp, defaults.MaxCatchUp)
	v.SetDefault(KeyWorkers, defaults.Workers)
	v.SetDefault(KeyStoreTimeout, defaults.StoreTimeout)
	v.SetDefault(KeyQueryRetries, defaults.QueryRetry.MaxAttempts)
	v.SetDefault(KeyDescriptionSuffix, defaults.DescriptionSuffix)
	v.SetDefault(KeyAtomic, defaults.Atomic)
	v.SetDefault(KeyClockLocation, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// DatabasePath returns the configured database path with ~ and environment
// variables expanded.
func DatabasePath(v *viper.Viper) string {
	path := v.GetString(KeyDatabasePath)
	if path == "" {
		path = DefaultDatabasePath
	}
	if path == ":memory:" {
		return path
	}
	return filepath.Clean(ExpandPath(path))
}

// LoadEngineConfig builds the engine configuration from Viper, starting from
// engine.DefaultConfig for anything unset.
func LoadEngineConfig(v *viper.Viper) (engine.Config, error) {
	cfg := engine.DefaultConfig()

	policy, err := engine.ParseCatchUpPolicy(v.GetString(KeyCatchUp))
	if err != nil {
		return cfg, err
	}
	cfg.CatchUp = policy

	if v.IsSet(KeyMaxCatchUp) {
		cfg.MaxCatchUp = v.GetInt(KeyMaxCatchUp)
		if cfg.MaxCatchUp < 1 {
			return cfg, invalid(KeyMaxCatchUp, "must be at least 1, got %d", cfg.MaxCatchUp)
		}
	}

	if v.IsSet(KeyWorkers) {
		cfg.Workers = v.GetInt(KeyWorkers)
		if cfg.Workers < 1 {
			return cfg, invalid(KeyWorkers, "must be at least 1, got %d", cfg.Workers)
		}
	}

	if v.IsSet(KeyStoreTimeout) {
		cfg.StoreTimeout = v.GetDuration(KeyStoreTimeout)
		if cfg.StoreTimeout < 0 {
			return cfg, invalid(KeyStoreTimeout, "must not be negative, got %s", cfg.StoreTimeout)
		}
	}

	if v.IsSet(KeyQueryRetries) {
		cfg.QueryRetry.MaxAttempts = v.GetInt(KeyQueryRetries)
		if cfg.QueryRetry.MaxAttempts < 1 {
			return cfg, invalid(KeyQueryRetries, "must be at least 1, got %d", cfg.QueryRetry.MaxAttempts)
		}
	}

	if v.IsSet(KeyDescriptionSuffix) {
		cfg.DescriptionSuffix = v.GetString(KeyDescriptionSuffix)
	}
	if v.IsSet(KeyAtomic) {
		cfg.Atomic = v.GetBool(KeyAtomic)
	}

	return cfg, nil
}

// LoadClock returns the system clock for clock.location.
func LoadClock(v *viper.Viper) (*clock.System, error) {
	c, err := clock.NewSystem(v.GetString(KeyClockLocation))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, KeyClockLocation, err)
	}
	return c, nil
}

// LoadSession returns a session provider that reads owner.id on every call.
func LoadSession(v *viper.Viper) *session.Config {
	return session.FromViper(v)
}

func invalid(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", common.ErrInvalidConfig, key, fmt.Sprintf(format, args...))
}
