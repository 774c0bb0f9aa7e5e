// Package config handles configuration loading and validation for guardian.
package config

// #region imports
import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// #endregion

// #region types

// Config holds the runtime configuration of the decision core. Scoring
// profiles are fixed in code; this covers only deployment knobs.
type Config struct {
	Storage Storage `toml:"storage"`
	Metrics Metrics `toml:"metrics"`
	Voice   Voice   `toml:"voice"`
	Vault   Vault   `toml:"vault"`
	Poll    Poll    `toml:"poll"`
}

// Storage configures the SQLite database.
type Storage struct {
	DBPath string `toml:"db_path"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

// Voice configures audio capture for biometric verification.
type Voice struct {
	SampleRate int `toml:"sample_rate"`
}

// Vault configures the time-locked evidence vault.
type Vault struct {
	DefaultAutoReleaseHours float64 `toml:"default_auto_release_hours"`
}

// Poll configures how often decaying scores and lock deadlines are
// re-evaluated. Correctness never depends on this interval; it only
// bounds how stale a displayed score can be.
type Poll struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// #endregion types

// #region defaults

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Storage: Storage{DBPath: "guardian.db"},
		Metrics: Metrics{Enabled: true, ListenAddr: "localhost:9521"},
		Voice:   Voice{SampleRate: 16000},
		Vault:   Vault{DefaultAutoReleaseHours: 24},
		Poll:    Poll{IntervalSeconds: 30},
	}
}

// #endregion defaults

// #region load

// Load reads a TOML config file, applies environment overrides, and
// validates. A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GUARDIAN_DB"); v != "" {
		c.Storage.DBPath = v
	}
	if v := os.Getenv("GUARDIAN_METRICS_ADDR"); v != "" {
		c.Metrics.ListenAddr = v
	}
	if v := os.Getenv("GUARDIAN_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = enabled
		}
	}
	if v := os.Getenv("GUARDIAN_AUTO_RELEASE_HOURS"); v != "" {
		if hours, err := strconv.ParseFloat(v, 64); err == nil {
			c.Vault.DefaultAutoReleaseHours = hours
		}
	}
}

// #endregion load

// #region validate

// Validate checks ranges the rest of the core assumes.
func (c Config) Validate() error {
	if c.Storage.DBPath == "" {
		return errors.New("storage.db_path must not be empty")
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return errors.New("metrics.listen_addr required when metrics enabled")
	}
	if c.Voice.SampleRate < 8000 {
		return fmt.Errorf("voice.sample_rate %d too low, need at least 8000", c.Voice.SampleRate)
	}
	if c.Vault.DefaultAutoReleaseHours <= 0 {
		return fmt.Errorf("vault.default_auto_release_hours must be positive, got %v", c.Vault.DefaultAutoReleaseHours)
	}
	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be positive, got %d", c.Poll.IntervalSeconds)
	}
	return nil
}

// #endregion validate
