package config

// #region imports
import (
	"os"
	"path/filepath"
	"testing"
)

// #endregion

// #region tests

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DBPath != "guardian.db" {
		t.Errorf("db path = %q, want default", cfg.Storage.DBPath)
	}
	if cfg.Vault.DefaultAutoReleaseHours != 24 {
		t.Errorf("auto-release hours = %v, want 24", cfg.Vault.DefaultAutoReleaseHours)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardian.toml")
	content := `
[storage]
db_path = "/var/lib/guardian/core.db"

[vault]
default_auto_release_hours = 6.5

[metrics]
enabled = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DBPath != "/var/lib/guardian/core.db" {
		t.Errorf("db path = %q", cfg.Storage.DBPath)
	}
	if cfg.Vault.DefaultAutoReleaseHours != 6.5 {
		t.Errorf("auto-release hours = %v, want 6.5", cfg.Vault.DefaultAutoReleaseHours)
	}
	if cfg.Metrics.Enabled {
		t.Error("metrics should be disabled by file")
	}
	// Untouched sections keep defaults.
	if cfg.Voice.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want default 16000", cfg.Voice.SampleRate)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardian.toml")
	if err := os.WriteFile(path, []byte("[storage]\ndb_path = \"file.db\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GUARDIAN_DB", "env.db")
	t.Setenv("GUARDIAN_AUTO_RELEASE_HOURS", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DBPath != "env.db" {
		t.Errorf("db path = %q, want env.db", cfg.Storage.DBPath)
	}
	if cfg.Vault.DefaultAutoReleaseHours != 12 {
		t.Errorf("auto-release hours = %v, want 12", cfg.Vault.DefaultAutoReleaseHours)
	}
}

func TestLoad_MalformedFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guardian.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error for malformed file")
	}
}

func TestValidate_Ranges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty db path", func(c *Config) { c.Storage.DBPath = "" }},
		{"metrics without addr", func(c *Config) { c.Metrics.ListenAddr = "" }},
		{"sample rate too low", func(c *Config) { c.Voice.SampleRate = 4000 }},
		{"zero auto-release", func(c *Config) { c.Vault.DefaultAutoReleaseHours = 0 }},
		{"negative poll interval", func(c *Config) { c.Poll.IntervalSeconds = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// #endregion tests
