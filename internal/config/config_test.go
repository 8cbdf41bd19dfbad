package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/citegraph/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	want := filepath.Join(home, ".config", "citegraph", "config.yml")
	if got := GlobalConfigPath(); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	for _, env := range []string{EnvDBPath, EnvListen, EnvLogLevel, EnvMailto, EnvBaseURL} {
		t.Setenv(env, "")
	}

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.DBPath != "/data/citegraph/citegraph.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.MaxAttempts != 5 || cfg.InitialBackoff != time.Second || cfg.RequestTimeout != 10*time.Second {
		t.Errorf("retry defaults = %d/%v/%v", cfg.MaxAttempts, cfg.InitialBackoff, cfg.RequestTimeout)
	}
	if cfg.ReferenceCap != 100 || cfg.SearchLimit != 5 {
		t.Errorf("ReferenceCap/SearchLimit = %d/%d", cfg.ReferenceCap, cfg.SearchLimit)
	}
}

func TestLoadFile_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `db_path: /tmp/graphs.db
listen_addr: 0.0.0.0:9000
mailto: me@example.org
reference_cap: 50
initial_backoff: 250ms
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvMailto, "")
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvListen, "127.0.0.1:7000")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"db_path", cfg.DBPath, "/tmp/graphs.db"},
		{"listen_addr from env", cfg.ListenAddr, "127.0.0.1:7000"},
		{"mailto", cfg.Mailto, "me@example.org"},
		{"reference_cap", cfg.ReferenceCap, 50},
		{"initial_backoff", cfg.InitialBackoff, 250 * time.Millisecond},
		{"log_level", cfg.LogLevel, "debug"},
		{"untouched default", cfg.SearchLimit, 5},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad log level", "log_level: loud\n"},
		{"bad url", "openalex_base_url: not a url\n"},
		{"zero attempts", "max_attempts: 0\n"},
		{"bad mailto", "mailto: nobody\n"},
		{"negative rate", "rate_limit: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, env := range []string{EnvDBPath, EnvListen, EnvLogLevel, EnvMailto, EnvBaseURL} {
				t.Setenv(env, "")
			}
			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("LoadFile() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("db_path: [unterminated\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	for _, env := range []string{EnvDBPath, EnvListen, EnvLogLevel, EnvMailto, EnvBaseURL} {
		t.Setenv(env, "")
	}
	path := filepath.Join(t.TempDir(), "nested", "config.yml")

	cfg := Default()
	cfg.DBPath = "/var/lib/citegraph.db"
	cfg.SessionTTL = 2 * time.Hour
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded = %+v, want %+v", loaded, cfg)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got := ExpandPath("~/graphs.db"); got != filepath.Join(home, "graphs.db") {
		t.Errorf("ExpandPath(~/graphs.db) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}
