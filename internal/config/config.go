// Package config handles citegraph configuration: defaults, an optional
// YAML file, a .env file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration.
type Config struct {
	// Storage
	DBPath string `yaml:"db_path" validate:"required"`

	// HTTP shell
	ListenAddr string        `yaml:"listen_addr" validate:"required"`
	SessionTTL time.Duration `yaml:"session_ttl" validate:"gt=0"`

	// OpenAlex
	OpenAlexBaseURL string        `yaml:"openalex_base_url" validate:"required,url"`
	Mailto          string        `yaml:"mailto" validate:"omitempty,email"`
	ReferenceCap    int           `yaml:"reference_cap" validate:"min=1,max=10000"`
	SearchLimit     int           `yaml:"search_limit" validate:"min=1,max=200"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
	MaxAttempts     int           `yaml:"max_attempts" validate:"min=1,max=20"`
	InitialBackoff  time.Duration `yaml:"initial_backoff" validate:"gt=0"`
	RateLimit       float64       `yaml:"rate_limit" validate:"gte=0"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DBPath:          DefaultDBPath(),
		ListenAddr:      "127.0.0.1:8080",
		SessionTTL:      24 * time.Hour,
		OpenAlexBaseURL: "https://api.openalex.org",
		ReferenceCap:    100,
		SearchLimit:     5,
		RequestTimeout:  10 * time.Second,
		MaxAttempts:     5,
		InitialBackoff:  time.Second,
		RateLimit:       10,
		LogLevel:        "info",
	}
}

// Environment variables that override file settings.
const (
	EnvDBPath   = "CITEGRAPH_DB"
	EnvListen   = "CITEGRAPH_LISTEN"
	EnvLogLevel = "CITEGRAPH_LOG_LEVEL"
	EnvMailto   = "OPENALEX_MAILTO"
	EnvBaseURL  = "OPENALEX_BASE_URL"
)

// LoadFromEnv applies environment overrides to cfg.
func LoadFromEnv(cfg *Config) {
	if val := os.Getenv(EnvDBPath); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv(EnvListen); val != "" {
		cfg.ListenAddr = val
	}
	if val := os.Getenv(EnvLogLevel); val != "" {
		cfg.LogLevel = strings.ToLower(val)
	}
	if val := os.Getenv(EnvMailto); val != "" {
		cfg.Mailto = val
	}
	if val := os.Getenv(EnvBaseURL); val != "" {
		cfg.OpenAlexBaseURL = val
	}
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// DefaultDBPath returns the database location under XDG_DATA_HOME,
// defaulting to ~/.local/share/citegraph/citegraph.db.
func DefaultDBPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "citegraph.db"
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, AppDir, "citegraph.db")
}
