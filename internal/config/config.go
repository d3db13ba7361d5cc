// ABOUTME: Configuration loading and parsing for ghiseu-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete ghiseu-gateway configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Tools      ToolsConfig      `yaml:"tools"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Session    SessionConfig    `yaml:"session"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds operator authentication configuration
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TokenTTLRaw string `yaml:"token_ttl"`
}

// ToolsConfig holds external tool endpoint configuration
type ToolsConfig struct {
	OCRURL         string        `yaml:"ocr_url"`
	EligibilityURL string        `yaml:"eligibility_url"`
	NotifyURL      string        `yaml:"notify_url"`
	Timeout        time.Duration `yaml:"-"`
	RetryAttempts  int           `yaml:"retry_attempts"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// SchedulingConfig holds appointment slot seeding configuration
type SchedulingConfig struct {
	SeedOnStart bool     `yaml:"seed_on_start"`
	SeedDays    int      `yaml:"seed_days"`
	Locations   []string `yaml:"locations"`
}

// SessionConfig holds conversation session configuration
type SessionConfig struct {
	MaxHistoryTurns int `yaml:"max_history_turns"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Tools.RetryAttempts < 0 {
		return fmt.Errorf("tools.retry_attempts must not be negative")
	}

	if c.Scheduling.SeedOnStart && c.Scheduling.SeedDays <= 0 {
		return fmt.Errorf("scheduling.seed_days must be positive when seeding is enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing token_ttl %q: %w", cfg.Auth.TokenTTLRaw, err)
		}
	}

	if cfg.Tools.TimeoutRaw != "" {
		cfg.Tools.Timeout, err = time.ParseDuration(cfg.Tools.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Tools.TimeoutRaw, err)
		}
	}

	return nil
}

// applyDefaults fills in values that may be omitted from the config file
func applyDefaults(cfg *Config) {
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 8 * time.Hour
	}
	if cfg.Tools.Timeout == 0 {
		cfg.Tools.Timeout = 5 * time.Second
	}
	if cfg.Tools.RetryAttempts == 0 {
		cfg.Tools.RetryAttempts = 2
	}
	if cfg.Scheduling.SeedDays == 0 {
		cfg.Scheduling.SeedDays = 7
	}
	if cfg.Scheduling.Locations == nil {
		cfg.Scheduling.Locations = []string{"Bucuresti-S1", "Ilfov-01"}
	}
	if cfg.Session.MaxHistoryTurns == 0 {
		cfg.Session.MaxHistoryTurns = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
