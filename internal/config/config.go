package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Env             string        `yaml:"env"`
	ServerPort      string        `yaml:"port"`
	SessionSecret   string        `yaml:"session_secret"`
	SessionDuration time.Duration `yaml:"-"`
	UploadMaxSize   int64         `yaml:"upload_max_size"`

	// Remote REST backend
	APIBaseURL string        `yaml:"api_base_url"`
	APITimeout time.Duration `yaml:"-"`

	// Token store: "sql", "redis" or "memory"
	TokenStore     string `yaml:"token_store"`
	DatabaseType   string `yaml:"db_type"`
	DatabasePath   string `yaml:"db_path"`
	DatabaseURL    string `yaml:"database_url"`
	RedisURL       string `yaml:"redis_url"`
	MigrationsPath string `yaml:"migrations_path"`

	// Google sign-in
	GoogleClientID       string `yaml:"google_client_id"`
	GoogleClientSecret   string `yaml:"google_client_secret"`
	OAuthRedirectBaseURL string `yaml:"oauth_redirect_base_url"`

	// VerifyGrace bounds how long a guarded page waits on session
	// verification before it shows the loading page instead.
	VerifyGrace time.Duration `yaml:"-"`

	RollbarToken string `yaml:"rollbar_token"`

	// Raw duration strings for YAML unmarshaling
	SessionDurationRaw string `yaml:"session_duration"`
	APITimeoutRaw      string `yaml:"api_timeout"`
	VerifyGraceRaw     string `yaml:"verify_grace"`
}

// Load reads configuration from a .env file, an optional YAML file named by
// CONFIG_FILE and environment variables, in that order of precedence (lowest
// first), with sensible defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:             "development",
		ServerPort:      "8080",
		SessionSecret:   "change-me-in-production",
		SessionDuration: 7 * 24 * time.Hour,
		UploadMaxSize:   5 * 1024 * 1024, // 5MB
		APIBaseURL:      "http://127.0.0.1:8000/api",
		APITimeout:      15 * time.Second,
		TokenStore:      "sql",
		DatabaseType:    "sqlite",
		DatabasePath:    "./studentportal.db",
		MigrationsPath:  "./migrations",
		VerifyGrace:     3 * time.Second,
	}
}

// loadFile overlays values from a YAML file. ${VAR} references are expanded
// from the environment before parsing.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	durations := []struct {
		raw    string
		target *time.Duration
		name   string
	}{
		{c.SessionDurationRaw, &c.SessionDuration, "session_duration"},
		{c.APITimeoutRaw, &c.APITimeout, "api_timeout"},
		{c.VerifyGraceRaw, &c.VerifyGrace, "verify_grace"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", d.name, d.raw, err)
		}
		*d.target = parsed
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Env = getEnv("ENV", c.Env)
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.SessionDuration = getEnvDuration("SESSION_DURATION", c.SessionDuration)
	c.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", c.UploadMaxSize)
	c.APIBaseURL = strings.TrimRight(getEnv("API_BASE_URL", c.APIBaseURL), "/")
	c.APITimeout = getEnvDuration("API_TIMEOUT", c.APITimeout)
	c.TokenStore = getEnv("TOKEN_STORE", c.TokenStore)
	c.DatabaseType = getEnv("DB_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.MigrationsPath = getEnv("MIGRATIONS_PATH", c.MigrationsPath)
	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.OAuthRedirectBaseURL = getEnv("OAUTH_REDIRECT_BASE_URL", c.OAuthRedirectBaseURL)
	c.VerifyGrace = getEnvDuration("VERIFY_GRACE", c.VerifyGrace)
	c.RollbarToken = getEnv("ROLLBAR_TOKEN", c.RollbarToken)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}

	switch strings.ToLower(c.TokenStore) {
	case "sql":
		switch strings.ToLower(c.DatabaseType) {
		case "sqlite", "sqlite3", "":
			if c.DatabasePath == "" {
				return fmt.Errorf("db_path is required for sqlite")
			}
		case "postgres", "postgresql", "mysql":
			if c.DatabaseURL == "" {
				return fmt.Errorf("database_url is required for %s", c.DatabaseType)
			}
		default:
			return fmt.Errorf("unsupported database type: %s", c.DatabaseType)
		}
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required when token_store is redis")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported token store: %s", c.TokenStore)
	}

	if c.SessionDuration <= 0 {
		return fmt.Errorf("session_duration must be positive")
	}
	if c.VerifyGrace <= 0 {
		return fmt.Errorf("verify_grace must be positive")
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Printf("Warning: ignoring invalid duration %s=%q", key, value)
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
		log.Printf("Warning: ignoring invalid integer %s=%q", key, value)
	}
	return defaultValue
}
