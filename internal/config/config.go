package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string   `yaml:"port" env:"SERVER_PORT"`
		Mode            string   `yaml:"mode" env:"SERVER_MODE"`
		ReadTimeout     string   `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    string   `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout string   `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		AllowedOrigins  []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
	} `yaml:"server"`

	Storage struct {
		Driver       string `yaml:"driver" env:"STORAGE_DRIVER"`
		Seed         bool   `yaml:"seed" env:"STORAGE_SEED"`
		SeedPassword string `yaml:"seed_password" env:"STORAGE_SEED_PASSWORD"`
	} `yaml:"storage"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	Redis struct {
		Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED"`
		URL     string `yaml:"url" env:"REDIS_URL"`
	} `yaml:"redis"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Session struct {
		TTL       string `yaml:"ttl" env:"SESSION_TTL"`
		OTPLength int    `yaml:"otp_length" env:"SESSION_OTP_LENGTH"`
	} `yaml:"session"`

	Academic struct {
		TermStart string `yaml:"term_start" env:"ACADEMIC_TERM_START"`
		TermWeeks int    `yaml:"term_weeks" env:"ACADEMIC_TERM_WEEKS"`
		Timezone  string `yaml:"timezone" env:"ACADEMIC_TIMEZONE"`
	} `yaml:"academic"`

	Jobs struct {
		Enabled        bool   `yaml:"enabled" env:"JOBS_ENABLED"`
		SessionSweep   string `yaml:"session_sweep" env:"JOBS_SESSION_SWEEP"`
		StatsReconcile string `yaml:"stats_reconcile" env:"JOBS_STATS_RECONCILE"`
	} `yaml:"jobs"`

	RateLimit struct {
		Requests int    `yaml:"requests" env:"RATE_LIMIT_REQUESTS"`
		Window   string `yaml:"window" env:"RATE_LIMIT_WINDOW"`
	} `yaml:"rate_limit"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from defaults, a yaml file, a .env file and
// environment variables, in that order of precedence (last wins).
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env is a development convenience; production sets real environment variables
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.ReadTimeout = "15s"
	config.Server.WriteTimeout = "15s"
	config.Server.ShutdownTimeout = "10s"
	config.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

	config.Storage.Driver = StorageMemory
	config.Storage.Seed = true
	config.Storage.SeedPassword = "campus123"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "campuskizuna"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.Redis.Enabled = false
	config.Redis.URL = "redis://localhost:6379/0"

	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "campuskizuna.app"

	config.Session.TTL = "24h"
	config.Session.OTPLength = 6

	config.Academic.TermStart = "2025-06-02"
	config.Academic.TermWeeks = 16
	config.Academic.Timezone = "Asia/Kolkata"

	config.Jobs.Enabled = true
	config.Jobs.SessionSweep = "0 */5 * * * *"
	config.Jobs.StatsReconcile = "0 0 3 * * *"

	config.RateLimit.Requests = 120
	config.RateLimit.Window = "1m"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"JWT access token expiration": config.JWT.AccessTokenExpiration,
		"session ttl":                 config.Session.TTL,
		"rate limit window":           config.RateLimit.Window,
		"server read timeout":         config.Server.ReadTimeout,
		"server write timeout":        config.Server.WriteTimeout,
		"server shutdown timeout":     config.Server.ShutdownTimeout,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	if config.Session.OTPLength <= 0 {
		return fmt.Errorf("session otp length must be positive")
	}

	if _, ok := helpers.ParseDate(config.Academic.TermStart); !ok {
		return fmt.Errorf("academic term start must be YYYY-MM-DD, got %q", config.Academic.TermStart)
	}
	if config.Academic.TermWeeks <= 0 {
		return fmt.Errorf("academic term weeks must be positive")
	}
	if _, err := time.LoadLocation(config.Academic.Timezone); err != nil {
		return fmt.Errorf("invalid academic timezone: %w", err)
	}

	if config.Redis.Enabled && strings.TrimSpace(config.Redis.URL) == "" {
		return fmt.Errorf("redis url is required when redis is enabled")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// AccessTokenTTL returns the parsed JWT lifetime
func (c *Config) AccessTokenTTL() time.Duration {
	return helpers.ParseDuration(c.JWT.AccessTokenExpiration, 24*time.Hour)
}

// SessionTTL returns the parsed session lifetime
func (c *Config) SessionTTL() time.Duration {
	return helpers.ParseDuration(c.Session.TTL, 24*time.Hour)
}

// RateLimitWindow returns the parsed rate limit window
func (c *Config) RateLimitWindow() time.Duration {
	return helpers.ParseDuration(c.RateLimit.Window, time.Minute)
}

// Location returns the academic timezone, UTC when it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Academic.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TermStartDate returns the first day of term in the academic timezone
func (c *Config) TermStartDate() time.Time {
	d, _ := helpers.ParseDate(c.Academic.TermStart)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.Location())
}
