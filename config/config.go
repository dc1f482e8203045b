package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all service configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// Storage
	StoreDriver string `yaml:"store_driver"`
	DatabaseURL string `yaml:"database_url"`

	// Analytics
	AggregateWorkers int `yaml:"aggregate_workers"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Feature flags
	EnableMetrics bool `yaml:"enable_metrics"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerAddress:    ":3000",
		Environment:      "development",
		StoreDriver:      DriverPostgres,
		AggregateWorkers: 4,
		LogLevel:         "info",
		EnableMetrics:    true,
	}
}

// Load builds configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.AggregateWorkers = getEnvInt("AGGREGATE_WORKERS", cfg.AggregateWorkers)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.AggregateWorkers < 1 {
		return fmt.Errorf("AGGREGATE_WORKERS must be at least 1, got %d", c.AggregateWorkers)
	}
	return nil
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
