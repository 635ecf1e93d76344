package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/base-14/examples/go/parking-lot/internal/parking"
)

const (
	ModeCLI    = "cli"
	ModeServer = "server"
	ModeBoth   = "both"
)

type Config struct {
	Mode        string `toml:"mode"`
	Port        string `toml:"port"`
	Environment string `toml:"environment"`

	// InitialCapacity creates the lot at startup when positive.
	InitialCapacity int `toml:"initial_capacity"`

	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	OTelServiceName string `toml:"otel_service_name"`
	OTelEndpoint    string `toml:"otel_endpoint"`
}

func defaults() *Config {
	return &Config{
		Mode:            ModeCLI,
		Port:            "8080",
		Environment:     "development",
		ShutdownTimeout: 10 * time.Second,
		OTelServiceName: "parking-lot-service",
		OTelEndpoint:    "http://localhost:4318",
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (or PARKING_LOT_CONFIG when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("PARKING_LOT_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.Mode = getEnv("PARKING_LOT_MODE", cfg.Mode)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.OTelServiceName = getEnv("OTEL_SERVICE_NAME", cfg.OTelServiceName)
	cfg.OTelEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)

	if v, ok := os.LookupEnv("PARKING_LOT_CAPACITY"); ok {
		capacity, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PARKING_LOT_CAPACITY: %w", err)
		}
		cfg.InitialCapacity = capacity
	}

	if v, ok := os.LookupEnv("SHUTDOWN_TIMEOUT"); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeCLI, ModeServer, ModeBoth:
	default:
		return fmt.Errorf("invalid mode %q: must be cli, server, or both", c.Mode)
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.InitialCapacity < 0 || c.InitialCapacity > parking.MaxCapacity {
		return fmt.Errorf("initial capacity must be between 0 and %d, got %d", parking.MaxCapacity, c.InitialCapacity)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
