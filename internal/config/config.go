// Package config holds both the static, load-once process configuration
// (server/database/nats/logging) and the live, mutable Store of signal,
// score and guardrail snapshots described in spec.md §4.12 and §9.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the static, load-once process configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the static config from YAML and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSTURE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("POSTURE_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("POSTURE_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("POSTURE_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("POSTURE_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("POSTURE_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("POSTURE_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("POSTURE_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("POSTURE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Timer and persistence constants, bit-exact per spec.md §6.
const (
	PersistenceInterval     = 60 * time.Second
	DefaultDeltaClamp       = 500 * time.Millisecond
	DefaultIdleAfterAbsence = 5000 * time.Millisecond
	DefaultSleepHint        = 60000 * time.Millisecond
	DefaultResumeBoost      = 4000 * time.Millisecond
)
