package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string // YAML key: "database"
	}
	Redis struct {
		Host     string
		Port     int
		Password string
		DB       int
	}
	RabbitMQ struct {
		Host     string
		Port     int
		User     string
		Password string
	}
	Lock struct {
		TTLSeconds  int // automatic lock expiry
		MaxAttempts int // acquisition races before giving up
		BaseDelayMs int // unit of the linear backoff
		KeyPrefix   string
	}
	Service struct {
		Port          int
		MaxConcurrent int
	}
	JWT struct {
		SecretKey string // YAML key: "secret_key"
	}
}

// LoadFromFile loads config from a YAML file to a Config struct, applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := parseYAML(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LockTTL returns the configured lock TTL as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Lock.TTLSeconds) * time.Second
}

// LockBaseDelay returns the configured backoff unit as a duration.
func (c *Config) LockBaseDelay() time.Duration {
	return time.Duration(c.Lock.BaseDelayMs) * time.Millisecond
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// Redis
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Lock protocol: TTL must exceed the expected critical-section duration with margin
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 30
	}
	if cfg.Lock.MaxAttempts == 0 {
		cfg.Lock.MaxAttempts = 3
	}
	if cfg.Lock.BaseDelayMs == 0 {
		cfg.Lock.BaseDelayMs = 100
	}
	if cfg.Lock.KeyPrefix == "" {
		cfg.Lock.KeyPrefix = "lock:"
	}

	// Service
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 3000
	}
	if cfg.Service.MaxConcurrent == 0 {
		cfg.Service.MaxConcurrent = 100
	}

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	// DB
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		problems = append(problems, "database.port must be in 1..65535")
	}
	if c.Database.User == "" {
		problems = append(problems, "database.user is required")
	}
	if c.Database.Password == "" {
		problems = append(problems, "database.password is required")
	}
	if c.Database.Name == "" {
		problems = append(problems, "database.name is required")
	}

	// Redis
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		problems = append(problems, "redis.port must be in 1..65535")
	}
	if c.Redis.DB < 0 {
		problems = append(problems, "redis.db must be >= 0")
	}

	// RabbitMQ
	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.RabbitMQ.User == "" {
		problems = append(problems, "rabbitmq.user is required")
	}
	if c.RabbitMQ.Password == "" {
		problems = append(problems, "rabbitmq.password is required")
	}

	// Lock
	if c.Lock.TTLSeconds < 1 {
		problems = append(problems, "lock.ttl_seconds must be >= 1")
	}
	if c.Lock.MaxAttempts < 1 {
		problems = append(problems, "lock.max_attempts must be >= 1")
	}
	if c.Lock.BaseDelayMs < 1 {
		problems = append(problems, "lock.base_delay_ms must be >= 1")
	}

	// Service
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		problems = append(problems, "service.port must be in 1..65535")
	}
	if c.Service.MaxConcurrent < 1 {
		problems = append(problems, "service.max_concurrent must be >= 1")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
