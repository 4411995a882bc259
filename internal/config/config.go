// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Clock sources for CLOCK_SOURCE.
const (
	ClockSystem = "system"
	ClockChain  = "chain"
)

// Config holds all app configuration
type Config struct {
	// Server
	HTTPAddr string

	// Vesting program the addresses are derived under (base58)
	ProgramID string

	// Storage
	UseMemory     bool
	PostgresDSN   string
	ClickHouseDSN string

	// Redis pool cache, disabled when RedisAddr is empty
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PoolCacheTTL  time.Duration

	// Kafka event publisher, disabled when KafkaBrokers is empty
	KafkaBrokers []string
	KafkaTopic   string

	// Logging
	LogLevel    string
	Environment string

	// Jobs and fan-out
	SnapshotCron    string
	EventBufferSize int

	// Solana
	SolanaRPCEndpoint string
	ClockSource       string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*Config, error) {
	// godotenv.Load does not override variables that are already set.
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	var err error
	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		ProgramID:         getEnv("PROGRAM_ID", ""),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		ClickHouseDSN:     os.Getenv("CLICKHOUSE_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:      getEnvAsSlice("KAFKA_BROKERS", ","),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "vesting-events"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Environment:       strings.ToLower(getEnv("ENVIRONMENT", "development")),
		SnapshotCron:      getEnv("SNAPSHOT_CRON", "*/15 * * * *"),
		SolanaRPCEndpoint: os.Getenv("SOLANA_RPC_ENDPOINT"),
		ClockSource:       strings.ToLower(getEnv("CLOCK_SOURCE", ClockSystem)),
	}

	if cfg.UseMemory, err = getEnvAsBool("USE_MEMORY", false); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvAsInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.EventBufferSize, err = getEnvAsInt("EVENT_BUFFER_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.PoolCacheTTL, err = getEnvAsDuration("POOL_CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are consistent.
func (c *Config) Validate() error {
	if !c.UseMemory && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is not set (set USE_MEMORY=true for in-memory storage)")
	}
	switch c.ClockSource {
	case ClockSystem:
	case ClockChain:
		if c.SolanaRPCEndpoint == "" {
			return fmt.Errorf("CLOCK_SOURCE=chain requires SOLANA_RPC_ENDPOINT")
		}
	default:
		return fmt.Errorf("invalid CLOCK_SOURCE %q: want %q or %q", c.ClockSource, ClockSystem, ClockChain)
	}
	if c.EventBufferSize <= 0 {
		return fmt.Errorf("EVENT_BUFFER_SIZE must be positive, got %d", c.EventBufferSize)
	}
	return nil
}

// Helper functions for parsing environment variables
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultVal bool) (bool, error) {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}

func getEnvAsDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal, nil
	}
	val, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return val, nil
}

func getEnvAsSlice(key, sep string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valStr, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
