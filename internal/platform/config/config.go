package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL      string
	IsProduction     bool
	EnableDBCheck    bool
	SyncConcurrency  int           // Max accounts reconciled in parallel per company sweep
	SyncEventTimeout time.Duration // Upper bound for a single source-event lookup
	MigrationsPath   string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("SYNC_CONCURRENCY", 8)
	viper.SetDefault("SYNC_EVENT_TIMEOUT", "10s")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")

	cfg.SyncConcurrency = viper.GetInt("SYNC_CONCURRENCY")
	if cfg.SyncConcurrency <= 0 {
		cfg.SyncConcurrency = 8
		log.Printf("Warning: invalid SYNC_CONCURRENCY, defaulting to %d\n", cfg.SyncConcurrency)
	}

	timeoutStr := viper.GetString("SYNC_EVENT_TIMEOUT")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		timeout = 10 * time.Second
		if timeoutStr != "" {
			log.Printf("Warning: invalid SYNC_EVENT_TIMEOUT ('%s'), defaulting to %s\n", timeoutStr, timeout)
		}
	}
	cfg.SyncEventTimeout = timeout

	return cfg, nil
}
