package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional config file (./configs, then the
// working directory) layered under environment variables, then validates the
// result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	cfg := &Config{
		Application: ApplicationConfig{
			Env:  v.GetString("APP_ENV"),
			Name: v.GetString("APP_NAME"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Server: ServerConfig{
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			CORSOrigins:     strings.Split(v.GetString("SERVER_CORS_ORIGINS"), ","),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("DATABASE_DSN"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Matching: MatchingConfig{
			ReferenceWeight:   v.GetFloat64("MATCH_REFERENCE_WEIGHT"),
			AmountWeight:      v.GetFloat64("MATCH_AMOUNT_WEIGHT"),
			DateWeight:        v.GetFloat64("MATCH_DATE_WEIGHT"),
			NameWeight:        v.GetFloat64("MATCH_NAME_WEIGHT"),
			ExactThreshold:    v.GetFloat64("MATCH_EXACT_THRESHOLD"),
			ReviewThreshold:   v.GetFloat64("MATCH_REVIEW_THRESHOLD"),
			NameSimilarityMin: v.GetFloat64("MATCH_NAME_SIMILARITY_MIN"),
			AmountTolerance:   v.GetString("MATCH_AMOUNT_TOLERANCE"),
			MaxCandidates:     v.GetInt("MATCH_MAX_CANDIDATES"),
			DateWindowDays:    v.GetInt("MATCH_DATE_WINDOW_DAYS"),
		},
		Batch: BatchConfig{
			WorkerPoolSize: v.GetInt("BATCH_WORKER_POOL_SIZE"),
			ItemTimeout:    v.GetDuration("BATCH_ITEM_TIMEOUT"),
			RunDeadline:    v.GetDuration("BATCH_RUN_DEADLINE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "bank-reconciliation-engine")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("SERVER_CORS_ORIGINS", "http://localhost:3000")

	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("MATCH_REFERENCE_WEIGHT", 0.45)
	v.SetDefault("MATCH_AMOUNT_WEIGHT", 0.35)
	v.SetDefault("MATCH_DATE_WEIGHT", 0.10)
	v.SetDefault("MATCH_NAME_WEIGHT", 0.10)
	v.SetDefault("MATCH_EXACT_THRESHOLD", 0.90)
	v.SetDefault("MATCH_REVIEW_THRESHOLD", 0.60)
	v.SetDefault("MATCH_NAME_SIMILARITY_MIN", 0.55)
	v.SetDefault("MATCH_AMOUNT_TOLERANCE", "0.01")
	v.SetDefault("MATCH_MAX_CANDIDATES", 5)
	v.SetDefault("MATCH_DATE_WINDOW_DAYS", 90)

	v.SetDefault("BATCH_WORKER_POOL_SIZE", 8)
	v.SetDefault("BATCH_ITEM_TIMEOUT", "30s")
	v.SetDefault("BATCH_RUN_DEADLINE", "10m")
}
