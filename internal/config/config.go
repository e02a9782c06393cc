// Package config provides environment-based configuration for the
// reconciliation engine: server settings, database connection, matching
// policy knobs and batch worker sizing.
package config

import (
	"errors"
	"strings"
	"time"
)

type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Matching    MatchingConfig
	Batch       BatchConfig
}

type ApplicationConfig struct {
	Env  string
	Name string
}

type LoggingConfig struct {
	Level string
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// MatchingConfig holds the scoring policy. The weights and thresholds are
// deliberately configuration, not constants: the acceptance rule is a
// business knob, pending a canonical rule from finance.
type MatchingConfig struct {
	ReferenceWeight float64 // exact reference hit on invoice number / customer code
	AmountWeight    float64 // amount equals outstanding balance (within tolerance)
	DateWeight      float64 // transaction date inside the invoice's open window
	NameWeight      float64 // payer name similarity
	ExactThreshold  float64 // score >= this: EXACT, auto-post
	ReviewThreshold float64 // score >= this: FUZZY, auto-post flagged for review
	NameSimilarityMin float64 // name similarity below this contributes nothing
	AmountTolerance   string  // decimal string, absorbs rounding artifacts
	MaxCandidates     int
	DateWindowDays    int
}

type BatchConfig struct {
	WorkerPoolSize int
	ItemTimeout    time.Duration
	RunDeadline    time.Duration
}

func (c *Config) validate() error {
	var problems []string

	if c.Server.Port <= 0 {
		problems = append(problems, "SERVER_PORT must be greater than 0")
	}
	if c.Database.DSN == "" {
		problems = append(problems, "DATABASE_DSN is required")
	}
	if c.Batch.WorkerPoolSize <= 0 {
		problems = append(problems, "BATCH_WORKER_POOL_SIZE must be greater than 0")
	}

	m := c.Matching
	if m.ExactThreshold <= m.ReviewThreshold {
		problems = append(problems, "MATCH_EXACT_THRESHOLD must exceed MATCH_REVIEW_THRESHOLD")
	}
	if m.ExactThreshold > 1 || m.ReviewThreshold <= 0 {
		problems = append(problems, "match thresholds must lie in (0, 1]")
	}
	if m.ReferenceWeight < 0 || m.AmountWeight < 0 || m.DateWeight < 0 || m.NameWeight < 0 {
		problems = append(problems, "match weights must be non-negative")
	}
	if m.MaxCandidates <= 0 {
		problems = append(problems, "MATCH_MAX_CANDIDATES must be greater than 0")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, ", "))
	}
	return nil
}
