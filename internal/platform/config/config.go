// Package config centralizes environment-driven configuration so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server process needs to wire itself.
type Config struct {
	Addr          string
	JWTSigningKey string

	PostgresDSN string
	Redis       RedisConfig
	Kafka       KafkaConfig

	ScoringURL string

	Ledger LedgerConfig
}

// RedisConfig controls the restriction-view cache client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig controls the notification delivery publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LedgerConfig holds the lifecycle timing rules and merge bounds.
type LedgerConfig struct {
	// SubmissionWindow is how long a candidate has to submit after a
	// video request (video.deadline = request time + SubmissionWindow).
	SubmissionWindow time.Duration
	// ReviewWindow is how long a company has to review a submission
	// before the company-level restriction engages.
	ReviewWindow time.Duration
	// SweepInterval is the tick period of the expiration sweep.
	SweepInterval time.Duration
	// MergeRetries bounds optimistic-concurrency retries per merge.
	MergeRetries int
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:          envOr("TALENTGATE_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ScoringURL:    os.Getenv("SCORING_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("RESTRICTION_CACHE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Topic: envOr("KAFKA_NOTIFICATION_TOPIC", "talentgate.notifications"),
		},
		Ledger: DefaultLedgerConfig(),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}

	cfg.Ledger.SubmissionWindow = envDuration("VIDEO_SUBMISSION_WINDOW", cfg.Ledger.SubmissionWindow)
	cfg.Ledger.ReviewWindow = envDuration("VIDEO_REVIEW_WINDOW", cfg.Ledger.ReviewWindow)
	cfg.Ledger.SweepInterval = envDuration("SWEEP_INTERVAL", cfg.Ledger.SweepInterval)
	cfg.Ledger.MergeRetries = envInt("LEDGER_MERGE_RETRIES", cfg.Ledger.MergeRetries)

	return cfg
}

// DefaultLedgerConfig returns the production timing defaults.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		SubmissionWindow: 7 * 24 * time.Hour,
		ReviewWindow:     7 * 24 * time.Hour,
		SweepInterval:    5 * time.Minute,
		MergeRetries:     5,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
