package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port         string
	SiteURL      string
	TemplatesDir string
	LogLevel     string

	// Database
	DatabaseURL string

	// Session
	SessionSecret string

	// Redis, empty disables cross-process reason invalidation
	RedisURL string

	// Stories
	DuplicateFilterHours int
	RankingInterval      time.Duration

	// Voting
	ReasonCacheSize   int
	VoteRatePerSecond float64
	VoteRateBurst     int
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		SiteURL:      getEnv("SITE_URL", "http://localhost:8080"),
		TemplatesDir: getEnv("TEMPLATES_DIR", "./web/templates"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=turtlecrossing port=5432 sslmode=disable TimeZone=UTC"),

		SessionSecret: getEnv("SESSION_SECRET", "secret_key_change_me"),

		RedisURL: getEnv("REDIS_URL", ""),

		DuplicateFilterHours: parseInt(getEnv("DUPLICATE_FILTER_HOURS", "0"), 0),
		RankingInterval:      parseDuration(getEnv("RANKING_INTERVAL", "10m"), 10*time.Minute),

		ReasonCacheSize:   parseInt(getEnv("REASON_CACHE_SIZE", "256"), 256),
		VoteRatePerSecond: parseFloat(getEnv("VOTE_RATE_PER_SECOND", "2"), 2),
		VoteRateBurst:     parseInt(getEnv("VOTE_RATE_BURST", "10"), 10),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
