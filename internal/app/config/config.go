package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds everything the binaries read from the environment.
type Config struct {
	DatabaseURL    string
	Port           string
	JWTSecret      string
	CrawlServerURL string

	// Timezone is the reference timezone used for same-day deduplication
	// and for every stored rank timestamp.
	Timezone *time.Location

	ExportChunkSize int
	ExportPacing    time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Port:            getenv("PORT", "8080"),
		JWTSecret:       getenv("JWT_SECRET", "your-secret-key-for-testing-only"),
		CrawlServerURL:  getenv("CRAWL_SERVER_URL", "http://localhost:5000/api/rank/bulk"),
		ExportChunkSize: 10,
		ExportPacing:    5 * time.Second,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	tzName := getenv("RANK_TIMEZONE", "Asia/Seoul")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid RANK_TIMEZONE %q: %w", tzName, err)
	}
	cfg.Timezone = loc

	if v := os.Getenv("EXPORT_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid EXPORT_CHUNK_SIZE %q", v)
		}
		cfg.ExportChunkSize = n
	}

	if v := os.Getenv("EXPORT_PACING_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid EXPORT_PACING_SECONDS %q", v)
		}
		cfg.ExportPacing = time.Duration(n) * time.Second
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
