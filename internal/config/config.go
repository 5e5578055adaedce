package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries process-wide settings loaded once at startup.
type Config struct {
	HTTPAddr    string
	PostgresDSN string

	AuthSecret string
	TokenTTL   time.Duration

	// BaseURL is the externally visible origin used when building tracking
	// URLs embedded into printed QR labels.
	BaseURL string

	CORSOrigins []string

	AdminUser     string
	AdminPassword string

	RateBurst  int
	RatePerSec int
}

// FromEnv reads configuration from environment variables, applying defaults
// suitable for local development.
func FromEnv() Config {
	addr := os.Getenv("MEAMS_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	base := strings.TrimRight(os.Getenv("MEAMS_BASE_URL"), "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	return Config{
		HTTPAddr:      addr,
		PostgresDSN:   os.Getenv("MEAMS_PG_DSN"),
		AuthSecret:    os.Getenv("MEAMS_AUTH_SECRET"),
		TokenTTL:      envDuration("MEAMS_TOKEN_TTL", 30*time.Minute),
		BaseURL:       base,
		CORSOrigins:   envList("MEAMS_CORS_ORIGINS"),
		AdminUser:     os.Getenv("MEAMS_ADMIN_USER"),
		AdminPassword: os.Getenv("MEAMS_ADMIN_PASSWORD"),
		RateBurst:     envInt("MEAMS_RATE_BURST", 20),
		RatePerSec:    envInt("MEAMS_RATE_PER_SEC", 10),
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
