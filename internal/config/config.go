package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	UpstreamURL string
	FeedURL     string
	JWTSecret   string

	// StaffUsers holds comma-separated "username:bcrypt-hash:role" triples.
	StaffUsers string

	CookingDefaultMinutes int
	RejectionGraceSeconds int
	TickIntervalMS        int
}

func Load() *Config {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	return &Config{
		Port:                  getEnv("PORT", "8082"),
		UpstreamURL:           getEnv("UPSTREAM_URL", "http://localhost:5000"),
		FeedURL:               getEnv("FEED_URL", "ws://localhost:5000/ws/orders"),
		JWTSecret:             getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		StaffUsers:            getEnv("STAFF_USERS", ""),
		CookingDefaultMinutes: getEnvInt("COOKING_DEFAULT_MINUTES", 15),
		RejectionGraceSeconds: getEnvInt("REJECTION_GRACE_SECONDS", 90),
		TickIntervalMS:        getEnvInt("TICK_INTERVAL_MS", 1000),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
