package config

// Package config loads process-wide settings from the environment once at
// startup. Nothing else in the program reads the environment.

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Addr       string // listen address, e.g. ":8080"
	MongoURI   string
	JWTSecret  []byte
	TokenTTL   time.Duration
	UploadDir  string
	BcryptCost int
}

// Load reads configuration from the environment. A missing JWT secret is a
// hard error: tokens signed with an empty key would verify trivially.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:       getEnv("CHIRPNET_ADDR", ":8080"),
		MongoURI:   getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		UploadDir:  getEnv("UPLOAD_DIR", "uploads"),
		BcryptCost: 10,
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWTSecret = []byte(secret)

	ttl := getEnv("TOKEN_TTL", "1h")
	d, err := time.ParseDuration(ttl)
	if err != nil || d <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL %q", ttl)
	}
	cfg.TokenTTL = d

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
