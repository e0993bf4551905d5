package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port         string
	DatabasePath string
	Env          string
	UploadDir    string
	// AutosaveInterval is how often dirty case state is flushed to disk.
	AutosaveInterval time.Duration
	// FetchTimeout bounds byte-source fetches (remote attachments).
	FetchTimeout time.Duration
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by user) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabasePath = getEnv("DATABASE_PATH", "lawflow.db")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.UploadDir = getEnv("UPLOAD_DIR", "uploads")
	cfg.AutosaveInterval = time.Duration(getEnvInt("AUTOSAVE_SECONDS", 30)) * time.Second
	cfg.FetchTimeout = time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("invalid value for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}
