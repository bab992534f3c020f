package config

import (
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr = "0.0.0.0:8080"
	defaultWALPath  = "data/wal.jsonl"
)

// Config holds process configuration. Everything comes from the
// environment; a .env file in the working directory is loaded first when
// present.
type Config struct {
	HTTPAddr string
	WALPath  string
}

// Load reads configuration from the environment with defaults.
func Load() Config {
	// Best effort; running without a .env file is the normal case.
	_ = godotenv.Load()

	return Config{
		HTTPAddr: getEnv("ENGINE_HTTP_ADDR", defaultHTTPAddr),
		WALPath:  getEnv("ENGINE_WAL_PATH", defaultWALPath),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
