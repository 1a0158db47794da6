package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings for the API server.
type Config struct {
	DBPath        string
	HTTPPort      string
	UpdatesDir    string
	EnableWatcher bool
	Environment   string
}

// Load reads configuration from the environment and an optional .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		DBPath:        getenv("DB_PATH", "./service_calls.db"),
		HTTPPort:      getenv("PORT", "8080"),
		UpdatesDir:    getenv("UPDATES_DIR", "./data/new_updates"),
		EnableWatcher: getenvBool("ENABLE_WATCHER", true),
		Environment:   getenv("ENVIRONMENT", "local"),
	}

	log.Printf("config: db=%s port=%s updates_dir=%s watcher=%t env=%s",
		cfg.DBPath, cfg.HTTPPort, cfg.UpdatesDir, cfg.EnableWatcher, cfg.Environment)
	return cfg
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
