package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the ingestion daemon.
const (
	DefaultJSONFile       = "/tmp/dump1090/aircraft.json"
	DefaultPollInterval   = 1 * time.Second
	DefaultSessionTimeout = 30 * time.Minute
)

// Config holds the application configuration
type Config struct {
	DBConnStr      string
	JSONFile       string
	PollInterval   time.Duration
	SessionTimeout time.Duration

	// Optional integrations, enabled when non-empty.
	RedisAddr  string
	NATSURL    string
	ArchiveDir string
}

// Load loads the configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	dbConnStr := os.Getenv("DB_CONN_STR")
	if dbConnStr == "" {
		return nil, fmt.Errorf("DB_CONN_STR environment variable is required")
	}

	jsonFile := os.Getenv("JSON_FILE")
	if jsonFile == "" {
		jsonFile = DefaultJSONFile
	}

	pollInterval, err := durationEnv("POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return nil, err
	}
	sessionTimeout, err := durationEnv("SESSION_TIMEOUT", DefaultSessionTimeout)
	if err != nil {
		return nil, err
	}

	return &Config{
		DBConnStr:      dbConnStr,
		JSONFile:       jsonFile,
		PollInterval:   pollInterval,
		SessionTimeout: sessionTimeout,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		NATSURL:        os.Getenv("NATS_URL"),
		ArchiveDir:     os.Getenv("ARCHIVE_DIR"),
	}, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, raw)
	}
	return d, nil
}
