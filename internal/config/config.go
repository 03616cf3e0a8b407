package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds client configuration
type Config struct {
	APIBaseURL   string
	LogLevel     string
	LogFormat    string
	HTTPTimeout  time.Duration
	StateDir     string
	SessionStore string
	RedisAddr    string
	RedisPass    string
	RedisTLS     bool
	PreviewAddr  string
	PreviewGrace time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		APIBaseURL:   strings.TrimRight(getEnv("MEDVAULT_API_URL", "http://127.0.0.1:8000"), "/"),
		LogLevel:     getEnv("MEDVAULT_LOG_LEVEL", "info"),
		LogFormat:    getEnv("MEDVAULT_LOG_FORMAT", "text"),
		HTTPTimeout:  getEnvAsDuration("MEDVAULT_HTTP_TIMEOUT", 30*time.Second),
		StateDir:     getEnv("MEDVAULT_STATE_DIR", defaultStateDir()),
		SessionStore: strings.ToLower(getEnv("MEDVAULT_SESSION_STORE", "file")),
		RedisAddr:    getEnv("MEDVAULT_REDIS_ADDR", ""),
		RedisPass:    getEnv("MEDVAULT_REDIS_PASSWORD", ""),
		RedisTLS:     getEnvAsBool("MEDVAULT_REDIS_TLS", false),
		PreviewAddr:  getEnv("MEDVAULT_PREVIEW_ADDR", "127.0.0.1:0"),
		PreviewGrace: getEnvAsDuration("MEDVAULT_PREVIEW_GRACE", 60*time.Second),
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "medvault")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".medvault")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
