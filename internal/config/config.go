// Package config provides configuration for the switchboard.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the switchboard configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Media server settings
	MediaURL       string
	MediaAPIKey    string
	MediaAPISecret string

	// Credential settings
	TokenTTL time.Duration

	// Archive database (empty disables the archive)
	ArchiveDSN string

	// Engine settings
	EngineURL     string
	EngineAPIKey  string
	EngineModel   string
	EngineTimeout time.Duration

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:       getEnvInt("HTTP_PORT", 8000),
		MediaURL:       getEnv("MEDIA_URL", "wss://your-server.livekit.cloud"),
		MediaAPIKey:    getEnv("MEDIA_API_KEY", ""),
		MediaAPISecret: getEnv("MEDIA_API_SECRET", ""),
		TokenTTL:       time.Duration(getEnvInt("TOKEN_TTL_MS", 3600000)) * time.Millisecond,
		ArchiveDSN:     getEnv("ARCHIVE_DSN", "file:switchboard.db?cache=shared&mode=rwc"),
		EngineURL:      getEnv("ENGINE_URL", "http://localhost:4000"),
		EngineAPIKey:   getEnv("ENGINE_API_KEY", ""),
		EngineModel:    getEnv("ENGINE_MODEL", "gemini-2.0-flash-exp"),
		EngineTimeout:  time.Duration(getEnvInt("ENGINE_TIMEOUT_MS", 60000)) * time.Millisecond,
		PingInterval:   time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:   time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:    time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize: int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// Validate returns the list of configuration problems that prevent the
// switchboard from issuing credentials. An empty list means the config
// is usable.
func (c *Config) Validate() []string {
	var errs []string
	if c.MediaAPIKey == "" || c.MediaAPISecret == "" {
		errs = append(errs, "missing media server credentials (MEDIA_API_KEY, MEDIA_API_SECRET)")
	}
	return errs
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
