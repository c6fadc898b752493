package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DataDir         string
	DockerHost      string
	JwtSecret       string
	MonitorInterval time.Duration
	TemplatesFile   string
	LogLevel        string

	OtelEnabled     bool
	OtelEndpoint    string
	OtelServiceName string
	OtelInsecure    bool
}

// Load loads configuration from environment variables
// Automatically loads .env file if present
func Load() *Config {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DataDir:         getEnv("DATA_DIR", "/var/lib/hypedesk"),
		DockerHost:      getEnv("DOCKER_HOST", ""),
		JwtSecret:       getEnv("JWT_SECRET", ""),
		MonitorInterval: getDuration("MONITOR_INTERVAL", 10*time.Second),
		TemplatesFile:   getEnv("TEMPLATES_FILE", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		OtelEnabled:     getBool("OTEL_ENABLED", false),
		OtelEndpoint:    getEnv("OTEL_ENDPOINT", "localhost:4317"),
		OtelServiceName: getEnv("OTEL_SERVICE_NAME", "hypedesk"),
		OtelInsecure:    getBool("OTEL_INSECURE", true),
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

// getDuration accepts Go duration strings or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
