package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	SessionTTL         time.Duration
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	MessageRatePerSec  float64
	MessageRateBurst   int

	// Brain (language-model backed planner)
	BrainURL     string
	BrainAPIKey  string
	BrainModel   string
	BrainTimeout time.Duration

	// Outbound call dispatch
	CallNowURL    string
	CallNowAPIKey string
	CallDevToken  string
	CallSource    string

	// Shared secret the call provider presents on status callbacks.
	CallWebhookToken string

	// Place details lookup (optional)
	PlacesURL    string
	PlacesAPIKey string

	// Turn engine
	ReferenceTimezone   string
	MaxToolRounds       int
	TurnTimeout         time.Duration
	KnownBusinessesFile string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real environment variables
// take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MessageRatePerSec:  getEnvAsFloat("MESSAGE_RATE_PER_SEC", 2),
		MessageRateBurst:   getEnvAsInt("MESSAGE_RATE_BURST", 5),

		BrainURL:     getEnv("BRAIN_URL", ""),
		BrainAPIKey:  getEnv("BRAIN_API_KEY", ""),
		BrainModel:   getEnv("BRAIN_MODEL", ""),
		BrainTimeout: getEnvAsDuration("BRAIN_TIMEOUT", 45*time.Second),

		CallNowURL:    getEnv("CALL_NOW_URL", ""),
		CallNowAPIKey: getEnv("CALL_NOW_API_KEY", ""),
		CallDevToken:  getEnv("CALL_DEV_TOKEN", ""),
		CallSource:    getEnv("CALL_SOURCE", "concierge"),

		CallWebhookToken: getEnv("CALL_WEBHOOK_TOKEN", ""),

		PlacesURL:    getEnv("PLACES_URL", ""),
		PlacesAPIKey: getEnv("PLACES_API_KEY", ""),

		ReferenceTimezone:   getEnv("REFERENCE_TIMEZONE", "America/New_York"),
		MaxToolRounds:       getEnvAsInt("MAX_TOOL_ROUNDS", 6),
		TurnTimeout:         getEnvAsDuration("TURN_TIMEOUT", 2*time.Minute),
		KnownBusinessesFile: getEnv("KNOWN_BUSINESSES_FILE", ""),
	}
}

// Validate reports the settings the API server cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.BrainURL) == "" {
		missing = append(missing, "BRAIN_URL")
	}
	if strings.TrimSpace(c.CallNowURL) == "" {
		missing = append(missing, "CALL_NOW_URL")
	}
	if _, err := time.LoadLocation(c.ReferenceTimezone); err != nil {
		missing = append(missing, "REFERENCE_TIMEZONE (invalid: "+c.ReferenceTimezone+")")
	}
	if len(missing) > 0 {
		return errors.New("config: missing or invalid " + strings.Join(missing, ", "))
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
