package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	// DefaultJWTSecret is only acceptable outside production.
	DefaultJWTSecret = "default-secret-key-change-in-production"
)

type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string
	LogFormat   string

	// Storage
	StoreDriver  string
	MongoURI     string
	MongoDBName  string
	MongoTimeout time.Duration

	// Auth
	JWTSecret      string
	JWTExpiry      time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
	TrustProxy     bool

	// Redis (optional, enables Idempotency-Key replays)
	RedisURL       string
	RedisPassword  string
	IdempotencyTTL time.Duration

	// MQTT (optional, enables emergency alert fan-out)
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
}

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),

		StoreDriver:  getEnv("STORE_DRIVER", StoreMongo),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:  getEnv("MONGO_DB_NAME", "initinere"),
		MongoTimeout: getEnvAsDuration("MONGO_TIMEOUT", 10*time.Second),

		JWTSecret:      getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTExpiry:      getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
		AuthRateLimit:  getEnvAsInt("AUTH_RATE_LIMIT", 10),
		AuthRateWindow: getEnvAsDuration("AUTH_RATE_WINDOW", time.Minute),
		TrustProxy:     getEnvAsBool("TRUST_PROXY", false),

		RedisURL:       getEnv("REDIS_URL", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		MQTTBroker:      getEnv("MQTT_BROKER", ""),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", ""),
		MQTTUsername:    getEnv("MQTT_USERNAME", ""),
		MQTTPassword:    getEnv("MQTT_PASSWORD", ""),
		MQTTTopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "initinere/emergencies"),
	}, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
