package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Store drivers
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	// Duplicate guard
	DefaultGuardTTL        = 2 * time.Minute
	DefaultGuardMaxEntries = 10000

	// Transport
	DefaultSendBuffer = 256
	AnonTokenTTL      = 72 * time.Hour
	AnonTokenIssuer   = "fluxe-service"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port string

	StoreDriver   string
	DatabaseDSN   string
	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GuardTTL   time.Duration
	SendBuffer int
	JWTSecret  string

	LogLevel    string
	LogEncoding string
}

// Load reads an optional .env file and then the environment.
// The returned bool reports whether a .env file was found.
func Load() (Config, bool) {
	envLoaded := godotenv.Load() == nil
	return FromEnv(), envLoaded
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() Config {
	return Config{
		Port: getString("PORT", "8080"),

		StoreDriver:   getString("STORE_DRIVER", StoreMemory),
		DatabaseDSN:   getString("DATABASE_DSN", "host=localhost user=user password=password dbname=fluxedb port=5432 sslmode=disable"),
		MongoURI:      getString("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getString("MONGODB_DATABASE", "fluxe"),

		RedisAddr:     getString("REDIS_ADDR", ""),
		RedisPassword: getString("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		GuardTTL:   getDuration("GUARD_TTL", DefaultGuardTTL),
		SendBuffer: getInt("CLIENT_SEND_BUFFER", DefaultSendBuffer),
		JWTSecret:  getString("JWT_SECRET", "change-me"),

		LogLevel:    getString("LOG_LEVEL", "info"),
		LogEncoding: getString("LOG_ENCODING", "json"),
	}
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
