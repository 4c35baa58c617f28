package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Environment string
	Server      struct {
		Port         string
		RateLimitRPS int
	}
	Database struct {
		URL          string
		QueryTimeout time.Duration
	}
	Redis struct {
		URL string
	}
	Popularity struct {
		FlushInterval time.Duration
		BatchSize     int
		DecayInterval time.Duration
		DecayLockTTL  time.Duration
		DecayOnStart  bool
	}
}

var AppConfig *Config

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{}

	cfg.Environment = getEnv("APP_ENV", "development")

	// Server
	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Server.RateLimitRPS = getEnvInt("RATE_LIMIT_RPS", 50)

	// Database
	postgresUser := getEnv("POSTGRES_USER", "emotes")
	postgresPass := getEnv("POSTGRES_PASSWORD", "emotes")
	postgresHost := getEnv("POSTGRES_HOST", "localhost")
	postgresPort := getEnv("POSTGRES_PORT", "5432")
	postgresDB := getEnv("POSTGRES_DB", "emotes")
	postgresSSL := getEnv("POSTGRES_SSLMODE", "disable")
	cfg.Database.URL = getEnv("DATABASE_URL", "postgres://"+postgresUser+":"+postgresPass+"@"+postgresHost+":"+postgresPort+"/"+postgresDB+"?sslmode="+postgresSSL)
	cfg.Database.QueryTimeout = getEnvDuration("DATABASE_QUERY_TIMEOUT", 3*time.Second)

	// Redis
	redisHost := getEnv("REDIS_HOST", "localhost")
	redisPort := getEnv("REDIS_PORT", "6379")
	cfg.Redis.URL = getEnv("REDIS_URL", "redis://"+redisHost+":"+redisPort)

	// Popularity
	cfg.Popularity.FlushInterval = getEnvInterval("POPULARITY_FLUSH_INTERVAL", 5*time.Second)
	cfg.Popularity.BatchSize = getEnvInt("POPULARITY_BATCH_SIZE", 500)
	cfg.Popularity.DecayInterval = getEnvInterval("POPULARITY_DECAY_INTERVAL", 24*time.Hour)
	cfg.Popularity.DecayLockTTL = getEnvInterval("POPULARITY_DECAY_LOCK_TTL", 10*time.Minute)
	cfg.Popularity.DecayOnStart = getEnvBool("POPULARITY_DECAY_ON_START", false)

	AppConfig = cfg
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvInterval is getEnvDuration for tickers and TTLs, which need a
// positive value.
func getEnvInterval(key string, defaultValue time.Duration) time.Duration {
	if d := getEnvDuration(key, defaultValue); d > 0 {
		return d
	}
	return defaultValue
}
