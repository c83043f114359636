package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=mkitchen port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DBDriver    string // postgres | mysql
	DatabaseDSN string
	CORSOrigins string

	RedisAddress    string // empty disables the catalog cache and stock locks
	CatalogCacheTTL time.Duration

	ConsumptionMappingPath string // empty uses the embedded table

	LogLevel string
	LogFile  string
}

// Load reads the environment (and a .env file when present).
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:               getEnv("HTTP_PORT", "5000"),
		DBDriver:               strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseDSN:            getEnv("DATABASE_DSN", defaultDSN),
		CORSOrigins:            getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		RedisAddress:           getEnv("REDIS_ADDRESS", ""),
		CatalogCacheTTL:        getDuration("CATALOG_CACHE_TTL", 10*time.Minute),
		ConsumptionMappingPath: getEnv("CONSUMPTION_MAPPING_PATH", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFile:                getEnv("LOG_FILE", ""),
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "mysql" {
		logrus.Fatalf("[FATAL] DB_DRIVER must be postgres or mysql, got %q", cfg.DBDriver)
	}
	if cfg.DatabaseDSN == defaultDSN {
		logrus.Warn("DATABASE_DSN is using the default value, set your own connection string for production")
	}
	if cfg.RedisAddress == "" {
		logrus.Info("REDIS_ADDRESS not set, catalog cache and stock locks disabled")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.Warnf("%s=%q is not a duration, using %s", key, v, def)
		return def
	}
	return d
}
