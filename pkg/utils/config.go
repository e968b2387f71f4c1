package utils

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Allocation AllocationConfig
	Query      QueryConfig
	Pricing    PricingConfig
}

type AppConfig struct {
	Name          string
	Port          string
	Debug         bool
	LogPath       string
	StorageDriver string // "postgres" or "memory"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
	Migrate  bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type AllocationConfig struct {
	Bucket      string // bucket approved bookings are moved into
	MaxAttempts int
	LockTimeout time.Duration
	Backoff     time.Duration
}

type QueryConfig struct {
	CacheTTL time.Duration
}

type PricingConfig struct {
	HourlyRates map[string]float64
}

// LoadConfig reads .env from the working directory (if present) and the environment.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(".env")
}

// LoadConfigFrom reads the given env file (if present) and the environment.
// Environment variables win over the file.
func LoadConfigFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	v.SetDefault("APP_NAME", "hospital-booking")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("STORAGE_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUERY_CACHE_TTL", "5s")
	v.SetDefault("ALLOCATION_BUCKET", "occupied")
	v.SetDefault("ALLOCATION_MAX_ATTEMPTS", 3)
	v.SetDefault("ALLOCATION_LOCK_TIMEOUT", "2s")
	v.SetDefault("ALLOCATION_BACKOFF", "20ms")
	v.SetDefault("PRICING_RATE_BEDS", 0)
	v.SetDefault("PRICING_RATE_ICU", 0)
	v.SetDefault("PRICING_RATE_OPERATIONTHEATRES", 0)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, err
		}
	}

	config := &Config{
		App: AppConfig{
			Name:          v.GetString("APP_NAME"),
			Port:          v.GetString("PORT"),
			Debug:         v.GetBool("DEBUG"),
			LogPath:       v.GetString("LOG_PATH"),
			StorageDriver: strings.ToLower(v.GetString("STORAGE_DRIVER")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASS"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
			Migrate:  v.GetBool("DB_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Allocation: AllocationConfig{
			Bucket:      strings.ToLower(v.GetString("ALLOCATION_BUCKET")),
			MaxAttempts: v.GetInt("ALLOCATION_MAX_ATTEMPTS"),
			LockTimeout: v.GetDuration("ALLOCATION_LOCK_TIMEOUT"),
			Backoff:     v.GetDuration("ALLOCATION_BACKOFF"),
		},
		Query: QueryConfig{
			CacheTTL: v.GetDuration("QUERY_CACHE_TTL"),
		},
		Pricing: PricingConfig{
			HourlyRates: map[string]float64{
				"beds":              v.GetFloat64("PRICING_RATE_BEDS"),
				"icu":               v.GetFloat64("PRICING_RATE_ICU"),
				"operationTheatres": v.GetFloat64("PRICING_RATE_OPERATIONTHEATRES"),
			},
		},
	}

	if config.Allocation.MaxAttempts < 1 {
		config.Allocation.MaxAttempts = 1
	}

	return config, nil
}
