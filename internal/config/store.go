package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// StoreConfig holds storage-related configuration
type StoreConfig struct {
	// Spot registry LRU settings
	SpotCacheSize       int
	SpotCacheTTLMinutes int
	EnableSpotCache     bool

	// DynamoDB settings
	ForecastTableName string
	TideTableName     string
	MaxWriteRetries   int
}

const (
	// Default values
	defaultSpotCacheSize       = 500
	defaultSpotCacheTTLMinutes = 15
	defaultForecastTableName   = "surf-forecasts"
	defaultTideTableName       = "surf-tides"
	defaultMaxWriteRetries     = 3
)

// GetStoreConfig returns the storage configuration from environment variables or defaults
func GetStoreConfig() *StoreConfig {
	config := &StoreConfig{
		SpotCacheSize:       getEnvInt("STORE_SPOT_CACHE_SIZE", defaultSpotCacheSize),
		SpotCacheTTLMinutes: getEnvInt("STORE_SPOT_CACHE_TTL_MINUTES", defaultSpotCacheTTLMinutes),
		EnableSpotCache:     getEnvBool("STORE_ENABLE_SPOT_CACHE", true),
		ForecastTableName:   getEnvOrDefault("STORE_FORECAST_TABLE", defaultForecastTableName),
		TideTableName:       getEnvOrDefault("STORE_TIDE_TABLE", defaultTideTableName),
		MaxWriteRetries:     getEnvInt("STORE_MAX_WRITE_RETRIES", defaultMaxWriteRetries),
	}

	if config.MaxWriteRetries <= 0 {
		config.MaxWriteRetries = defaultMaxWriteRetries
	}

	log.Debug().
		Int("SpotCacheSize", config.SpotCacheSize).
		Int("SpotCacheTTLMinutes", config.SpotCacheTTLMinutes).
		Bool("EnableSpotCache", config.EnableSpotCache).
		Str("ForecastTableName", config.ForecastTableName).
		Str("TideTableName", config.TideTableName).
		Int("MaxWriteRetries", config.MaxWriteRetries).
		Msg("Store configuration loaded")

	return config
}

func (c *StoreConfig) GetSpotCacheTTL() time.Duration {
	return time.Duration(c.SpotCacheTTLMinutes) * time.Minute
}

// Helper functions to get environment variables with defaults
func getEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
