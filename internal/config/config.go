package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultMaxForecastOffsetHours = 6
	defaultFetchTimeout           = 45 * time.Second
)

type Config struct {
	Environment string
	LogLevel    zerolog.Level
	HTTPTimeout time.Duration
	MaxRetries  int

	// Scraping
	ForecastBaseURL string
	FetchTimeout    time.Duration
	ChromePath      string
	UseBrowser      bool

	// Ingestion
	Schedule   Schedule
	RunOnStart bool

	// Session weather
	MaxForecastOffsetHours int

	// Storage
	StoreBackend      string // "gorm" or "dynamo"
	DatabaseDriver    string // "sqlite", "postgres" or "mysql"
	DatabaseURL       string
	SpotSeedFile      string
	PageArchiveBucket string

	MetricsAddr string
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// WithFetchTimeout bounds how long a single spot's page may take to load
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.FetchTimeout = timeout
		}
	}
}

// WithForecastBaseURL overrides the forecast site root
func WithForecastBaseURL(url string) Option {
	return func(c *Config) {
		c.ForecastBaseURL = url
	}
}

// WithBrowser selects the headless browser page source
func WithBrowser(enabled bool, chromePath string) Option {
	return func(c *Config) {
		c.UseBrowser = enabled
		c.ChromePath = chromePath
	}
}

// WithScheduleHours builds the ingestion schedule from an hour-of-day window
func WithScheduleHours(start, end int) Option {
	return func(c *Config) {
		c.Schedule = NewSchedule(start, end)
	}
}

// WithRunOnStart triggers an ingestion pass as soon as the worker starts
func WithRunOnStart(enabled bool) Option {
	return func(c *Config) {
		c.RunOnStart = enabled
	}
}

// WithMaxForecastOffsetHours sets the nearest-neighbour bound for session weather
func WithMaxForecastOffsetHours(hours int) Option {
	return func(c *Config) {
		if hours > 0 {
			c.MaxForecastOffsetHours = hours
		}
	}
}

// WithDatabase selects the relational store
func WithDatabase(driver, url string) Option {
	return func(c *Config) {
		c.DatabaseDriver = driver
		c.DatabaseURL = url
	}
}

// WithStoreBackend selects between the relational and DynamoDB stores
func WithStoreBackend(backend string) Option {
	return func(c *Config) {
		c.StoreBackend = backend
	}
}

// WithSpotSeedFile points at a YAML file of spots loaded at start-up
func WithSpotSeedFile(path string) Option {
	return func(c *Config) {
		c.SpotSeedFile = path
	}
}

// WithPageArchiveBucket enables archiving raw forecast pages to S3
func WithPageArchiveBucket(bucket string) Option {
	return func(c *Config) {
		c.PageArchiveBucket = bucket
	}
}

// WithMetricsAddr sets the listen address of the worker's metrics endpoint
func WithMetricsAddr(addr string) Option {
	return func(c *Config) {
		c.MetricsAddr = addr
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:            "production",
		LogLevel:               zerolog.InfoLevel,
		HTTPTimeout:            10 * time.Second,
		MaxRetries:             3,
		ForecastBaseURL:        "https://www.surf-forecast.com",
		FetchTimeout:           defaultFetchTimeout,
		UseBrowser:             true,
		Schedule:               DefaultSchedule(),
		MaxForecastOffsetHours: defaultMaxForecastOffsetHours,
		StoreBackend:           "gorm",
		DatabaseDriver:         "sqlite",
		DatabaseURL:            "surftrack.db",
		MetricsAddr:            ":9090",
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "surftrack").Logger()
	}
}

// LoadFromEnv loads configuration from environment variables, reading a
// .env file first when one is present.
func LoadFromEnv() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	return New(
		WithEnvironment(getEnvOrDefault("ENV", "production")),
		WithLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
		WithHTTPTimeout(getDurationEnvOrDefault("HTTP_TIMEOUT", 10*time.Second)),
		WithFetchTimeout(getDurationEnvOrDefault("FETCH_TIMEOUT", defaultFetchTimeout)),
		WithForecastBaseURL(getEnvOrDefault("FORECAST_BASE_URL", "https://www.surf-forecast.com")),
		WithBrowser(getEnvBool("USE_BROWSER", true), os.Getenv("CHROME_PATH")),
		WithScheduleHours(
			getEnvInt("SCHEDULE_START_HOUR", DefaultScheduleStartHour),
			getEnvInt("SCHEDULE_END_HOUR", DefaultScheduleEndHour),
		),
		WithRunOnStart(getEnvBool("RUN_ON_START", false)),
		WithMaxForecastOffsetHours(getEnvInt("MAX_FORECAST_OFFSET_HOURS", defaultMaxForecastOffsetHours)),
		WithStoreBackend(getEnvOrDefault("STORE_BACKEND", "gorm")),
		WithDatabase(getEnvOrDefault("DB_DRIVER", "sqlite"), getEnvOrDefault("DATABASE_URL", "surftrack.db")),
		WithSpotSeedFile(os.Getenv("SPOT_SEED_FILE")),
		WithPageArchiveBucket(os.Getenv("PAGE_ARCHIVE_BUCKET")),
		WithMetricsAddr(getEnvOrDefault("METRICS_ADDR", ":9090")),
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
