package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	CountryCode string

	// Boundary and elevation providers.
	GADMBaseURL        string
	GADMTimeout        time.Duration
	ElevationURL       string
	ElevationTimeout   time.Duration
	ElevationBatchSize int
	ElevationCacheSize int // single-point lookups kept for /api/elevation

	SimulationConcurrency int

	// Optional shared terrain cache tier. Disabled when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Optional simulation history store. Disabled when DatabaseURL is empty.
	DatabaseURL string

	// Optional simulation event stream.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaResultsTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	gadmTimeout, err := parseDuration("GADM_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	elevationTimeout, err := parseDuration("ELEVATION_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	batchSize, err := parseIntInRange("ELEVATION_BATCH_SIZE", 100, 1, 100)
	if err != nil {
		return nil, err
	}
	elevationCacheSize, err := parseIntInRange("ELEVATION_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}
	concurrency, err := parseIntInRange("SIMULATION_CONCURRENCY", 1, 1, 32)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseIntInRange("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid KAFKA_ENABLED: %q", v)
		}
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CountryCode: sharedcfg.EnvOrDefault("COUNTRY_CODE", "AGO"),

		GADMBaseURL:        sharedcfg.EnvOrDefault("GADM_BASE_URL", "https://geodata.ucdavis.edu/gadm/gadm4.1/json"),
		GADMTimeout:        gadmTimeout,
		ElevationURL:       sharedcfg.EnvOrDefault("ELEVATION_URL", "https://api.open-elevation.com/api/v1/lookup"),
		ElevationTimeout:   elevationTimeout,
		ElevationBatchSize: batchSize,
		ElevationCacheSize: elevationCacheSize,

		SimulationConcurrency: concurrency,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaResultsTopic: sharedcfg.EnvOrDefault("KAFKA_RESULTS_TOPIC", "flood-simulations"),
	}

	if len(cfg.CountryCode) != 3 {
		return nil, fmt.Errorf("invalid COUNTRY_CODE %q: must be an ISO 3166-1 alpha-3 code", cfg.CountryCode)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaResultsTopic == "" {
		return nil, errors.New("KAFKA_RESULTS_TOPIC is required")
	}

	return cfg, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseIntInRange(key string, fallback, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be %d-%d", key, lo, hi)
	}
	return n, nil
}
