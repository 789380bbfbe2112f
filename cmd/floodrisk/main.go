package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/adapter/gadm"
	httpadapter "github.com/couchcryptid/flood-risk-engine/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-risk-engine/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-engine/internal/adapter/openelevation"
	"github.com/couchcryptid/flood-risk-engine/internal/adapter/postgres"
	redisadapter "github.com/couchcryptid/flood-risk-engine/internal/adapter/redis"
	"github.com/couchcryptid/flood-risk-engine/internal/config"
	"github.com/couchcryptid/flood-risk-engine/internal/geometry"
	"github.com/couchcryptid/flood-risk-engine/internal/observability"
	"github.com/couchcryptid/flood-risk-engine/internal/reference"
	"github.com/couchcryptid/flood-risk-engine/internal/simulation"
	"github.com/couchcryptid/flood-risk-engine/internal/terrain"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ref, err := reference.Load()
	if err != nil {
		logger.Error("failed to load reference data", "error", err)
		os.Exit(1)
	}
	logger.Info("reference data loaded", "provinces", len(ref.Provinces()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	boundaries := gadm.NewClient(cfg.GADMBaseURL, cfg.GADMTimeout, logger)
	elevation := openelevation.NewClient(cfg.ElevationURL, cfg.ElevationTimeout, logger)
	resolver := geometry.NewResolver(boundaries, cfg.GADMTimeout, logger, metrics)

	// Terrain cache: in-process, optionally backed by Redis.
	ready := observability.Readiness{}
	localTerrain := terrain.NewMemoryCache()
	var terrainCache terrain.Cache = localTerrain
	redisClient := redisadapter.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if redisClient != nil {
		shared := redisadapter.NewTerrainCache(redisClient)
		terrainCache = terrain.NewTieredCache(terrainCache, shared)
		ready = append(ready, shared)
		logger.Info("redis terrain cache enabled", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	}
	prometheus.MustRegister(observability.NewCacheGauges(resolver.CachedLevels, localTerrain.Len)...)
	analyzer := terrain.NewAnalyzer(elevation, terrainCache, cfg.ElevationBatchSize, logger, metrics)

	// Recorders: Postgres history and Kafka event stream, each optional.
	var (
		recorders []simulation.Recorder
		history   httpadapter.HistoryStore
		db        *sqlx.DB
		publisher *kafkaadapter.Publisher
	)
	if cfg.DatabaseURL != "" {
		db, err = connectPostgres(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		store := postgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to create schema", "error", err)
			os.Exit(1)
		}
		recorders = append(recorders, store)
		history = store
		ready = append(ready, store)
		logger.Info("simulation history enabled")
	} else {
		logger.Info("simulation history disabled")
	}
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaResultsTopic, logger)
		recorders = append(recorders, publisher)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaResultsTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	sim := simulation.New(ref, resolver, analyzer, simulation.NewMultiRecorder(logger, metrics, recorders...), logger, metrics,
		simulation.Options{CountryCode: cfg.CountryCode, Concurrency: cfg.SimulationConcurrency})

	ready = append(ready, sim)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:       ready,
		Simulator:   sim,
		Regions:     ref,
		Boundaries:  resolver,
		CountryCode: cfg.CountryCode,
		Elevation:   openelevation.NewCachedLookup(elevation, cfg.ElevationCacheSize),
		History:     history,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("postgres close error", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// connectPostgres retries with exponential backoff so the service can start
// alongside its database.
func connectPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*sqlx.DB, error) {
	const attempts = 5
	backoff := 500 * time.Millisecond
	var err error
	for i := 1; i <= attempts; i++ {
		var db *sqlx.DB
		if db, err = postgres.Open(ctx, dsn); err == nil {
			return db, nil
		}
		logger.Warn("postgres not reachable", "attempt", i, "error", err)
		if i == attempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, 8*time.Second)
	}
	return nil, err
}
