package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/intentlens/intentlens/internal/alert"
	"github.com/intentlens/intentlens/internal/config"
	"github.com/intentlens/intentlens/internal/enricher"
	"github.com/intentlens/intentlens/internal/handler"
	"github.com/intentlens/intentlens/internal/insights"
	"github.com/intentlens/intentlens/internal/intent"
	"github.com/intentlens/intentlens/internal/session"
	"github.com/intentlens/intentlens/internal/storage"
	"github.com/intentlens/intentlens/internal/validation"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/intelligence.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
		}
		log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		cfg = config.Default()
	}

	log.Info().Msg("Starting Intent Lens intelligence service...")

	// Redis: API key cache and rate limiting
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis, rate limiting disabled")
			rdb = nil
		} else {
			defer rdb.Close()
			log.Info().Msg("Connected to Redis")
		}
	}

	// Postgres: ingest API key store
	var db *pgxpool.Pool
	if cfg.Postgres.DSN != "" {
		db, err = pgxpool.New(context.Background(), cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		defer db.Close()
		log.Info().Msg("Connected to Postgres, API key validation enabled")
	}
	validator := validation.New(db, rdb, cfg.RateLimit.RequestsPerSecond)

	eventEnricher := enricher.New(cfg.GeoIP.DatabasePath)
	defer eventEnricher.Close()

	// ClickHouse: optional analytics archive
	var archiver *storage.Archiver
	if cfg.ClickHouse.Addr != "" {
		ch, err := storage.NewClickHouse(cfg.ClickHouse)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
		}
		defer ch.Close()
		archiver = storage.NewArchiver(ch, cfg.Archive)
		log.Info().Msg("Connected to ClickHouse, archiving enabled")
	}

	// Kafka: optional friction alerts
	alerts := alert.NewPublisher(cfg.Kafka, cfg.Alerts)

	// Analysis core
	reconstructor := session.NewReconstructor()
	classifier := insights.NewClassifier(cfg.Classifier, insights.NewHistory())

	var inferrer insights.Inferrer
	if openAI, err := intent.NewOpenAIInferrer(cfg.Intent); err != nil {
		log.Warn().Err(err).Msg("Intent inference disabled, fallback hypotheses will be used")
	} else {
		inferrer = openAI
		log.Info().Str("model", cfg.Intent.Model).Msg("Intent inferrer initialized")
	}

	generator := insights.NewGenerator(classifier, inferrer, cfg.Intent.Timeout)

	h := handler.New(reconstructor, generator, validator, eventEnricher, archiver, alerts)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(handler.CORSMiddleware)
	h.Routes(r)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: r,
	}

	go func() {
		log.Info().Int("port", cfg.Server.HTTPPort).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	archiver.Stop()
	alerts.Close()
	log.Info().Msg("Shutdown complete")
}
