package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zentra/emotebank/config"
	"github.com/zentra/emotebank/internal/middleware"
	"github.com/zentra/emotebank/internal/services/emote"
	"github.com/zentra/emotebank/internal/services/popularity"
	"github.com/zentra/emotebank/internal/store"
	"github.com/zentra/emotebank/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Connect to PostgreSQL
	db, err := database.NewPostgresPool(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.Close()

	// Connect to Redis
	redisClient, err := database.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis()

	// Initialize services
	records := store.NewPostgresStore(db, cfg.Database.QueryTimeout)
	resolver := emote.NewResolver(records)
	counter := popularity.NewCounter(records)
	usageQueue := popularity.NewUsageQueue(redisClient, database.UsageQueueKey)
	flusher := popularity.NewFlusher(usageQueue, counter, cfg.Popularity.BatchSize, cfg.Popularity.FlushInterval)
	locker := popularity.NewRedisLocker(redisClient, database.KeyPrefixDecayLock)
	decay := popularity.NewDecayScheduler(counter, locker, cfg.Popularity.DecayInterval, cfg.Popularity.DecayLockTTL)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(3)
	go func() {
		defer workers.Done()
		flusher.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		decay.Run(workerCtx, cfg.Popularity.DecayOnStart)
	}()
	go func() {
		defer workers.Done()
		database.ReportPoolStats(workerCtx, db, 15*time.Second)
	}()

	// Initialize handlers
	emoteHandler := emote.NewHandler(resolver)
	popularityHandler := popularity.NewHandler(counter, usageQueue)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RecoveryMiddleware)
	r.Use(chimiddleware.RedirectSlashes)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))
		r.Use(middleware.RateLimitMiddleware(database.IncrementRateLimit, cfg.Server.RateLimitRPS))

		r.Mount("/emotes", emoteHandler.Routes())
		r.Mount("/popularity", popularityHandler.Routes())
	})

	// Create HTTP server
	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Starting emote service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Workers flush what is still queued before the pools close
	stopWorkers()
	workers.Wait()

	log.Info().Msg("Server stopped")
}
