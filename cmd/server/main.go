package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/config"
	"github.com/quickassist/collab-server-go/internal/database"
	"github.com/quickassist/collab-server-go/internal/editsession"
	"github.com/quickassist/collab-server-go/internal/handler"
	"github.com/quickassist/collab-server-go/internal/jobs"
	"github.com/quickassist/collab-server-go/internal/middleware"
	"github.com/quickassist/collab-server-go/internal/redis"
	"github.com/quickassist/collab-server-go/internal/registry"
	"github.com/quickassist/collab-server-go/internal/repository"
	"github.com/quickassist/collab-server-go/internal/suggest"
	"github.com/quickassist/collab-server-go/internal/sync"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sharedSessionRepo := repository.NewSharedSessionRepository(db.DB)
	syncEventRepo := repository.NewSyncEventRepository(db.DB)
	editSessionRepo := repository.NewEditSessionRepository(db.DB)
	suggestionEventRepo := repository.NewSuggestionEventRepository(db.DB)
	usageMetricRepo := repository.NewUsageMetricRepository(db.DB)

	channel := sync.NewRealtimeChannel(redisClient, syncEventRepo)
	defer channel.Close()

	registryService := registry.NewService(sharedSessionRepo, syncEventRepo)
	sessionService := editsession.NewService(editSessionRepo, usageMetricRepo)
	suggestService := suggest.NewService(
		cfg.SuggestionURL,
		time.Duration(cfg.SuggestionTimeoutMS)*time.Millisecond,
		suggest.Recorder{Events: suggestionEventRepo, Metrics: usageMetricRepo},
	)

	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	collabHandler := handler.NewCollabHandler(registryService, channel)
	eventsHandler := handler.NewEventsHandler(channel, syncEventRepo)
	sessionHandler := handler.NewSessionHandler(sessionService)
	suggestHandler := handler.NewSuggestHandler(suggestService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimitMiddleware.Handler)

		r.Route("/collab/sessions", func(r chi.Router) {
			// The SSE stream sits outside the request timeout; everything
			// else gets the normal bound.
			r.Get("/{sessionID}/events", eventsHandler.ServeHTTP)
			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
				r.Mount("/", collabHandler.Routes())
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			r.Mount("/", sessionHandler.Routes())
		})

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
			r.Post("/suggest", suggestHandler.ServeHTTP)
		})
	})

	cleanupJob := jobs.NewCleanupJob(sharedSessionRepo, syncEventRepo, suggestionEventRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
