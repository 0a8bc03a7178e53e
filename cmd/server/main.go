// Command server runs the mail revision backend: the HTTP API, the task
// queue, and the background worker pool, all in one process.
//
// Startup order: env → config → logging → tracing → database → queue →
// workers → HTTP server. Shutdown reverses it: stop accepting HTTP traffic,
// close the queue so workers drain what is buffered, wait for them, then
// flush traces.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cspark/dearai-backend/internal/config"
	httpapi "github.com/cspark/dearai-backend/internal/http"
	"github.com/cspark/dearai-backend/internal/observability"
	"github.com/cspark/dearai-backend/internal/queue"
	"github.com/cspark/dearai-backend/internal/repo"
	"github.com/cspark/dearai-backend/internal/revision"
	"github.com/cspark/dearai-backend/internal/services"
	"github.com/cspark/dearai-backend/internal/sysutil"
	"github.com/cspark/dearai-backend/internal/worker"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// @title        dear.ai backend API
// @version      1.0
// @description  Asynchronous mail revision service: submit drafts, poll for results, manage contacts and exclusion keywords.
// @BasePath     /api/v1
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	q := queue.New(cfg.Jobs.QueueSize, cfg.Jobs.MaxAttempts)

	engine := &revision.OpenAIEngine{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	}

	pool := &worker.Pool{
		DB:             db,
		Queue:          q,
		Engine:         engine,
		Workers:        cfg.Jobs.Workers,
		ProcessTimeout: cfg.Jobs.ProcessTimeout,
	}
	// Workers run on a background context so they can drain the queue during
	// shutdown; Close() is what stops them, not signal cancellation.
	pool.Start(context.Background())

	authSvc := services.NewAuthService(
		db,
		cfg.Auth.GoogleClientID,
		cfg.Auth.GoogleClientSecret,
		cfg.Auth.GoogleRedirectURL,
		[]byte(cfg.Auth.JWTSecret),
		cfg.Auth.TokenTTL,
	)

	r := gin.New()
	httpapi.RegisterRoutes(r, db, q, engine, authSvc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	// Stop feeding workers, let them drain the buffer, then wait.
	q.Close()
	pool.Wait()

	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("bye")
}
