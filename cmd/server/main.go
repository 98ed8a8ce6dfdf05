// Command server boots the issue board API.
//
// Startup order: env → config → logging → tracing → database → AI backend →
// HTTP router → background sweeps → serve until SIGINT/SIGTERM.
//
// @title        Issue Board API
// @version      1.0
// @description  Team issue tracker with kanban boards, notifications, and an AI assistant.
// @BasePath     /api/v1
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

	_ "github.com/tbourn/go-issue-board/docs"
	"github.com/tbourn/go-issue-board/internal/ai"
	"github.com/tbourn/go-issue-board/internal/config"
	httpapi "github.com/tbourn/go-issue-board/internal/http"
	"github.com/tbourn/go-issue-board/internal/observability"
	"github.com/tbourn/go-issue-board/internal/repo"
	"github.com/tbourn/go-issue-board/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	gen, err := ai.NewOpenAIGenerator(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("ai backend setup failed")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, gen, cfg)

	// Housekeeping: drop expired AI cache rows and aged usage logs.
	gateway := ai.NewGateway(db, gen)
	go sweepLoop(ctx, cfg.AI.CacheSweepInterval, "ai cache", func(c context.Context) (int64, error) {
		return gateway.SweepCache(c)
	})
	go sweepLoop(ctx, cfg.AI.CacheSweepInterval, "ai usage", func(c context.Context) (int64, error) {
		return gateway.SweepUsage(c, cfg.AI.UsageRetention)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// setupLogging applies the configured level and, in dev, a console writer.
func setupLogging(cfg config.Config) {
	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// sweepLoop runs fn on a fixed interval until ctx is cancelled.
func sweepLoop(ctx context.Context, every time.Duration, name string, fn func(context.Context) (int64, error)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := fn(ctx)
			if err != nil {
				log.Warn().Err(err).Str("job", name).Msg("sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Str("job", name).Int64("removed", n).Msg("sweep done")
			}
		}
	}
}
