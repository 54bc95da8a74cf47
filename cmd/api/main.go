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

	"github.com/joho/godotenv"

	"github.com/humon/server/internal/auth"
	"github.com/humon/server/internal/config"
	"github.com/humon/server/internal/db"
	"github.com/humon/server/internal/events"
	httphandler "github.com/humon/server/internal/http"
	"github.com/humon/server/internal/http/handlers"
	"github.com/humon/server/internal/lib/logger/sl"
	"github.com/humon/server/internal/metrics"
	"github.com/humon/server/internal/middleware"
	"github.com/humon/server/internal/repo"
)

func main() {
	// Env vars already set take precedence over .env
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", sl.Err(err))
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	log.Info("starting humon api", slog.String("env", cfg.Env), slog.String("port", cfg.Port))

	ctx := context.Background()

	database, err := db.Open(ctx, log, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open database", sl.Err(err))
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database.DB); err != nil {
		log.Error("failed to run migrations", sl.Err(err))
		os.Exit(1)
	}

	m := metrics.New()

	userRepo := repo.NewUserRepo(database)
	eventRepo := repo.NewEventRepo(database)
	attendanceRepo := repo.NewAttendanceRepo(database)

	authService := auth.NewAuthService(log, userRepo, m, cfg.AppSecret)
	eventService := events.NewService(log, eventRepo, attendanceRepo, m)

	issueLimiter := middleware.NewRateLimiter(cfg.IssueRateWindow, cfg.IssueRateLimit)
	defer issueLimiter.Stop()

	router := httphandler.NewRouter(httphandler.Deps{
		Log:           log,
		Metrics:       m,
		Authenticator: authService,
		IssueLimiter:  issueLimiter,
		Users:         handlers.NewUserHandler(log, authService),
		Events:        handlers.NewEventHandler(log, eventService),
		Health:        handlers.NewHealthHandler(log, database),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", sl.Err(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sign := <-quit

	log.Info("shutting down server", slog.String("signal", sign.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", sl.Err(err))
		return
	}

	log.Info("server stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case config.EnvDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}
