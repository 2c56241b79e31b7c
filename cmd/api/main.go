package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/whisperapi/internal/api"
	"github.com/nikhilbhutani/whisperapi/internal/cache"
	"github.com/nikhilbhutani/whisperapi/internal/config"
	"github.com/nikhilbhutani/whisperapi/internal/transcribe"
)

func main() {
	// Level is raised or lowered once the config is known.
	var level slog.LevelVar
	slog.SetDefault(newLogger(os.Stdout, &level))

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level.Set(parseLevel(cfg.Log.Level))

	ctx := context.Background()

	// Result cache (optional)
	var rc *cache.Cache
	if cfg.Cache.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, cache lookups will fail until it is reachable", "error", err)
		}
		rc = cache.NewCache(rdb, cfg.Cache.TTL)
		defer rc.Close()
	}

	models := transcribe.NewManager(api.ModelLoader(cfg))
	defer models.Close()

	router := api.NewRouter(cfg, models, rc)
	handler := router.Setup()

	// No write timeout: transcription of long files can take minutes.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("starting transcription server",
			"addr", cfg.Addr(),
			"backend", cfg.Whisper.Backend,
			"model", cfg.ModelID(),
			"device", cfg.Whisper.Device,
			"compute_type", cfg.Whisper.ComputeType,
			"convert_to_simplified", cfg.Whisper.ConvertToSimplified,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
