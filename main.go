// Package main provides the entry point for the readlater service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/readlater/readlater/internal/config"
	"github.com/readlater/readlater/internal/mailer"
	"github.com/readlater/readlater/internal/metadata"
	"github.com/readlater/readlater/internal/notifier"
	"github.com/readlater/readlater/internal/scheduler"
	"github.com/readlater/readlater/internal/server"
	"github.com/readlater/readlater/internal/storage"
	"github.com/redis/go-redis/v9"
)

const (
	notifyTask      = "notify"
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	dryRun := flag.Bool("dry-run", false, "Log emails instead of sending them")
	notifyNow := flag.Bool("notify-now", false, "Send one suggestion and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if !*dryRun {
		if err := cfg.ValidateMail(); err != nil {
			log.Fatalf("%v (or use --dry-run)", err)
		}
	}

	// Initialize services
	backend, closeBackend, err := newBackend(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer closeBackend()

	store := storage.NewStore(backend)
	fetcher := metadata.NewFetcherWithLogger(time.Duration(cfg.Metadata.TimeoutSeconds)*time.Second, logger)

	var sender mailer.Sender
	if *dryRun {
		sender = mailer.NewLogSender(logger)
	} else {
		sender = mailer.NewResendSenderWithLogger(cfg.Mail.APIKey, logger)
	}

	n := notifier.New(store, fetcher, sender, notifier.Config{
		From:        cfg.Mail.From,
		To:          cfg.Mail.To,
		FinishedURL: cfg.FinishedURL(),
	})

	sched, err := scheduler.New(scheduler.Config{
		Timezone:   cfg.Schedule.Timezone,
		RunOnStart: cfg.Schedule.RunOnStart,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := sched.Add(notifyTask, cfg.Schedule.Cron, notifyFunc(n)); err != nil {
		log.Fatalf("Failed to schedule notifications: %v", err)
	}

	if *notifyNow {
		if err := sched.Run(context.Background(), notifyTask); err != nil {
			log.Fatalf("Notification failed: %v", err)
		}
		log.Println("Done!")
		return
	}

	if err := run(cfg, store, sched, logger); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func run(cfg *config.Config, store *storage.Store, sched *scheduler.Scheduler, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Config{
		Addr:     cfg.Server.Addr,
		BasePath: cfg.Server.BasePath,
	}, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Error("Scheduler shutdown failed", "error", err)
	}

	return serveErr
}

// notifyFunc adapts the notifier to a scheduler task.
func notifyFunc(n *notifier.Notifier) scheduler.Task {
	return func(ctx context.Context) (slog.LogValuer, error) {
		outcome, err := n.Notify(ctx)

		var storageErr *storage.StorageError
		var deliveryErr *mailer.DeliveryError
		switch {
		case errors.As(err, &storageErr):
			return nil, fmt.Errorf("skipping scheduled send: %w", err)
		case errors.As(err, &deliveryErr):
			return outcome, fmt.Errorf("not retrying: %w", err)
		case err != nil:
			return nil, err
		}
		return outcome, nil
	}
}

func newBackend(cfg config.StorageConfig) (storage.Backend, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryStore(nil), func() {}, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return storage.NewRedisStore(client, cfg.RedisKey), func() { _ = client.Close() }, nil
	default:
		return storage.NewJSONStore(cfg.Path), func() {}, nil
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
