package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/guildgate/guildgate-bot/internal/bot"
	"github.com/guildgate/guildgate-bot/internal/health"
	"github.com/guildgate/guildgate-bot/internal/i18n"
	"github.com/guildgate/guildgate-bot/internal/lifecycle"
	"github.com/guildgate/guildgate-bot/internal/ratelimit"
	"github.com/guildgate/guildgate-bot/internal/securebox"
	"github.com/guildgate/guildgate-bot/internal/storage"
	"github.com/guildgate/guildgate-bot/internal/webapp"
	"github.com/guildgate/guildgate-bot/pkg/config"
	"github.com/guildgate/guildgate-bot/pkg/logger"
	"github.com/guildgate/guildgate-bot/pkg/metrics"
	pkgredis "github.com/guildgate/guildgate-bot/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.AppEnv,
		}); err != nil {
			return fmt.Errorf("initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log := logger.New(logger.Options{
		Level:         cfg.Log.Level,
		File:          cfg.Log.File,
		MaxSizeMB:     cfg.Log.MaxSizeMB,
		MaxBackups:    cfg.Log.MaxBackups,
		MaxAgeDays:    cfg.Log.MaxAgeDays,
		SentryEnabled: cfg.Sentry.Enabled,
	})
	slog.SetDefault(log)

	log.Info("starting guild gate bot",
		slog.String("env", cfg.AppEnv),
		slog.String("storage_path", cfg.Storage.Path),
	)

	secret, err := cfg.SecretKey()
	if err != nil {
		return err
	}

	cipher, err := securebox.New(secret)
	if err != nil {
		return fmt.Errorf("initialize cipher: %w", err)
	}

	store := storage.New(cfg.Storage.Path, cipher, log)
	if err := store.Load(); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	checker := health.NewChecker(log)
	checker.AddCheck("snapshot", health.NewSnapshotChecker(cfg.Storage.Path, store.LastSaveError))

	gate, redisClient, err := buildGate(ctx, cfg, log)
	if err != nil {
		return err
	}
	shutdown := lifecycle.NewShutdown(log)

	if redisClient != nil {
		checker.AddCheck("redis", health.NewRedisChecker(redisClient))
		shutdown.Register("rate_limiter_redis", func(context.Context) error {
			return redisClient.Close()
		})

		cleaner := ratelimit.NewCleaner(redisClient.Client, log, time.Minute)
		go cleaner.Run(ctx)
	}

	i18nM, err := i18n.Load(cfg.Bot.DefaultLang)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	tgBot, err := bot.New(cfg, store, gate, i18nM, log)
	if err != nil {
		return fmt.Errorf("initialize bot: %w", err)
	}
	checker.AddCheck("telegram", health.NewTelegramChecker(tgBot.Telebot()))

	collector := metrics.NewStoreCollector(store)
	go collector.Run(ctx)

	srv := webapp.NewServer(cfg.Webapp, store, checker, log)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(ctx); err != nil {
			log.Error("http facade stopped", slog.Any("error", err))
		}
	}()

	go func() {
		defer wg.Done()
		tgBot.Start()
	}()

	shutdown.Register("telegram", func(context.Context) error {
		tgBot.Stop()
		return nil
	})

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown hooks reported errors", slog.Any("error", err))
	}
	wg.Wait()

	if err := store.Save(); err != nil {
		log.Error("final snapshot save failed", slog.Any("error", err))
		return err
	}

	log.Info("guild gate bot stopped")
	return nil
}

func buildGate(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ratelimit.Gate, *pkgredis.Client, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil, nil
	}

	if cfg.RateLimit.Backend == "redis" {
		client, err := pkgredis.New(ctx, pkgredis.Config{Addr: cfg.RateLimit.RedisAddr})
		if err != nil {
			return nil, nil, fmt.Errorf("connect rate limiter redis: %w", err)
		}

		limiter := ratelimit.NewRedisLimiter(client.Client, log)
		return ratelimit.NewGate(limiter, cfg.RateLimit, log), client, nil
	}

	limiter := ratelimit.NewMemoryLimiter(log)
	go limiter.Janitor(ctx, time.Minute, 10*time.Minute)
	return ratelimit.NewGate(limiter, cfg.RateLimit, log), nil, nil
}
