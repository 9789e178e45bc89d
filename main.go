package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/lumi/internal/ai"
	"github.com/example/lumi/internal/bot"
	"github.com/example/lumi/internal/config"
	"github.com/example/lumi/internal/database"
	"github.com/example/lumi/internal/dictionary"
	"github.com/example/lumi/internal/excel"
	"github.com/example/lumi/internal/kvstore"
	"github.com/example/lumi/internal/learning"
	"github.com/example/lumi/internal/logger"
	"github.com/example/lumi/internal/scheduler"
	sr "github.com/example/lumi/internal/spaced_repetition"
	"github.com/example/lumi/internal/storage"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Init()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("bot stopped with error", zap.Error(err))
	}
	logg.Info("bot stopped successfully")
}

func run(cfg *config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Warn("failed to close storage", zap.Error(err))
		}
	}()
	logg.Info("storage ready", zap.String("backend", cfg.Storage.Backend))

	review, err := sr.New(sr.Config{
		DefaultRecallStrength: cfg.Review.DefaultRecallStrength,
		MinRecallStrength:     cfg.Review.MinRecallStrength,
		MaxIntervalDays:       cfg.Review.MaxIntervalDays,
		MasteryStreak:         cfg.Review.MasteryStreak,
		Rounding:              sr.Rounding(cfg.Review.Rounding),
	})
	if err != nil {
		return fmt.Errorf("invalid review settings: %w", err)
	}

	svc := learning.NewService(store, review, learning.Config{
		PromotionThreshold: cfg.Learning.PromotionThreshold,
		MaxRetries:         cfg.Learning.MaxRetries,
		DefaultSourceLang:  cfg.Learning.SourceLang,
		DefaultTargetLang:  cfg.Learning.TargetLang,
		DefaultHour:        cfg.Learning.NotificationHour,
		DefaultSessionSize: cfg.Learning.ItemsPerSession,
		QuizQuestions:      cfg.Learning.QuizQuestions,
	}, logg.Named("learning"))

	cache, err := openCache(ctx, cfg)
	if err != nil {
		return err
	}
	if c, ok := cache.(io.Closer); ok {
		defer c.Close()
	}

	translator := ai.New(ai.Config{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	}, cache, logg.Named("ai"))
	if cfg.AI.APIKey == "" {
		logg.Warn("no AI API key configured, translation is disabled and chat uses canned replies")
	}

	b, err := bot.New(bot.Config{
		Token:       cfg.Telegram.Token,
		Debug:       cfg.Telegram.Debug,
		PollTimeout: cfg.Telegram.Timeout,
	}, bot.Deps{
		Learner:    svc,
		Translator: translator,
		Dictionary: dictionary.New(cfg.AI.DictionaryURL, 0, logg.Named("dictionary")),
		Importer:   excel.NewImporter(svc, logg.Named("import")),
	}, logg.Named("bot"))
	if err != nil {
		return err
	}

	location, err := cfg.Reminders.Location()
	if err != nil {
		return fmt.Errorf("invalid reminders timezone: %w", err)
	}
	reminders, err := scheduler.New(scheduler.Config{
		Enabled:   cfg.Reminders.Enabled,
		StartHour: cfg.Reminders.StartHour,
		EndHour:   cfg.Reminders.EndHour,
		Location:  location,
	}, svc, b, logg.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := reminders.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	logg.Info("bot started, press Ctrl+C to stop")
	err = b.Start(ctx)

	// Give in-flight reminders a moment to finish
	done := make(chan struct{})
	go func() {
		reminders.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		logg.Warn("scheduler did not stop in time")
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "sql":
		db, err := database.Connect(ctx, database.Config{
			Driver:          cfg.SQL.Driver,
			DSN:             cfg.SQL.DSN,
			MaxOpenConns:    cfg.SQL.MaxOpenConns,
			MaxIdleConns:    cfg.SQL.MaxIdleConns,
			ConnMaxLifetime: cfg.SQL.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return database.NewStore(db), nil
	case "redis":
		kv, err := kvstore.NewRedis(ctx, storeRedisConfig(cfg.Redis))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return kvstore.NewStore(kv), nil
	case "file":
		kv, err := kvstore.OpenFile(cfg.File.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		return kvstore.NewStore(kv), nil
	case "memory":
		return kvstore.NewStore(kvstore.NewMemory(0)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// openCache shares Redis with the store when it is the backend and keeps
// translations in memory otherwise
func openCache(ctx context.Context, cfg *config.Config) (kvstore.KV, error) {
	if cfg.Storage.Backend != "redis" {
		return kvstore.NewMemory(cfg.AI.CacheTTL), nil
	}

	kv, err := kvstore.NewRedis(ctx, cacheRedisConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect translation cache: %w", err)
	}
	return kv, nil
}

// storeRedisConfig never sets a TTL so items, users and progress do not expire
func storeRedisConfig(cfg config.RedisConfig) kvstore.RedisConfig {
	return kvstore.RedisConfig{
		URL:       cfg.URL,
		KeyPrefix: cfg.KeyPrefix,
	}
}

func cacheRedisConfig(cfg *config.Config) kvstore.RedisConfig {
	return kvstore.RedisConfig{
		URL:       cfg.Storage.Redis.URL,
		TTL:       cfg.AI.CacheTTL,
		KeyPrefix: cfg.Storage.Redis.KeyPrefix + "cache:",
	}
}
