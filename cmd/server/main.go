// Package main - точка входа сервиса учебных серий Alem.
//
// Сервис ведёт ежедневные серии обучения студентов: засчитывает активность,
// считает текущую и лучшую серию, отдаёт статистику и мотивационные
// сообщения через REST API и напоминает в Telegram тем, чья серия под
// угрозой.
//
// Архитектура повторяет слои Clean Architecture:
// - Domain: чистая машина состояний серии без внешних зависимостей
// - Application: сессии трекинга (Tracker/Manager)
// - Infrastructure: Postgres + Redis со сквозной деградацией, Telegram
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/alem-hub/learning-streak/config"
	"github.com/alem-hub/learning-streak/internal/application/tracker"
	"github.com/alem-hub/learning-streak/internal/domain/streak"
	"github.com/alem-hub/learning-streak/internal/infrastructure/external/telegram"
	"github.com/alem-hub/learning-streak/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/learning-streak/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/learning-streak/internal/infrastructure/persistence/store"
	"github.com/alem-hub/learning-streak/internal/infrastructure/scheduler"
	"github.com/alem-hub/learning-streak/internal/infrastructure/scheduler/jobs"
	"github.com/alem-hub/learning-streak/internal/infrastructure/service"
	httpserver "github.com/alem-hub/learning-streak/internal/interface/http"
	"github.com/alem-hub/learning-streak/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	// .env удобен в разработке; в проде переменные приходят из окружения.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting learning streak service",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	appLog := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Output: os.Stdout,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRES: ПОДКЛЮЧЕНИЕ И МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	streakRepo := postgres.NewStreakRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS: КЭШ СОСТОЯНИЙ СЕРИИ (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	// Без Redis сервис работает напрямую с Postgres, теряя только
	// деградацию чтений при недоступности базы.
	var (
		repo       streak.Repository = streakRepo
		redisCache *redis.Cache
		checkers   = []httpserver.HealthChecker{pgChecker{conn: dbConn}}
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, running without cache", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			repo = store.New(streakRepo, redis.NewStreakCache(redisCache), appLog)
			checkers = append(checkers, redisChecker{cache: redisCache})
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. УВЕДОМЛЕНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	var notifier streak.Notifier = service.NopNotifier{}
	if cfg.Telegram.Token != "" {
		tgCfg := telegram.DefaultClientConfig(cfg.Telegram.Token)
		tgCfg.Timeout = cfg.Telegram.RequestTimeout
		tgCfg.RetryAttempts = cfg.Telegram.MaxRetries
		tgCfg.RetryDelay = cfg.Telegram.RetryBaseDelay
		tgCfg.Logger = log
		tgCfg.Debug = cfg.App.Debug

		tgClient := telegram.NewClient(tgCfg)
		notifier = service.NewTelegramNotifier(tgClient, nil, appLog)
		log.Info("Telegram notifications enabled")
	} else {
		log.Info("TELEGRAM_BOT_TOKEN is empty, notifications disabled")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	manager := tracker.NewManager(repo, notifier, appLog)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК: ВЕЧЕРНЕЕ НАПОМИНАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled {
		sched := scheduler.New(scheduler.Config{
			Logger:   log,
			Timezone: cfg.App.Location,
		})

		reminderCfg := jobs.DefaultReminderConfig()
		reminderCfg.MinStreakLength = cfg.Scheduler.ReminderMinStreak
		reminderCfg.Timeout = cfg.Scheduler.JobTimeout

		reminder := jobs.NewStreakReminderJob(repo, notifier, log, reminderCfg)
		schedule := scheduler.NewDailyAtSchedule(
			cfg.Scheduler.ReminderHour,
			cfg.Scheduler.ReminderMinute,
			cfg.App.Location,
		)
		if err := sched.Register(reminder, schedule); err != nil {
			return fmt.Errorf("failed to register reminder job: %w", err)
		}

		sweep := jobs.NewSessionSweepJob(manager, log, jobs.DefaultSessionMaxIdle)
		if err := sched.Register(sweep, scheduler.NewIntervalSchedule(10*time.Minute)); err != nil {
			return fmt.Errorf("failed to register session sweep job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.EnableCORS = cfg.HTTP.EnableCORS
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		Manager:        manager,
		Logger:         appLog,
		HealthCheckers: checkers,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", server.Address())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("learning streak service is running", "http_address", server.Address())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	// Планировщик и соединения закрываются через defer.
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECK ADAPTERS
// ══════════════════════════════════════════════════════════════════════════════

type pgChecker struct {
	conn *postgres.Connection
}

func (c pgChecker) Name() string { return "postgres" }

func (c pgChecker) Check(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

type redisChecker struct {
	cache *redis.Cache
}

func (c redisChecker) Name() string { return "redis" }

func (c redisChecker) Check(ctx context.Context) error {
	return c.cache.Ping(ctx)
}
