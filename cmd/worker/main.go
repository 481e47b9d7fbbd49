// Package main - точка входа для фоновых процессов движка прогрессии.
//
// Worker отвечает за периодические задачи:
// - Закрытие простаивающих рейтинговых сессий
// - Прогрев кеша таблицы лидеров
//
// Когда настроен Redis, worker захватывает leader-лок, чтобы при
// горизонтальном масштабировании фоновые задачи выполнял только один
// экземпляр.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/config"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/messaging"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/persistence/postgres"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/persistence/redis"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/scheduler"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/scheduler/jobs"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
)

// leaderLockKey guards against two workers sweeping sessions concurrently.
const (
	leaderLockKey = "worker:leader"
	leaderLockTTL = time.Minute
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
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting NursePrep Progression Worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler is disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS (worker needs the current schema too)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache       *redis.Cache
		leaderboardCache ranked.LeaderboardCache
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis")
		redisCache, err = redis.NewCache(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			log.Warn("failed to connect to Redis, running without cache", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. LEADER LOCK
	// ─────────────────────────────────────────────────────────────────────────
	if redisCache != nil {
		release, err := acquireLeaderLock(ctx, redisCache, log)
		if err != nil {
			return err
		}
		defer release()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	eventBus := messaging.NewInMemoryEventBus(messaging.Config{Logger: log})
	defer func() {
		log.Info("closing event bus")
		_ = eventBus.Close()
	}()

	if leaderboardCache != nil {
		if err := messaging.RegisterLeaderboardInvalidator(eventBus, leaderboardCache, log); err != nil {
			return fmt.Errorf("failed to register leaderboard invalidator: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER & JOBS
	// ─────────────────────────────────────────────────────────────────────────
	sessionRepo := postgres.NewSessionRepository(dbConn)
	clk := clock.NewPolicy(clock.SystemClock{})

	sched := scheduler.New(log)

	staleJob := jobs.NewCloseStaleSessionsJob(
		sessionRepo, eventBus, clk, cfg.Scheduler.SessionMaxIdle, log)
	if err := sched.Register(staleJob, scheduler.NewIntervalSchedule(cfg.Scheduler.CloseStaleSessionsInterval)); err != nil {
		return fmt.Errorf("failed to register job: %w", err)
	}

	if leaderboardCache != nil {
		rebuildJob := jobs.NewRebuildLeaderboardJob(
			sessionRepo, leaderboardCache,
			cfg.Scheduler.LeaderboardLimit, cfg.Scheduler.LeaderboardTTL, log)
		if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
			return fmt.Errorf("failed to register job: %w", err)
		}
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("worker is running",
		logger.Duration("session_max_idle", cfg.Scheduler.SessionMaxIdle),
		logger.Int("jobs", len(sched.ListJobs())),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", logger.Err(err))
	}

	log.Info("shutdown completed")
	return nil
}

// acquireLeaderLock claims the worker leader lock and keeps it refreshed.
// The returned function releases the lock on shutdown; losing the refresh
// only means another worker may take over after the TTL, and every job is
// idempotent against that overlap.
func acquireLeaderLock(ctx context.Context, cache *redis.Cache, log *logger.Logger) (func(), error) {
	hostname, _ := os.Hostname()

	acquired, err := cache.SetNX(ctx, leaderLockKey, hostname, leaderLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire leader lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("another worker instance holds the leader lock")
	}

	log.Info("leader lock acquired", logger.String("holder", hostname))

	refreshCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(leaderLockTTL / 3)
		defer ticker.Stop()

		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				if err := cache.Set(refreshCtx, leaderLockKey, hostname, leaderLockTTL); err != nil {
					log.Warn("failed to refresh leader lock", logger.Err(err))
				}
			}
		}
	}()

	release := func() {
		cancel()
		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer releaseCancel()

		if err := cache.Delete(releaseCtx, leaderLockKey); err != nil {
			log.Warn("failed to release leader lock", logger.Err(err))
		}
	}

	return release, nil
}
