// Package main - точка входа для REST API движка прогрессии NursePrep.
//
// API обслуживает горячий путь платформы: старт рейтинговой сессии,
// приём и оценку ответов, чтение прогресса, бустов и таблицы лидеров.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries)
// - Infrastructure: PostgreSQL, Redis, кошелёк подсказок, event bus
// - Interface: HTTP endpoints
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nurseprep-hub/nurseprep-progression/config"
	"github.com/nurseprep-hub/nurseprep-progression/internal/application/command"
	"github.com/nurseprep-hub/nurseprep-progression/internal/application/query"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/external/wallet"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/messaging"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/persistence/postgres"
	"github.com/nurseprep-hub/nurseprep-progression/internal/infrastructure/persistence/redis"
	httpserver "github.com/nurseprep-hub/nurseprep-progression/internal/interface/http"
	"github.com/nurseprep-hub/nurseprep-progression/internal/interface/http/handlers"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/clock"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
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
	log.Info("starting NursePrep Progression API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

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
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
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
			log.Warn("failed to connect to Redis, leaderboard caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			leaderboardCache = redis.NewLeaderboardCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	progressRepo := postgres.NewProgressRepository(dbConn)
	sessionRepo := postgres.NewSessionRepository(dbConn)
	questionRepo := postgres.NewQuestionRepository(dbConn)
	ledger := postgres.NewAchievementLedger(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. MILESTONE CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	milestones, err := postgres.NewMilestoneConfigSource(dbConn).Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load milestone config: %w", err)
	}
	log.Info("milestone config loaded",
		logger.Int("version", milestones.Version),
		logger.Int("streak_milestones", len(milestones.Streak)),
		logger.Int("xp_milestones", len(milestones.XP)),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EVENT BUS
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
	// 9. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	walletCfg := wallet.DefaultClientConfig(cfg.Wallet.BaseURL)
	walletCfg.APIKey = cfg.Wallet.APIKey
	walletCfg.Timeout = cfg.Wallet.RequestTimeout
	walletClient := wallet.NewClient(walletCfg, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	clk := clock.NewPolicy(clock.SystemClock{})

	dailyQuestHandler := command.NewRecordDailyQuestHandler(
		progressRepo, ledger, milestones, eventBus, clk, log)
	submitAttemptHandler := command.NewSubmitAttemptHandler(
		sessionRepo, questionRepo, progressRepo, ledger, walletClient,
		milestones, dailyQuestHandler, eventBus, clk, log)
	startSessionHandler := command.NewStartSessionHandler(sessionRepo, eventBus, clk, log)
	endSessionHandler := command.NewEndSessionHandler(sessionRepo, eventBus, clk, log)

	getProgressHandler := query.NewGetProgressHandler(progressRepo, clk)
	getActiveBoostHandler := query.NewGetActiveBoostHandler(progressRepo, clk)
	getNextMilestoneHandler := query.NewGetNextMilestoneHandler(progressRepo, milestones)
	getLeaderboardHandler := query.NewGetLeaderboardHandler(
		sessionRepo, leaderboardCache, cfg.Scheduler.LeaderboardTTL, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("postgres", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		StartSessionHandler:     startSessionHandler,
		SubmitAttemptHandler:    submitAttemptHandler,
		EndSessionHandler:       endSessionHandler,
		RecordDailyQuestHandler: dailyQuestHandler,
		GetProgressHandler:      getProgressHandler,
		GetActiveBoostHandler:   getActiveBoostHandler,
		GetNextMilestoneHandler: getNextMilestoneHandler,
		GetLeaderboardHandler:   getLeaderboardHandler,
		Logger:                  log,
		HealthChecker:           healthChecker,
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 13. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
	}

	log.Info("shutdown completed")
	return nil
}
