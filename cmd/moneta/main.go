package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/XavierBriggs/Moneta/adapters/theoddsapi"
	"github.com/XavierBriggs/Moneta/internal/cache"
	"github.com/XavierBriggs/Moneta/internal/calendar"
	"github.com/XavierBriggs/Moneta/internal/config"
	"github.com/XavierBriggs/Moneta/internal/fetch"
	"github.com/XavierBriggs/Moneta/internal/governor"
	"github.com/XavierBriggs/Moneta/internal/metrics"
	"github.com/XavierBriggs/Moneta/internal/normalize"
	"github.com/XavierBriggs/Moneta/internal/ops"
	"github.com/XavierBriggs/Moneta/internal/quota"
	"github.com/XavierBriggs/Moneta/internal/scheduler"
	"github.com/XavierBriggs/Moneta/internal/sports"
	"github.com/XavierBriggs/Moneta/internal/state"
	"github.com/XavierBriggs/Moneta/pkg/contracts"
	"github.com/XavierBriggs/Moneta/pkg/models"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("MONETA_CONFIG"))
	if err != nil {
		fmt.Printf("✗ Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	loc, err := cfg.Location()
	if err != nil {
		fmt.Printf("✗ %v\n", err)
		os.Exit(1)
	}
	cal := calendar.New(loc)

	// Response cache: Redis when configured, in-memory otherwise.
	var cacheStore cache.Store
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			fmt.Printf("✗ Failed to connect to Redis: %v\n", err)
			os.Exit(1)
		}
		cacheStore = cache.NewRedisStore(redisClient)
		fmt.Println("✓ Connected to Redis")
	} else {
		cacheStore = cache.NewMemoryStore()
		fmt.Println("⚠ No Redis configured, using in-memory cache")
	}

	// State store: Postgres when configured, otherwise the state file.
	var stateStore contracts.StateStore
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			fmt.Printf("✗ Failed to open Postgres connection: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			fmt.Printf("✗ Failed to ping Postgres: %v\n", err)
			os.Exit(1)
		}

		pgStore := state.NewPostgresStore(db, logger)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			fmt.Printf("✗ Failed to ensure state schema: %v\n", err)
			os.Exit(1)
		}
		stateStore = pgStore
		fmt.Println("✓ Connected to Postgres")
	} else {
		stateStore = state.NewFileStore(cfg.StatePath, logger)
		fmt.Printf("✓ State file: %s\n", cfg.StatePath)
	}

	gov := governor.New(governor.Config{
		EmergencyThreshold: cfg.EmergencyThreshold,
		CriticalThreshold:  cfg.CriticalThreshold,
		MinInterval:        cfg.EmergencyMinInterval,
		Cooldown:           cfg.CriticalCooldown,
	}, cal, logger)
	ledger := quota.New(cal, gov, cfg.DailyQuota, cfg.MonthlyLimit, logger)

	registry, err := sports.NewRegistry(sports.DefaultCatalog())
	if err != nil {
		fmt.Printf("✗ Failed to build sport registry: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Registered %d sport(s)\n", registry.Count())

	provider := theoddsapi.NewClient(theoddsapi.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Regions: cfg.Regions,
		Timeout: cfg.HTTPTimeout,
	})
	fmt.Println("✓ Initialized The Odds API adapter")

	met := metrics.New()
	fetcher := fetch.New(provider, cacheStore, ledger, normalize.New(logger), met, fetch.Config{
		OddsTTL:    cfg.OddsTTL,
		CatalogTTL: cfg.CatalogTTL,
		MinCallGap: cfg.MinCallGap,
	}, logger)

	// Reports are logged until a presentation layer subscribes.
	sink := contracts.ResultSinkFunc(func(ctx context.Context, report *models.RefreshReport) {
		for _, opp := range report.Opportunities {
			logger.WithFields(logrus.Fields{
				"match":  opp.MatchID,
				"profit": fmt.Sprintf("%.2f%%", opp.ProfitPercent),
			}).Info("arbitrage opportunity")
		}
	})

	sched := scheduler.New(scheduler.Config{
		Tick:        cfg.Tick,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
	}, cal, ledger, gov, registry, fetcher, cacheStore, stateStore, sink, met, logger)

	if err := sched.Start(ctx); err != nil {
		fmt.Printf("✗ Failed to start scheduler: %v\n", err)
		os.Exit(1)
	}

	server := ops.NewServer(cfg.ListenAddr, sched, met, logger)
	go func() {
		if err := server.Start(); err != nil {
			fmt.Printf("✗ Operator API failed: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Println("✓ Moneta started")
	fmt.Printf("  Daily quota:   %d requests\n", cfg.DailyQuota)
	fmt.Printf("  Monthly limit: %d requests\n", cfg.MonthlyLimit)
	fmt.Printf("  Tick:          %v\n", cfg.Tick)
	fmt.Printf("  Operator API:  %s\n", cfg.ListenAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	fmt.Println("\n✓ Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("✗ Operator API shutdown: %v\n", err)
	}
	sched.Stop()

	fmt.Println("✓ Moneta stopped")
}
