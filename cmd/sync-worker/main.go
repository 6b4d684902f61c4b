package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/gearshed-backend/internal/cron"
	"github.com/angelmondragon/gearshed-backend/internal/ledger"
	"github.com/angelmondragon/gearshed-backend/internal/sheets"
	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	"github.com/angelmondragon/gearshed-backend/internal/transactions"
	"github.com/angelmondragon/gearshed-backend/pkg/config"
	"github.com/angelmondragon/gearshed-backend/pkg/db"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
	"github.com/angelmondragon/gearshed-backend/pkg/metrics"
	"github.com/angelmondragon/gearshed-backend/pkg/migrate"
	"github.com/angelmondragon/gearshed-backend/pkg/redis"
)

const defaultSyncInterval = 5 * time.Minute

func main() {
	once := flag.Bool("once", false, "run a single sync and exit")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on, empty disables")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	gateway, err := sheets.New(ctx, cfg.Sheets, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap sheets client", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, sync lock only covers this process")
	}

	reg := prometheus.NewRegistry()

	syncLock, err := newLock(redisClient, "sheet-sync:"+envName(cfg), cfg.Sync.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create sync lock", err)
		os.Exit(1)
	}
	repo := ledger.NewRepository(dbClient.DB())
	replayer, err := transactions.NewService(transactions.ServiceParams{
		Tx:      dbClient,
		Repo:    repo,
		Gateway: gateway,
		Logger:  logg,
		Metrics: metrics.NewTransactionMetrics(reg),
	})
	if err != nil {
		logg.Error(ctx, "failed to create transactions service", err)
		os.Exit(1)
	}

	engine, err := sheetsync.NewEngine(sheetsync.EngineParams{
		Gateway: gateway,
		Repo:    repo,
		Lock:    syncLock,
		Logger:  logg,
		Metrics: metrics.NewSyncMetrics(reg),

		Replayer: replayer,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sync engine", err)
		os.Exit(1)
	}

	job, err := cron.NewSheetsSyncJob(engine, logg)
	if err != nil {
		logg.Error(ctx, "failed to create sync job", err)
		os.Exit(1)
	}
	cronLock, err := newLock(redisClient, "sync-worker:"+envName(cfg), 0)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}
	interval := cfg.Sync.Interval
	if interval <= 0 {
		interval = defaultSyncInterval
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     cronLock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": interval.String(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "sync run failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "sync run completed")
		return
	}

	if *metricsAddr != "" {
		go serveMetrics(ctx, logg, *metricsAddr, reg)
	}

	logg.Info(ctx, "starting sync worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "sync worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped", err)
	}
}

func newLock(client *redis.Client, name string, ttl time.Duration) (cron.Lock, error) {
	if client == nil {
		return cron.NewLocalLock(), nil
	}
	return cron.NewRedisLock(client, client.LockKey(name), ttl)
}

func envName(cfg *config.Config) string {
	if cfg.App.Env == "" {
		return "local"
	}
	return cfg.App.Env
}
