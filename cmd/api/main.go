package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/gearshed-backend/api/routes"
	"github.com/angelmondragon/gearshed-backend/internal/categories"
	"github.com/angelmondragon/gearshed-backend/internal/cron"
	"github.com/angelmondragon/gearshed-backend/internal/ledger"
	"github.com/angelmondragon/gearshed-backend/internal/manage"
	"github.com/angelmondragon/gearshed-backend/internal/sheets"
	"github.com/angelmondragon/gearshed-backend/internal/sheetsync"
	"github.com/angelmondragon/gearshed-backend/internal/transactions"
	"github.com/angelmondragon/gearshed-backend/pkg/config"
	"github.com/angelmondragon/gearshed-backend/pkg/db"
	"github.com/angelmondragon/gearshed-backend/pkg/instance"
	"github.com/angelmondragon/gearshed-backend/pkg/logger"
	"github.com/angelmondragon/gearshed-backend/pkg/metrics"
	"github.com/angelmondragon/gearshed-backend/pkg/migrate"
	"github.com/angelmondragon/gearshed-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := maybeRedis(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repo := ledger.NewRepository(dbClient.DB())

	txService, err := transactions.NewService(transactions.ServiceParams{
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

	syncLock, err := newLock(redisClient, "sheet-sync:"+envName(cfg), cfg.Sync.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create sync lock", err)
		os.Exit(1)
	}
	engine, err := sheetsync.NewEngine(sheetsync.EngineParams{
		Gateway: gateway,
		Repo:    repo,
		Lock:    syncLock,
		Logger:  logg,
		Metrics: metrics.NewSyncMetrics(reg),

		Replayer: txService,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sync engine", err)
		os.Exit(1)
	}

	manageService, err := manage.NewService(manage.ServiceParams{
		Repo:    repo,
		Gateway: gateway,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create manage service", err)
		os.Exit(1)
	}

	categoryService, err := categories.NewService(repo, gateway, logg)
	if err != nil {
		logg.Error(ctx, "failed to create categories service", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Inventory:    repo,
			Syncer:       engine,
			Transactions: txService,
			Manage:       manageService,
			Categories:   categoryService,
			Gatherer:     reg,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logg.Info(groupCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Sync.Interval > 0 {
		cronService, err := newSyncLoop(cfg, logg, redisClient, engine, reg)
		if err != nil {
			logg.Error(ctx, "failed to create sync loop", err)
			os.Exit(1)
		}
		group.Go(func() error {
			err := cronService.Run(groupCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

// newSyncLoop runs the periodic full sync inside the api process.
func newSyncLoop(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, syncer sheetsync.Syncer, reg prometheus.Registerer) (*cron.Service, error) {
	job, err := cron.NewSheetsSyncJob(syncer, logg)
	if err != nil {
		return nil, err
	}
	lock, err := newLock(redisClient, "cron:"+envName(cfg), 0)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Sync.Interval,
	})
}

func maybeRedis(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled() {
		logg.Info(ctx, "redis not configured, using in-process locks")
		return nil, nil
	}
	return redis.New(ctx, cfg.Redis, logg)
}

// newLock returns a redis lock shared across instances, or an in-process
// lock when redis is not configured.
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
