package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/directory"
	"storefront/internal/manager"
	"storefront/internal/messaging"
	"storefront/internal/metrics"
	"storefront/internal/notify"
	"storefront/internal/rates"
	"storefront/internal/scheduler"
	"storefront/internal/storage"
	"storefront/internal/worker"
)

func newRedisClient(cfg *config.Config) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func serveCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, and the rate job workers when enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return serve(cfg, logger)
		},
	}
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init Metrics
	metrics.Init()

	// Init PostgreSQL
	db, err := storage.NewStorage(ctx, cfg.Database.URL, storage.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("postgres connected")

	// Init Redis, shared by the directory cache and account codes
	var client redis.UniversalClient
	if cfg.Directory.Cache.Enabled || cfg.Auth.Accounts.Enabled {
		client = newRedisClient(cfg)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	// Tenant directory, optionally cached in Redis
	dirOpts := []directory.Option{
		directory.WithLookupTimeout(cfg.Directory.LookupTimeout),
		directory.WithLogger(logger),
	}
	if cfg.Directory.Cache.Enabled {
		dirOpts = append(dirOpts, directory.WithCache(directory.NewRedisCache(client, cfg.Directory.Cache.TTL)))
		logger.Info("directory cache enabled", zap.Duration("ttl", cfg.Directory.Cache.TTL))
	}
	dir := directory.New(db, dirOpts...)

	sessions, err := auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	stores := manager.NewStoreManager(db, dir, cfg.Auth.APIKeyPrefix, cfg.Auth.APIKeyLength, logger)

	deps := api.Deps{
		Pages:     db,
		Stores:    stores,
		Users:     db,
		Directory: dir,
		Sessions:  sessions,
		Rates:     db,
		Tokens:    auth.NewTokens(db, logger),
	}

	if cfg.Auth.Accounts.Enabled {
		notifier, err := newNotifier(ctx, cfg, logger)
		if err != nil {
			return err
		}
		deps.Accounts = auth.NewAccounts(db, auth.NewRedisCodes(client), notifier, auth.AccountOptions{
			ResetTTL:    cfg.Auth.Accounts.ResetTTL,
			ResetURL:    cfg.Auth.Accounts.ResetURL,
			OTPTTL:      cfg.Auth.Accounts.OTPTTL,
			OTPLength:   cfg.Auth.Accounts.OTPLength,
			MaxAttempts: cfg.Auth.Accounts.MaxAttempts,
		}, logger)
		logger.Info("self-service accounts enabled", zap.String("notify_driver", cfg.Notify.Driver))
	}

	if cfg.Rates.Enabled {
		jobs, pool, shutdown, err := startRateJobs(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		deps.Jobs = jobs
		deps.Workers = pool
	}

	// Init API
	apiHandler := api.NewAPI(cfg, deps, logger)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	logger.Info("graceful shutdown complete")
	return nil
}

// newNotifier builds the configured delivery channel behind a per-recipient
// throttle and prunes idle throttle buckets until ctx ends.
func newNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*notify.Throttled, error) {
	var next notify.Notifier
	switch cfg.Notify.Driver {
	case "log":
		next = notify.NewLog(logger)
	case "mailgun":
		next = notify.NewMailgun(cfg.Notify.MailgunDomain, cfg.Notify.MailgunAPIKey, cfg.Notify.From, logger)
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Notify.Driver)
	}
	throttled := notify.NewThrottled(next, cfg.Notify.Every, cfg.Notify.Burst)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := throttled.Prune(); n > 0 {
					logger.Debug("pruned notify limiters", zap.Int("count", n))
				}
			}
		}
	}()
	return throttled, nil
}

// startRateJobs wires cron -> RabbitMQ -> worker pool and returns the
// scheduler for on-demand triggers and the pool for runtime rescaling.
func startRateJobs(ctx context.Context, cfg *config.Config, db *storage.Storage, logger *zap.Logger) (*scheduler.Scheduler, *worker.WorkerPool, func(), error) {
	rabbitClient, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := rabbitClient.DeclareQueue(cfg.RabbitMQ.Queue); err != nil {
		rabbitClient.Close()
		return nil, nil, nil, err
	}
	logger.Info("rabbitmq connected", zap.String("queue", cfg.RabbitMQ.Queue))

	httpClient := rates.NewHTTPClient(cfg.Rates.HTTPTimeout)
	runner := &rates.Runner{
		Currency:     &rates.CurrencyClient{BaseURL: cfg.Rates.CurrencyURL, APIKey: cfg.Rates.CurrencyAPIKey, HTTP: httpClient},
		Metal:        &rates.MetalClient{BaseURL: cfg.Rates.MetalURL, APIKey: cfg.Rates.MetalAPIKey, HTTP: httpClient},
		CurrencyBase: cfg.Rates.CurrencyBase,
		Store:        db,
		Logger:       logger,
	}

	pool := worker.NewWorkerPool(rabbitClient.GetConnection(), cfg.RabbitMQ.Queue, cfg.Workers, runner, logger)
	if err := pool.Start(); err != nil {
		rabbitClient.Close()
		return nil, nil, nil, err
	}

	sched := scheduler.New(rabbitClient, cfg.RabbitMQ.Queue, logger)
	if err := sched.Add(cfg.Rates.CurrencySchedule, rates.KindCurrency); err != nil {
		pool.Stop()
		rabbitClient.Close()
		return nil, nil, nil, err
	}
	if err := sched.Add(cfg.Rates.MetalSchedule, rates.KindMetal); err != nil {
		pool.Stop()
		rabbitClient.Close()
		return nil, nil, nil, err
	}
	sched.Start()

	// Start background loop for updating queue depth metrics
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rabbitClient.UpdateQueueDepth(cfg.RabbitMQ.Queue)
				rabbitClient.UpdateQueueDepth(messaging.DeadLetterQueue(cfg.RabbitMQ.Queue))
			}
		}
	}()

	shutdown := func() {
		sched.Stop()
		pool.Stop()
		if err := rabbitClient.Close(); err != nil {
			logger.Warn("rabbitmq close failed", zap.Error(err))
		}
	}
	return sched, pool, shutdown, nil
}
