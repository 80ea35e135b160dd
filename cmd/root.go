package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/directory"
	"storefront/internal/logging"
	"storefront/internal/manager"
	"storefront/internal/storage"
)

type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	storage *storage.Storage
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Multi-tenant storefront server and admin tools",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file; env vars override it")

	load := func() (*config.Config, *zap.Logger, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		logger, err := logging.New(logging.Config{
			Level:       cfg.Log.Level,
			Environment: cfg.Log.Environment,
			Service:     "storefront",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init logger: %w", err)
		}
		return cfg, logger, nil
	}

	root.AddCommand(
		serveCommand(load),
		migrateCommand(load),
		apiKeyCommand(load),
		storeCommand(load),
		userCommand(load),
		ratesCommand(load),
	)
	return root
}

type loader func() (*config.Config, *zap.Logger, error)

// open loads config and connects to Postgres, for the short-lived admin commands.
func open(ctx context.Context, load loader) (*runtime, error) {
	cfg, logger, err := load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	db, err := storage.NewStorage(ctx, cfg.Database.URL, storage.Options{MaxOpenConns: 2})
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, storage: db}, nil
}

func (rt *runtime) Close() {
	_ = rt.storage.Close()
	_ = rt.logger.Sync()
}

// storeManager points at the same directory cache as the server so CLI
// mutations invalidate it too.
func (rt *runtime) storeManager() (*manager.StoreManager, func()) {
	var opts []directory.Option
	cleanup := func() {}
	if rt.cfg.Directory.Cache.Enabled {
		client := newRedisClient(rt.cfg)
		opts = append(opts, directory.WithCache(directory.NewRedisCache(client, rt.cfg.Directory.Cache.TTL)))
		cleanup = func() { _ = client.Close() }
	}
	dir := directory.New(rt.storage, opts...)
	return manager.NewStoreManager(rt.storage, dir, rt.cfg.Auth.APIKeyPrefix, rt.cfg.Auth.APIKeyLength, rt.logger), cleanup
}
