// Package app assembles the recommender from configuration. Both the HTTP and
// the MCP entry points build on it.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fertilizer-advisor/internal/auth"
	"github.com/fertilizer-advisor/internal/cache"
	"github.com/fertilizer-advisor/internal/database"
	"github.com/fertilizer-advisor/internal/domain"
	"github.com/fertilizer-advisor/internal/history"
	"github.com/fertilizer-advisor/internal/model"
	"github.com/fertilizer-advisor/internal/service"
)

// App holds the wired components and the resources to release on Close.
type App struct {
	Registry  *model.Registry
	Scheduler *model.ReloadScheduler
	Service   *service.RecommenderService
	Accounts  *auth.Service // nil unless auth.enabled

	loader  model.Loader
	cache   *cache.Tiered
	logger  *logrus.Logger
	closers []func() error
}

// New builds the registry, cache, history store and service described by
// the configuration. A model bundle that fails to load is not fatal: the
// service reports models as unavailable until a reload succeeds.
func New(ctx context.Context, configManager domain.ConfigManager, logger *logrus.Logger) (*App, error) {
	cfg := configManager.GetConfig()
	a := &App{logger: logger}

	loader, err := model.NewLoader(cfg.Model, logger)
	if err != nil {
		return nil, err
	}
	a.loader = loader
	a.Registry = model.NewRegistry(loader, logger)
	if err := a.Registry.Load(ctx); err != nil {
		logger.WithError(err).Warn("Starting without a model bundle")
	}

	if cfg.Model.ReloadSchedule != "" {
		a.Scheduler, err = model.NewReloadScheduler(cfg.Model.ReloadSchedule, a, logger)
		if err != nil {
			return nil, err
		}
	}

	a.cache, err = a.newCache(cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := a.newStore(ctx, configManager)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Auth.Enabled {
		a.Accounts, err = a.newAccounts(ctx, cfg.Auth, store)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var c cache.Cache
	if a.cache != nil {
		c = a.cache
	}
	a.Service = service.NewRecommenderService(logger, a.Registry, c, store)
	return a, nil
}

func (a *App) newCache(cfg domain.CacheConfig) (*cache.Tiered, error) {
	if !cfg.Enabled {
		a.logger.Info("Recommendation cache disabled")
		return nil, nil
	}

	memory, err := cache.NewMemoryCache(cfg.MemoryMaxItems, cfg.MemoryTTL)
	if err != nil {
		return nil, err
	}

	var remote cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, redisCache.Close)
		remote = redisCache
	}

	a.logger.WithFields(logrus.Fields{
		"memory_items": cfg.MemoryMaxItems,
		"redis":        remote != nil,
	}).Info("Recommendation cache enabled")
	return cache.NewTiered(memory, remote, a.logger), nil
}

func (a *App) newStore(ctx context.Context, configManager domain.ConfigManager) (history.Store, error) {
	cfg := configManager.GetConfig()

	var (
		store history.Store
		err   error
	)
	switch cfg.Storage.Driver {
	case "", "none":
		a.logger.Info("Recommendation history disabled")
		return nil, nil

	case "sqlite":
		store, err = history.NewSQLiteStore(cfg.Storage.SQLitePath)

	case "postgres":
		url := configManager.GetDatabaseURL()
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, url, cfg.Database.MigrationsPath, a.logger); err != nil {
				return nil, err
			}
		}
		store, err = history.NewPostgresStoreFromURL(url, cfg.Database)

	case "mongo":
		store, err = history.NewMongoStore(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection)

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s history store: %w", cfg.Storage.Driver, err)
	}

	a.closers = append(a.closers, store.Close)
	a.logger.WithField("driver", cfg.Storage.Driver).Info("Recommendation history enabled")
	return store, nil
}

// newAccounts keeps user accounts in the same backend as the history.
func (a *App) newAccounts(ctx context.Context, cfg domain.AuthConfig, store history.Store) (*auth.Service, error) {
	var (
		users auth.Store
		err   error
	)
	switch s := store.(type) {
	case *history.SQLiteStore:
		users, err = auth.NewSQLiteStore(s.DB())
	case *history.PostgresStore:
		users, err = auth.NewPostgresStore(s.DB())
	case *history.MongoStore:
		users, err = auth.NewMongoStore(ctx, s.Database())
	default:
		return nil, fmt.Errorf("user accounts require a history store")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open account store: %w", err)
	}

	accounts, err := auth.NewService(users, cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Info("User accounts enabled")
	return accounts, nil
}

// Reload installs a fresh model bundle and drops cached recommendations of
// the previous one.
func (a *App) Reload(ctx context.Context) error {
	if err := a.Registry.Reload(ctx); err != nil {
		return err
	}
	if a.cache != nil {
		a.cache.Purge()
	}
	return nil
}

// Status describes the cache and model server for the health endpoint.
func (a *App) Status(context.Context) map[string]interface{} {
	status := map[string]interface{}{}
	if a.cache != nil {
		status["cache"] = a.cache.Stats()
	}
	if reporter, ok := a.loader.(model.BreakerReporter); ok {
		status["model_breaker"] = reporter.BreakerState().String()
	}
	if bundle, err := a.Registry.Current(); err == nil {
		status["model_backend"] = bundle.Backend
		status["model_loaded_at"] = bundle.LoadedAt
	}
	return status
}

// Start launches background jobs.
func (a *App) Start() {
	if a.Scheduler != nil {
		a.Scheduler.Start()
	}
}

// Close stops background jobs and releases stores and connections.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.WithError(err).Warn("Failed to release resource")
		}
	}
	a.closers = nil
}
