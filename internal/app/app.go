// Package app assembles the inventory engine from configuration.
package app

import (
	"context"
	"fmt"
	"log"

	"guardian-inventory/internal/bungie"
	"guardian-inventory/internal/cache"
	"guardian-inventory/internal/catalog"
	"guardian-inventory/internal/config"
	"guardian-inventory/internal/inventory"
	"guardian-inventory/internal/repository"
	"guardian-inventory/internal/service"
)

// App holds the assembled engine and the resources it owns.
type App struct {
	Client    *bungie.Client
	Catalog   *catalog.Store
	Durable   cache.Cache
	StoreType string
	Service   *service.InventoryService
	Syncer    *inventory.Syncer

	closers []func() error
}

// New builds the engine described by cfg. Network calls to the remote are
// not made here; see Start.
func New(cfg *config.Config) (*App, error) {
	a := &App{StoreType: cfg.Catalog.Store}

	a.Client = bungie.NewClient(bungie.Config{
		BaseURL:     cfg.Remote.BaseURL,
		APIKey:      cfg.Remote.APIKey,
		AccessToken: cfg.Remote.AccessToken,
		Timeout:     cfg.Remote.Timeout,
	})

	durable, err := a.openDurable(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Durable = durable

	var opts []catalog.Option
	if cfg.Catalog.Generation != "" {
		opts = append(opts, catalog.WithGeneration(cfg.Catalog.Generation))
	}
	a.Catalog = catalog.NewStore(a.Client, durable, opts...)

	annotations, err := a.openAnnotations(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	journal, err := a.openJournal(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	state := inventory.NewState(a.Catalog)
	a.Syncer = inventory.NewSyncer(state, a.Client, annotations)

	var transferOpts []inventory.TransfererOption
	if cfg.Engine.ResyncAfterTransfer {
		transferOpts = append(transferOpts, inventory.WithResync(a.Syncer))
	}

	a.Service = service.NewInventoryService(service.InventoryServiceDeps{
		State:       state,
		Syncer:      a.Syncer,
		Transferer:  inventory.NewTransferer(state, a.Client, transferOpts...),
		Annotations: inventory.NewAnnotationSync(state, annotations, a.Syncer),
		Catalog:     a.Catalog,
		Journal:     journal,
	})
	return a, nil
}

// Start checks the catalog version and preloads tables. Failures are logged
// and the engine keeps serving; tables load on first use.
func (a *App) Start(ctx context.Context, preload []string) {
	if err := a.Catalog.Initialize(ctx); err != nil {
		log.Printf("Warning: catalog initialization failed: %v", err)
		return
	}
	if len(preload) > 0 {
		if err := a.Catalog.Preload(ctx, preload...); err != nil {
			log.Printf("Warning: catalog preload failed: %v", err)
		}
	}
}

// StatsReporter returns the durable tier's stats reporter, if it has one.
func (a *App) StatsReporter() cache.StatsReporter {
	if r, ok := a.Durable.(cache.StatsReporter); ok {
		return r
	}
	return nil
}

// Close releases every opened resource in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Warning: close failed: %v", err)
		}
	}
	a.closers = nil
}

func (a *App) openDurable(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Catalog.Store {
	case "redis":
		c, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Catalog.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis catalog store: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		log.Println("Redis catalog store initialized")
		return c, nil
	case "memory":
		log.Println("In-memory catalog store initialized")
		return cache.NewMemoryCache(), nil
	default:
		s, err := repository.NewSQLiteCatalogStore(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite catalog store: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		log.Println("SQLite catalog store initialized")
		return s, nil
	}
}

func (a *App) openAnnotations(cfg *config.Config) (inventory.AnnotationSource, error) {
	var (
		repo repository.AnnotationRepository
		err  error
	)
	switch cfg.Annotations.Backend {
	case "mysql":
		repo, err = repository.NewMySQLAnnotationRepository(cfg.Annotations.MySQLDSN())
	case "postgres":
		repo, err = repository.NewPostgresAnnotationRepository(cfg.Annotations.PostgresDSN())
	case "mongodb":
		repo, err = repository.NewMongoAnnotationRepository(
			cfg.Annotations.MongoURI,
			cfg.Annotations.MongoDatabase,
			cfg.Annotations.MongoCollection,
		)
	default:
		log.Println("Annotations stored by the remote platform")
		return a.Client, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s annotations: %w", cfg.Annotations.Backend, err)
	}
	a.closers = append(a.closers, repo.Close)
	log.Printf("%s annotation repository initialized", cfg.Annotations.Backend)
	return repository.ForAccount(repo, cfg.Remote.MembershipID), nil
}

func (a *App) openJournal(cfg *config.Config) (repository.TransferLogRepository, error) {
	var (
		journal repository.TransferLogRepository
		err     error
	)
	switch cfg.Journal.Backend {
	case "none":
		return nil, nil
	case "mongodb":
		journal, err = repository.NewMongoTransferLogRepository(
			cfg.Annotations.MongoURI,
			cfg.Annotations.MongoDatabase,
			cfg.Journal.MongoCollection,
		)
	default:
		journal, err = repository.NewSQLiteTransferLogRepository(cfg.Journal.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s transfer journal: %w", cfg.Journal.Backend, err)
	}
	a.closers = append(a.closers, journal.Close)
	log.Printf("%s transfer journal initialized", cfg.Journal.Backend)
	return journal, nil
}
