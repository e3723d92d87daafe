// Package bootstrap assembles a RegistryService from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"model-artifact-registry/internal/adapters/secondary/filestore"
	"model-artifact-registry/internal/adapters/secondary/postgres"
	"model-artifact-registry/internal/adapters/secondary/sqlite"
	"model-artifact-registry/internal/adapters/secondary/yamlstore"
	"model-artifact-registry/internal/config"
	"model-artifact-registry/internal/core/domain"
	"model-artifact-registry/internal/core/ports/output"
	"model-artifact-registry/internal/core/services"
)

// Registry is a wired registry with the resources it owns.
type Registry struct {
	Service   *services.RegistryService
	Artifacts *filestore.DiskStore
	Metadata  ports.MetadataStore

	ping    func(context.Context) error
	closers []func()
}

// Open builds the artifact store, the configured metadata backend and the
// service on top of them. Callers must Close the result.
func Open(ctx context.Context, cfg *config.Config) (*Registry, error) {
	artifacts, err := filestore.NewArtifactStore(cfg.Registry.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	r := &Registry{Artifacts: artifacts}
	if err := r.openMetadata(ctx, cfg); err != nil {
		r.Close()
		return nil, err
	}

	svc, err := services.NewRegistryService(ctx, r.Metadata, artifacts,
		services.WithBestPolicy(services.BestPolicy{
			Metric:        cfg.Registry.BestMetric,
			LowerIsBetter: cfg.Registry.BestLowerIsBetter,
		}),
	)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.Service = svc

	log.WithFields(log.Fields{
		"backend":  cfg.Registry.Backend,
		"metadata": r.Metadata.Location(),
		"storage":  artifacts.Root(),
	}).Info("registry opened")
	return r, nil
}

func (r *Registry) openMetadata(ctx context.Context, cfg *config.Config) error {
	switch cfg.Registry.Backend {
	case config.BackendYAML, "":
		r.Metadata = yamlstore.New(cfg.Registry.MetadataFile)

	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return err
		}
		r.Metadata = store
		r.ping = store.Ping
		r.closers = append(r.closers, func() { _ = store.Close() })

	case config.BackendPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("parse db config: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("create db pool: %w", err)
		}
		r.closers = append(r.closers, pool.Close)

		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping db: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		log.Info("database connection established")
		r.Metadata = postgres.NewMetadataStore(pool)
		r.ping = pool.Ping

	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedBackend, cfg.Registry.Backend)
	}
	return nil
}

// Ping reports whether the metadata backend is reachable. File-backed
// metadata has nothing to ping.
func (r *Registry) Ping(ctx context.Context) error {
	if r.ping == nil {
		return nil
	}
	return r.ping(ctx)
}

func (r *Registry) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}
