package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/BAPONBARMON/file-server/internal/config"
	"github.com/BAPONBARMON/file-server/internal/database"
	"github.com/BAPONBARMON/file-server/internal/files"
	"github.com/BAPONBARMON/file-server/internal/reaper"
	"github.com/BAPONBARMON/file-server/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// app holds the components shared by all commands.
type app struct {
	catalog database.Catalog
	blobs   storage.BlobStore
	manager *files.Manager
	reaper  *reaper.Reaper
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, opts ...files.Option) (*app, error) {
	a := &app{}

	catalog, err := a.openCatalog(ctx, cfg.DB)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.catalog = catalog

	blobs, err := openBlobStore(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.blobs = blobs

	opts = append([]files.Option{files.WithPhysicalFolders(cfg.Storage.PhysicalFolders)}, opts...)
	a.manager, err = files.NewManager(catalog, blobs, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.reaper = reaper.New(catalog, a.manager, reaper.Config{
		Window:   cfg.Retention.Window,
		Interval: cfg.Retention.Interval,
	})
	return a, nil
}

func (a *app) openCatalog(ctx context.Context, cfg config.DBConfig) (database.Catalog, error) {
	switch cfg.Driver {
	case config.DBDriverMemory:
		log.Warn().Msg("using in-memory catalog, entries are lost on restart")
		return database.NewMemoryStore(), nil
	case config.DBDriverPostgres:
		pool, err := openPool(ctx, cfg.Source)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)

		if err := database.Migrate(ctx, pool); err != nil {
			return nil, fmt.Errorf("failed to migrate catalog: %w", err)
		}
		log.Info().Msg("connected to catalog database")
		return database.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown db.driver %q", cfg.Driver)
	}
}

func openPool(ctx context.Context, source string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func openBlobStore(ctx context.Context, cfg config.StorageConfig) (storage.BlobStore, error) {
	switch cfg.Driver {
	case config.StorageDriverLocal:
		blobs, err := storage.NewLocalStorage(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise local storage: %w", err)
		}
		log.Info().Str("path", cfg.Path).Msg("storing blobs on local disk")
		return blobs, nil
	case config.StorageDriverS3:
		blobs, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			CreateBucket:    cfg.S3.CreateBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialise s3 storage: %w", err)
		}
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("storing blobs in s3")
		return blobs, nil
	default:
		return nil, errors.New("unknown storage.driver " + cfg.Driver)
	}
}
