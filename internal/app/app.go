package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gfdmit/yatube/config"
	"github.com/gfdmit/yatube/internal/logger"
	"github.com/gfdmit/yatube/internal/repository"
	"github.com/gfdmit/yatube/internal/repository/cache"
	"github.com/gfdmit/yatube/internal/repository/minio"
	"github.com/gfdmit/yatube/internal/repository/sqldb"
	"github.com/gfdmit/yatube/internal/service"
)

// App owns everything the service runs on.
type App struct {
	Service *service.Service
	Log     *zap.Logger

	closers []func() error
}

// New builds the logger, opens and migrates storage, and wires the optional
// redis cache and minio blob store according to conf.
func New(ctx context.Context, conf config.Config) (*App, error) {
	log, err := logger.New(conf.App.LogLevel, conf.App.LogDevelopment)
	if err != nil {
		return nil, fmt.Errorf("error when setting up logger: %w", err)
	}
	return newWithLogger(ctx, conf, log)
}

func newWithLogger(ctx context.Context, conf config.Config, log *zap.Logger) (*App, error) {
	a := &App{Log: log}

	store, err := openStore(ctx, conf, log)
	if err != nil {
		return nil, fmt.Errorf("error when setting up repository: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	var repo repository.Repository = store
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("error when connecting to redis: %w", err)
		}
		repo = cache.Wrap(repo, cache.NewGroupCache(store, rdb, conf.Redis.TTL, log))
		log.Info("group cache enabled", zap.String("addr", conf.Redis.Addr), zap.Duration("ttl", conf.Redis.TTL))
	}

	opts := []service.Option{
		service.WithPageSize(conf.App.PageSize),
		service.WithLogger(log),
	}
	if conf.MinIO.Enabled {
		media, err := minio.New(ctx, conf.MinIO)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("error when setting up media storage: %w", err)
		}
		opts = append(opts, service.WithMedia(media))
		log.Info("image uploads enabled", zap.String("bucket", conf.MinIO.Bucket))
	}

	a.Service = service.New(repo, opts...)
	return a, nil
}

func openStore(ctx context.Context, conf config.Config, log *zap.Logger) (*sqldb.Store, error) {
	switch conf.App.Storage {
	case config.StoragePostgres:
		return sqldb.NewPostgres(ctx, conf.Postgres, log)
	case config.StorageSQLite:
		return sqldb.NewSQLite(ctx, conf.SQLite.Path, log)
	default:
		return nil, fmt.Errorf("unknown storage %q", conf.App.Storage)
	}
}

// Close releases connections in reverse order of acquisition and flushes the log.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	_ = a.Log.Sync()
	return errors.Join(errs...)
}
