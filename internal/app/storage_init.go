package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orderhub/internal/health"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/mongo"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/postgres"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/redis"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/s3"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/sqlite"
)

// runtimeDependencies: выбранное хранилище и то, что от него зависит.
type runtimeDependencies struct {
	kv domain.KeyValueStore
	// outboxRepo задан только для postgres: события пишутся в ту же базу.
	outboxRepo     domain.OutboxRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

// initRuntimeDependencies открывает хранилище, выбранное в cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	kv, outboxRepo, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.WithField("driver", cfg.StorageDriver).Info("storage initialized")
	return &runtimeDependencies{
		kv:             kv,
		outboxRepo:     outboxRepo,
		storageChecker: healthcheck.NewPingChecker("storage", kv, 0),
		closeFn:        kv.Close,
	}, nil
}

func openStorage(ctx context.Context, cfg Config, logger *log.Entry) (domain.KeyValueStore, domain.OutboxRepository, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		return memory.NewKeyValueStore(), nil, nil

	case StorageDriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("path", store.Path()).Info("sqlite storage opened")
		return store, nil, nil

	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("postgres dsn is required for storage driver %q", StorageDriverPostgres)
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
			logger.Info("postgres migrations applied")
		}
		return postgres.NewKeyValueStore(store), postgres.NewOutboxRepository(store), nil

	case StorageDriverRedis:
		store, err := redis.Open(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case StorageDriverS3:
		store, err := s3.Open(ctx, s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
			Prefix:    cfg.KeyPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case StorageDriverMongo:
		store, err := mongo.Open(ctx, mongo.Config{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
