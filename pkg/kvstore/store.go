// Package kvstore provides the shared string-keyed store that backs the roster,
// exam results and curriculum progress collections.
//
// Values are opaque serialized collections. The store offers no transactional
// isolation: concurrent writers to the same key race and the last Set wins.
package kvstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/pkg/cache"
	"github.com/noah-isme/classroom-api/pkg/config"
	"github.com/noah-isme/classroom-api/pkg/database"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is the minimal contract every backend satisfies.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Store.Driver {
	case "", config.StoreDriverMemory:
		logger.Info("using in-memory store")
		return NewMemoryStore(), nil
	case config.StoreDriverRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis store", zap.String("addr", cache.Addr(cfg.Redis)))
		return NewRedisStore(client), nil
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("using postgres store", zap.String("database", cfg.Database.Name))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
