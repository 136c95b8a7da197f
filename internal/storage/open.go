package storage

import (
	"context"
	"fmt"

	"fluxe/backend/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects the store selected by cfg.StoreDriver and prepares its schema.
// The returned func releases the underlying connection.
func Open(ctx context.Context, cfg config.Config) (Storage, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return NewMemoryStore(), func() {}, nil

	case config.StorePostgres:
		db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect postgres: %w", err)
		}
		s := NewStorageService(db)
		if err := s.Migrate(); err != nil {
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return s, closeFn, nil

	case config.StoreMongo:
		client, err := NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		dbName := cfg.MongoDatabase
		if dbName == "" {
			dbName = DefaultMongoDatabase
		}
		s := NewMongoStore(client.Database(dbName))
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("failed to create mongodb indexes: %w", err)
		}
		return s, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
