package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"screentime/internal/config"
	"screentime/internal/database"
)

// Open builds the store selected by cfg.StoreBackend. The returned close
// function releases the store and everything opened for it.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "memory":
		slog.Warn("Using in-memory document store; data is lost on exit")
		store := NewMemoryStore()
		return store, store.Close, nil

	case "firestore":
		if cfg.FirebaseProjectID == "" {
			return nil, nil, errors.New("FIREBASE_PROJECT_ID is required for the firestore backend")
		}
		store, err := NewFirestoreStore(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredPath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Connected to Firestore", "project", cfg.FirebaseProjectID)
		return store, store.Close, nil

	case "sql", "":
		return openSQL(ctx, cfg)

	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}

func openSQL(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var (
		feed      ChangeFeed
		redisFeed *RedisFeed
	)
	if cfg.RedisURL != "" {
		redisFeed, err = NewRedisFeed(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		feed = redisFeed
		slog.Info("Redis change feed enabled")
	}

	store := NewSQLStore(db, feed)
	closeAll := func() error {
		errs := []error{store.Close()}
		if redisFeed != nil {
			errs = append(errs, redisFeed.Close())
		}
		errs = append(errs, db.Close())
		return errors.Join(errs...)
	}
	return store, closeAll, nil
}
