package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sgaunet/hcconsole/pkg/config"
	"github.com/sgaunet/hcconsole/pkg/dbinit"
	"github.com/sgaunet/hcconsole/pkg/session"
)

// openStore opens the configured session backend and returns its closer.
func openStore(ctx context.Context, cfg config.SessionConfig, log *slog.Logger) (session.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		rc := session.DefaultRedisConfig(cfg.RedisAddr)
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		store, err := session.NewRedisStore(ctx, rc)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis session store: %w", err)
		}
		log.Info("Using redis session store", slog.String("addr", cfg.RedisAddr))
		return store, store.Close, nil
	case config.BackendPostgres:
		db, err := dbinit.InitializeDatabase(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres session store: %w", err)
		}
		log.Info("Using postgres session store")
		return session.NewPostgresStore(db), db.Close, nil
	default:
		log.Info("Using in-memory session store")
		return session.NewMemoryStore(), nil, nil
	}
}
