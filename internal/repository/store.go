package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/feedx-service/internal/config"
	"github.com/spec-kit/feedx-service/internal/persistence"
)

// Store bundles the repositories of the configured backend.
type Store struct {
	Driver string
	Issues IssueRepository
	Users  UserRepository
	ping   func(ctx context.Context) error
	close  func()
}

// Open connects to the backend named by cfg.Store.Driver. Postgres migrations
// run when migrate is set; the SQLite schema is always ensured.
func Open(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := persistence.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		if err := persistence.EnsureSQLiteSchema(db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("using sqlite store", zap.String("path", cfg.SQLite.Path))
		return &Store{
			Driver: config.DriverSQLite,
			Issues: NewSQLiteIssueRepository(db),
			Users:  NewSQLiteUserRepository(db),
			ping:   db.PingContext,
			close:  func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.Store.ConnectMaxElapsed(), logger)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Store{
			Driver: config.DriverPostgres,
			Issues: NewIssueRepository(pg.PoolHandle()),
			Users:  NewUserRepository(pg.PoolHandle()),
			ping:   pg.Ping,
			close:  pg.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// Ping checks the backend connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Store) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}
