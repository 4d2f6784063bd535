package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/fx"
	_ "modernc.org/sqlite"

	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/pkg/logger"
)

var Module = fx.Module("database",
	fx.Provide(
		NewBunDB,
		fx.Annotate(
			func(db *bun.DB) bun.IDB { return db },
			fx.As(new(bun.IDB)),
		),
	),
)

// NewBunDB opens the configured database and closes it on stop.
func NewBunDB(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*bun.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, closeFn, err := Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing database", logger.Scope("database"))
			return closeFn()
		},
	})
	return db, nil
}

// Open connects to SQLite (modernc, pure Go) or PostgreSQL (pgx pool) and
// wraps the connection in bun. The returned func closes everything.
func Open(ctx context.Context, dc config.DatabaseConfig, log *slog.Logger) (*bun.DB, func() error, error) {
	log = log.With(logger.Scope("database"))

	var db *bun.DB
	closeFn := func() error { return db.Close() }

	if dc.IsPostgres() {
		poolConfig, err := pgxpool.ParseConfig(dc.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("parse pgx config: %w", err)
		}
		poolConfig.MaxConns = int32(dc.MaxOpenConns)
		poolConfig.MinConns = int32(dc.MaxIdleConns)
		poolConfig.MaxConnIdleTime = dc.MaxIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("create pgx pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}

		db = bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())
		closeFn = func() error {
			err := db.Close()
			pool.Close()
			return err
		}

		log.Info("database pool created",
			slog.String("driver", "postgres"),
			slog.String("host", dc.Host),
			slog.Int("port", dc.Port),
			slog.String("database", dc.Name),
		)
	} else {
		sqldb, err := sql.Open("sqlite", dc.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		// One writer at a time; this also keeps ":memory:" databases alive
		// on a single connection.
		sqldb.SetMaxOpenConns(1)
		sqldb.SetMaxIdleConns(1)
		sqldb.SetConnMaxLifetime(0)

		if err := sqldb.PingContext(ctx); err != nil {
			_ = sqldb.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}

		db = bun.NewDB(sqldb, sqlitedialect.New())
		log.Info("database opened",
			slog.String("driver", "sqlite"),
			slog.String("path", dc.SQLitePath),
		)
	}

	if dc.QueryDebug {
		db.AddQueryHook(&queryLoggingHook{log: log})
	}
	return db, closeFn, nil
}

// IsPostgres reports whether db talks to PostgreSQL.
func IsPostgres(db bun.IDB) bool {
	return db.Dialect().Name() == dialect.PG
}

type queryLoggingHook struct {
	log *slog.Logger
}

func (h *queryLoggingHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLoggingHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	duration := time.Since(event.StartTime)

	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.log.Error("query error",
			slog.String("query", event.Query),
			slog.Duration("duration", duration),
			logger.Error(event.Err),
		)
		return
	}

	if duration > time.Second {
		h.log.Warn("slow query",
			slog.String("query", event.Query),
			slog.Duration("duration", duration),
		)
		return
	}

	h.log.Debug("query",
		slog.String("query", event.Query),
		slog.Duration("duration", duration),
	)
}

// SafeTx makes Rollback a no-op after a successful Commit so it can be
// deferred unconditionally.
type SafeTx struct {
	bun.Tx
	committed bool
}

func BeginSafeTx(ctx context.Context, db bun.IDB) (*SafeTx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SafeTx{Tx: tx}, nil
}

func (tx *SafeTx) Commit() error {
	if tx.committed {
		return nil
	}
	err := tx.Tx.Commit()
	if err == nil {
		tx.committed = true
	}
	return err
}

func (tx *SafeTx) Rollback() error {
	if tx.committed {
		return nil
	}
	return tx.Tx.Rollback()
}
