// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/seekkrr/landingpage/internal/config"
	"github.com/seekkrr/landingpage/internal/database"
	"github.com/seekkrr/landingpage/internal/migrate"
)

var dbCounter atomic.Int64

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestDB opens a private in-memory SQLite database with all migrations
// applied. It is closed when the test ends.
func NewTestDB(t testing.TB) *bun.DB {
	t.Helper()
	ctx := context.Background()

	dc := config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("memdb%d?mode=memory&cache=private", dbCounter.Add(1)),
	}

	db, closeFn, err := database.Open(ctx, dc, DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })

	require.NoError(t, migrate.NewMigrator(db, zap.NewNop()).Up(ctx))
	return db
}

// TruncateTables empties every application table.
func TruncateTables(ctx context.Context, db bun.IDB) error {
	for _, table := range []string{"email_jobs", "asset_cache", "interests"} {
		if _, err := db.NewDelete().TableExpr(table).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
