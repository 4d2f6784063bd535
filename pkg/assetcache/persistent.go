package assetcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// CacheNamePrefix namespaces persisted entries; the version follows it.
const CacheNamePrefix = "svg-cache-v"

// CacheName returns the namespace for a cache version.
func CacheName(version string) string {
	return CacheNamePrefix + version
}

// PersistentTier survives process restarts. Implementations must be safe for
// concurrent use.
type PersistentTier interface {
	Get(ctx context.Context, cacheName, url string) ([]byte, bool, error)
	Put(ctx context.Context, cacheName, url string, content []byte, contentType string) error
	// PurgeOtherVersions deletes every namespace starting with
	// CacheNamePrefix except keep.
	PurgeOtherVersions(ctx context.Context, keep string) (int, error)
}

// NoPersistence disables the persistent tier.
type NoPersistence struct{}

func (NoPersistence) Get(context.Context, string, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoPersistence) Put(context.Context, string, string, []byte, string) error { return nil }

func (NoPersistence) PurgeOtherVersions(context.Context, string) (int, error) { return 0, nil }

// Entry is a persisted asset row.
type Entry struct {
	bun.BaseModel `bun:"table:asset_cache,alias:ac"`

	CacheName   string    `bun:"cache_name,pk"`
	URL         string    `bun:"url,pk"`
	Content     []byte    `bun:"content,notnull"`
	ContentType string    `bun:"content_type,notnull"`
	FetchedAt   time.Time `bun:"fetched_at,notnull"`
}

// SQLTier stores assets in the asset_cache table.
type SQLTier struct {
	db bun.IDB
}

func NewSQLTier(db bun.IDB) *SQLTier {
	return &SQLTier{db: db}
}

func (t *SQLTier) Get(ctx context.Context, cacheName, url string) ([]byte, bool, error) {
	e := new(Entry)
	err := t.db.NewSelect().
		Model(e).
		Column("content").
		Where("cache_name = ?", cacheName).
		Where("url = ?", url).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select asset: %w", err)
	}
	return e.Content, true, nil
}

func (t *SQLTier) Put(ctx context.Context, cacheName, url string, content []byte, contentType string) error {
	e := &Entry{
		CacheName:   cacheName,
		URL:         url,
		Content:     content,
		ContentType: contentType,
		FetchedAt:   time.Now().UTC(),
	}
	_, err := t.db.NewInsert().
		Model(e).
		On("CONFLICT (cache_name, url) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("content_type = EXCLUDED.content_type").
		Set("fetched_at = EXCLUDED.fetched_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	return nil
}

func (t *SQLTier) PurgeOtherVersions(ctx context.Context, keep string) (int, error) {
	res, err := t.db.NewDelete().
		Model((*Entry)(nil)).
		Where("cache_name LIKE ?", CacheNamePrefix+"%").
		Where("cache_name <> ?", keep).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge asset versions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
