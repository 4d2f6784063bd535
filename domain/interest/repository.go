package interest

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/seekkrr/landingpage/pkg/apperror"
	"github.com/seekkrr/landingpage/pkg/logger"
)

const dateLayout = "2006-01-02"

// Filter limits listings to a range of creation dates. Both ends are
// inclusive calendar days in UTC; a zero value leaves that end open.
type Filter struct {
	From time.Time
	To   time.Time
}

// ParseFilter reads YYYY-MM-DD bounds. Empty strings leave the bound open.
func ParseFilter(from, to string) (Filter, error) {
	var f Filter
	var err error
	if from != "" {
		if f.From, err = time.ParseInLocation(dateLayout, from, time.UTC); err != nil {
			return Filter{}, apperror.NewBadRequest("from must be a date (YYYY-MM-DD)")
		}
	}
	if to != "" {
		if f.To, err = time.ParseInLocation(dateLayout, to, time.UTC); err != nil {
			return Filter{}, apperror.NewBadRequest("to must be a date (YYYY-MM-DD)")
		}
	}
	return f, nil
}

// Repository handles database operations for interests
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("interest.repo")),
	}
}

// Create inserts item and fills in its ID.
func (r *Repository) Create(ctx context.Context, item *Interest) error {
	if _, err := r.db.NewInsert().Model(item).Returning("id").Exec(ctx); err != nil {
		r.log.Error("failed to insert interest", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// List returns interests in f, newest id first.
func (r *Repository) List(ctx context.Context, f Filter) ([]Interest, error) {
	items := []Interest{}
	q := r.db.NewSelect().Model(&items)
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To.AddDate(0, 0, 1))
	}
	if err := q.Order("id DESC").Scan(ctx); err != nil {
		r.log.Error("failed to list interests", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return items, nil
}

// Count returns the number of stored interests.
func (r *Repository) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().Model((*Interest)(nil)).Count(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return n, nil
}
