package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/store"
)

// ThumbnailRepository implements domain.ThumbnailRepository on the per-folder store
type ThumbnailRepository struct {
	store *store.Store
}

// NewThumbnailRepository creates a new ThumbnailRepository
func NewThumbnailRepository(s *store.Store) *ThumbnailRepository {
	return &ThumbnailRepository{store: s}
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getThumbnail(ctx context.Context, q queryRower, digest string) (*domain.Thumbnail, error) {
	thumb := domain.Thumbnail{Digest: digest}
	err := q.QueryRowContext(ctx, "select content, created_at from thumb where digest = ?", digest).
		Scan(&thumb.Content, &thumb.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thumb, nil
}

// Get retrieves the thumbnail for a digest, nil when absent
func (r *ThumbnailRepository) Get(ctx context.Context, digest string) (*domain.Thumbnail, error) {
	thumb, err := getThumbnail(ctx, r.store.DB(), digest)
	if err != nil {
		return nil, fmt.Errorf("%w: while fetching thumbnail %s: %w", domain.ErrPersistence, digest, err)
	}
	return thumb, nil
}

// Put stores content under digest unless an entry already exists, and returns
// the stored entry, which is the earlier one on conflict.
func (r *ThumbnailRepository) Put(ctx context.Context, digest string, content []byte, createdAt time.Time) (*domain.Thumbnail, error) {
	var stored *domain.Thumbnail
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
insert into thumb (digest, content, created_at) values (?, ?, ?) on conflict(digest) do nothing
        `, digest, content, createdAt.UTC())
		if err != nil {
			return fmt.Errorf("while storing thumbnail %s: %w", digest, err)
		}
		stored, err = getThumbnail(ctx, tx, digest)
		if err != nil {
			return fmt.Errorf("while reading back thumbnail %s: %w", digest, err)
		}
		if stored == nil {
			return fmt.Errorf("thumbnail %s vanished after insert", digest)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Count returns the number of cached thumbnails
func (r *ThumbnailRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.store.DB().QueryRowContext(ctx, "select count(*) from thumb").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: while counting thumbnails: %w", domain.ErrPersistence, err)
	}
	return count, nil
}

// Verify that ThumbnailRepository implements domain.ThumbnailRepository
var _ domain.ThumbnailRepository = (*ThumbnailRepository)(nil)
