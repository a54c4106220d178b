package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/store"
)

// TagRepository implements domain.TagRepository on the per-folder store
type TagRepository struct {
	store *store.Store
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(s *store.Store) *TagRepository {
	return &TagRepository{store: s}
}

// List retrieves every tag of the folder
func (r *TagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.store.DB().QueryContext(ctx, "select digest, value from tag")
	if err != nil {
		return nil, fmt.Errorf("%w: while listing tags: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var result []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.Digest, &tag.Value); err != nil {
			return nil, fmt.Errorf("%w: while scanning tags: %w", domain.ErrPersistence, err)
		}
		result = append(result, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: while listing tags: %w", domain.ErrPersistence, err)
	}
	return result, nil
}

// Add inserts the pair, doing nothing if it is already present
func (r *TagRepository) Add(ctx context.Context, digest, value string) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
insert into tag (digest, value) values (?, ?) on conflict(digest, value) do nothing
        `, digest, value)
		if err != nil {
			return fmt.Errorf("while adding tag '%s' to %s: %w", value, digest, err)
		}
		return nil
	})
}

// Remove deletes the pair, doing nothing if it is absent
func (r *TagRepository) Remove(ctx context.Context, digest, value string) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "delete from tag where digest = ? and value = ?", digest, value)
		if err != nil {
			return fmt.Errorf("while removing tag '%s' from %s: %w", value, digest, err)
		}
		return nil
	})
}

// Verify that TagRepository implements domain.TagRepository
var _ domain.TagRepository = (*TagRepository)(nil)
