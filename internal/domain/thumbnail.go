package domain

import (
	"context"
	"time"
)

// Thumbnail is the cached canonical derivative of an image
type Thumbnail struct {
	Digest    string
	Content   []byte
	CreatedAt time.Time
}

// ThumbnailRepository defines the interface for the per-folder thumbnail relation.
// Entries are keyed by digest and never overwritten once written.
type ThumbnailRepository interface {
	// Get retrieves the thumbnail for a digest, nil when absent
	Get(ctx context.Context, digest string) (*Thumbnail, error)

	// Put stores content under digest unless an entry already exists, and returns the stored entry
	Put(ctx context.Context, digest string, content []byte, createdAt time.Time) (*Thumbnail, error)

	// Count returns the number of cached thumbnails
	Count(ctx context.Context) (int64, error)
}
