package domain

import "context"

// StarTag is the tag value marking an image for upload
const StarTag = "star"

// Tag is a (digest, value) membership entry
type Tag struct {
	Digest string
	Value  string
}

// TagRepository defines the interface for the per-folder tag relation
type TagRepository interface {
	// List retrieves every tag of the folder
	List(ctx context.Context) ([]Tag, error)

	// Add inserts the pair, doing nothing if it is already present
	Add(ctx context.Context, digest, value string) error

	// Remove deletes the pair, doing nothing if it is absent
	Remove(ctx context.Context, digest, value string) error
}
