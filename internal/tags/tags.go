// Package tags keeps the (identity, tag) set of a folder.
//
// The set is loaded entirely at open and written through: a mutation reaches
// the durable store first and the in-memory mirror only after that write
// succeeded. Mutations of one identity are serialized.
package tags

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/lewtec/barber/internal/domain"
)

// Store is the tag set of one folder
type Store struct {
	repo   domain.TagRepository
	logger *log.Logger
	keys   keyedMutex

	mu  sync.RWMutex
	set map[domain.Tag]struct{}
}

// Open loads every tag of repo into memory
func Open(ctx context.Context, repo domain.TagRepository, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	rows, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[domain.Tag]struct{}, len(rows))
	for _, row := range rows {
		set[row] = struct{}{}
	}
	return &Store{repo: repo, logger: logger, set: set}, nil
}

// Contains reports whether digest carries value
func (s *Store) Contains(digest, value string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[domain.Tag{Digest: digest, Value: value}]
	return ok
}

// Starred reports whether digest carries the star tag
func (s *Store) Starred(digest string) bool {
	return s.Contains(digest, domain.StarTag)
}

// Count returns how many identities carry value
func (s *Store) Count(value string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for tag := range s.set {
		if tag.Value == value {
			n++
		}
	}
	return n
}

// Add tags digest with value
func (s *Store) Add(ctx context.Context, digest, value string) error {
	unlock := s.keys.Lock(digest)
	defer unlock()
	return s.add(ctx, digest, value)
}

// Remove drops value from digest
func (s *Store) Remove(ctx context.Context, digest, value string) error {
	unlock := s.keys.Lock(digest)
	defer unlock()
	return s.remove(ctx, digest, value)
}

// FlipStar toggles the star of digest and returns the new state. On error
// the returned state is the unchanged one.
func (s *Store) FlipStar(ctx context.Context, digest string) (bool, error) {
	unlock := s.keys.Lock(digest)
	defer unlock()
	if s.Starred(digest) {
		s.logger.Printf("tags: remove star from %s", digest)
		if err := s.remove(ctx, digest, domain.StarTag); err != nil {
			return true, err
		}
		return false, nil
	}
	s.logger.Printf("tags: add star for %s", digest)
	if err := s.add(ctx, digest, domain.StarTag); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) add(ctx context.Context, digest, value string) error {
	if err := s.repo.Add(ctx, digest, value); err != nil {
		return err
	}
	s.mu.Lock()
	s.set[domain.Tag{Digest: digest, Value: value}] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Store) remove(ctx context.Context, digest, value string) error {
	if err := s.repo.Remove(ctx, digest, value); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.set, domain.Tag{Digest: digest, Value: value})
	s.mu.Unlock()
	return nil
}
