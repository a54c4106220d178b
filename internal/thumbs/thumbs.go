// Package thumbs is the persistent, content-addressed thumbnail cache of a folder.
//
// A thumbnail is computed on the first request for an identity, stored, and
// served from the store from then on. Concurrent misses for one identity share
// a single computation, and computations run on a pool shared by all folders.
package thumbs

import (
	"context"
	"io"
	"log"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/picture"
)

// Size is the canonical longest side of a thumbnail
const Size = 640

// Source is what the cache needs to know about an image
type Source interface {
	Digest() string
	Path() string
}

// Renderer turns the file at path into encoded bytes no larger than maxSide
type Renderer func(path string, maxSide int) ([]byte, error)

// NewPool returns a render pool admitting workers concurrent renders,
// runtime.NumCPU() when workers is not positive.
func NewPool(workers int) *semaphore.Weighted {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return semaphore.NewWeighted(int64(workers))
}

type Options struct {
	Render Renderer
	Pool   *semaphore.Weighted
	Size   int
	Logger *log.Logger
}

// Cache serves thumbnails of one folder
type Cache struct {
	repo   domain.ThumbnailRepository
	render Renderer
	pool   *semaphore.Weighted
	size   int
	logger *log.Logger
	group  singleflight.Group
	now    func() time.Time
}

// New creates a cache over repo
func New(repo domain.ThumbnailRepository, opts Options) *Cache {
	c := &Cache{
		repo:   repo,
		render: opts.Render,
		pool:   opts.Pool,
		size:   opts.Size,
		logger: opts.Logger,
		now:    time.Now,
	}
	if c.render == nil {
		c.render = picture.Thumbnail
	}
	if c.pool == nil {
		c.pool = NewPool(0)
	}
	if c.size <= 0 {
		c.size = Size
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	return c
}

// Get returns the thumbnail of src, computing and storing it on a miss.
// A failed computation leaves nothing behind, so the next call retries.
func (c *Cache) Get(ctx context.Context, src Source) ([]byte, error) {
	thumb, err := c.repo.Get(ctx, src.Digest())
	if err != nil {
		return nil, err
	}
	if thumb != nil {
		return thumb.Content, nil
	}
	v, err, shared := c.group.Do(src.Digest(), func() (interface{}, error) {
		return c.fill(context.WithoutCancel(ctx), src)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Printf("thumbs: %s served from a shared computation", src.Digest())
	}
	return v.([]byte), nil
}

func (c *Cache) fill(ctx context.Context, src Source) ([]byte, error) {
	// an earlier flight may have stored it between our miss and this flight
	thumb, err := c.repo.Get(ctx, src.Digest())
	if err != nil {
		return nil, err
	}
	if thumb != nil {
		return thumb.Content, nil
	}

	if err := c.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	start := c.now()
	content, err := c.render(src.Path(), c.size)
	c.pool.Release(1)
	if err != nil {
		c.logger.Printf("thumbs: failed to render '%s': %s", src.Path(), err)
		return nil, err
	}
	c.logger.Printf("thumbs: generated thumbnail for '%s' (%s in %s)", src.Path(), humanize.Bytes(uint64(len(content))), c.now().Sub(start))

	stored, err := c.repo.Put(ctx, src.Digest(), content, c.now())
	if err != nil {
		return nil, err
	}
	return stored.Content, nil
}

// Len returns the number of cached thumbnails
func (c *Cache) Len(ctx context.Context) (int64, error) {
	return c.repo.Count(ctx)
}
