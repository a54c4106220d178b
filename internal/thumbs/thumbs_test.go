package thumbs

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lewtec/barber/internal/digest"
	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/picture"
	"github.com/lewtec/barber/internal/repository"
)

type source struct {
	digest string
	path   string
}

func (s source) Digest() string { return s.digest }
func (s source) Path() string   { return s.path }

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	m := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		m.Set(x, x%h, color.RGBA{200, 10, 10, 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, m, nil); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
}

func newSource(t *testing.T, path string) source {
	t.Helper()
	sum, err := digest.File(path)
	if err != nil {
		t.Fatalf("digest.File() error = %v", err)
	}
	return source{digest: sum, path: path}
}

// countingRenderer counts calls into the real renderer
func countingRenderer(calls *int32) Renderer {
	return func(path string, maxSide int) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return picture.Thumbnail(path, maxSide)
	}
}

func setupCache(t *testing.T, render Renderer) *Cache {
	t.Helper()
	repo := repository.NewThumbnailRepository(repository.SetupTestStore(t))
	return New(repo, Options{Render: render})
}

func TestGet_CachesAfterFirstCall(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "big.jpg")
	writeJPEG(t, path, 1280, 960)
	src := newSource(t, path)

	var calls int32
	cache := setupCache(t, countingRenderer(&calls))

	first, err := cache.Get(ctx, src)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, err := cache.Get(ctx, src)
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("second Get() returned different bytes")
	}
	if calls != 1 {
		t.Errorf("renderer called %d times, want 1", calls)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("thumbnail does not decode: %v", err)
	}
	if cfg.Width != Size || cfg.Height != 480 {
		t.Errorf("thumbnail size = %dx%d, want %dx480", cfg.Width, cfg.Height, Size)
	}
}

func TestGet_SurvivesRenames(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "before.jpg")
	writeJPEG(t, path, 100, 100)

	var calls int32
	cache := setupCache(t, countingRenderer(&calls))
	if _, err := cache.Get(ctx, newSource(t, path)); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	moved := filepath.Join(dir, "after.jpg")
	if err := os.Rename(path, moved); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get(ctx, newSource(t, moved)); err != nil {
		t.Fatalf("Get() after rename error = %v", err)
	}
	if calls != 1 {
		t.Errorf("renderer called %d times, want 1", calls)
	}
}

func TestGet_ConcurrentMissesCoalesce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.jpg")
	writeJPEG(t, path, 800, 600)
	src := newSource(t, path)

	var calls int32
	cache := setupCache(t, countingRenderer(&calls))

	const workers = 8
	results := make([][]byte, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Get(ctx, src)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if !bytes.Equal(results[i], results[0]) {
			t.Errorf("worker %d got different bytes", i)
		}
	}
	if calls != 1 {
		t.Errorf("renderer called %d times, want 1", calls)
	}
	if n, _ := cache.Len(ctx); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestGet_DecodeFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, []byte("this is not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	// the identity stays the same while the file is repaired
	src := source{digest: "fixed-identity", path: path}
	cache := setupCache(t, nil)

	_, err := cache.Get(ctx, src)
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("error = %v, want ErrDecode", err)
	}
	if n, _ := cache.Len(ctx); n != 0 {
		t.Fatalf("Len() = %d after failure, want 0", n)
	}

	writeJPEG(t, path, 50, 50)
	if _, err := cache.Get(ctx, src); err != nil {
		t.Fatalf("retry Get() error = %v", err)
	}
	if n, _ := cache.Len(ctx); n != 1 {
		t.Errorf("Len() = %d after retry, want 1", n)
	}
}

func TestNewPool(t *testing.T) {
	pool := NewPool(2)
	if !pool.TryAcquire(2) {
		t.Fatal("pool of 2 should admit 2")
	}
	if pool.TryAcquire(1) {
		t.Error("pool of 2 admitted a third worker")
	}
	pool.Release(2)
}
