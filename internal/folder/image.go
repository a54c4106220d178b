package folder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lewtec/barber/internal/domain"
)

// Image is one indexed file. It never changes after the folder is built; its
// star and thumbnail live in the folder's tag store and thumbnail cache.
type Image struct {
	path   string
	digest string
	folder *Folder
}

func (i *Image) Path() string    { return i.path }
func (i *Image) Digest() string  { return i.digest }
func (i *Image) Folder() *Folder { return i.folder }

// Name is the file name of the image
func (i *Image) Name() string {
	return filepath.Base(i.path)
}

// Stem is the file name without its extension
func (i *Image) Stem() string {
	name := i.Name()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ContentType is derived from the extension
func (i *Image) ContentType() string {
	if strings.EqualFold(filepath.Ext(i.path), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

func (i *Image) Starred() bool {
	return i.folder.tags.Starred(i.digest)
}

// FlipStar toggles the star and returns the new state
func (i *Image) FlipStar(ctx context.Context) (bool, error) {
	return i.folder.tags.FlipStar(ctx, i.digest)
}

// Thumbnail returns the cached canonical thumbnail, computing it on first use
func (i *Image) Thumbnail(ctx context.Context) ([]byte, error) {
	return i.folder.thumbs.Get(ctx, i)
}

// Open opens the full original file
func (i *Image) Open() (*os.File, error) {
	f, err := os.Open(i.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: image '%s' is gone: %w", domain.ErrNotFound, i.path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: while opening image '%s': %w", domain.ErrIO, i.path, err)
	}
	return f, nil
}

// Next is the image after i in path order, false on the last image
func (i *Image) Next() (*Image, bool) {
	return i.folder.Next(i)
}

// Prev is the image before i in path order, false on the first image
func (i *Image) Prev() (*Image, bool) {
	return i.folder.Prev(i)
}
