// Package folder indexes the images of one directory.
//
// A folder holds the images found directly in the directory and one level of
// subdirectories, sorted by path, together with the tag store and thumbnail
// cache kept in the directory's hidden database.
package folder

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lewtec/barber/internal/digest"
	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/repository"
	"github.com/lewtec/barber/internal/store"
	"github.com/lewtec/barber/internal/tags"
	"github.com/lewtec/barber/internal/thumbs"
)

// Extensions accepted as images, compared lowercased
var Extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsImage reports whether name has an accepted extension
func IsImage(name string) bool {
	return Extensions[strings.ToLower(filepath.Ext(name))]
}

// Storage is the durable side of a folder
type Storage struct {
	Store  *store.Store
	Tags   *tags.Store
	Thumbs *thumbs.Cache
}

// Close releases the underlying database
func (s *Storage) Close() error {
	return s.Store.Close()
}

// Opener provides the storage of a directory
type Opener func(ctx context.Context, dir string) (*Storage, error)

type Options struct {
	// Workers bounds parallel digesting, runtime.NumCPU() when not positive
	Workers int
	// Pool is the thumbnail render pool, shared across folders
	Pool   *semaphore.Weighted
	Render thumbs.Renderer
	Logger *log.Logger
	// Open replaces OpenStorage; the caller then owns the storage it returns
	Open Opener
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Logger
}

// OpenStorage opens the hidden database of dir and wires the tag store and
// thumbnail cache to it.
func OpenStorage(ctx context.Context, dir string, opts Options) (*Storage, error) {
	s, err := store.Open(ctx, dir, opts.Logger)
	if err != nil {
		return nil, err
	}
	tagStore, err := tags.Open(ctx, repository.NewTagRepository(s), opts.Logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	cache := thumbs.New(repository.NewThumbnailRepository(s), thumbs.Options{
		Render: opts.Render,
		Pool:   opts.Pool,
		Logger: opts.Logger,
	})
	return &Storage{Store: s, Tags: tagStore, Thumbs: cache}, nil
}

// Folder is the indexed, ordered set of images under one directory
type Folder struct {
	path      string
	images    []*Image
	storage   *Storage
	tags      *tags.Store
	thumbs    *thumbs.Cache
	ownsStore bool
}

// Build indexes the directory at path. Files that cannot be digested are
// logged and left out; a directory without images gives an empty folder.
func Build(ctx context.Context, path string, opts Options) (*Folder, error) {
	logger := opts.logger()
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: folder '%s': %w", domain.ErrNotFound, path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: '%s' is not a directory", domain.ErrNotFound, path)
	}

	open := opts.Open
	if open == nil {
		open = func(ctx context.Context, dir string) (*Storage, error) {
			return OpenStorage(ctx, dir, opts)
		}
	}
	storage, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	f := &Folder{
		path:      path,
		storage:   storage,
		tags:      storage.Tags,
		thumbs:    storage.Thumbs,
		ownsStore: opts.Open == nil,
	}

	files, err := listImages(path, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	images, err := digestAll(ctx, files, opts.Workers, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	for _, img := range images {
		img.folder = f
	}
	f.images = images
	logger.Printf("folder: found folder '%s' with %d images", path, len(images))
	return f, nil
}

// listImages returns the sorted image paths directly under dir and one level below
func listImages(dir string, logger *log.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: while listing '%s': %w", domain.ErrIO, dir, err)
	}
	var files []string
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		mode := entryMode(p, entry)
		switch {
		case mode.IsDir():
			sub, err := os.ReadDir(p)
			if err != nil {
				logger.Printf("folder: warning: skipping subfolder '%s': %s", p, err)
				continue
			}
			for _, subEntry := range sub {
				sp := filepath.Join(p, subEntry.Name())
				if entryMode(sp, subEntry).IsRegular() && IsImage(sp) {
					files = append(files, sp)
				}
			}
		case mode.IsRegular() && IsImage(p):
			files = append(files, p)
		}
	}
	sort.Strings(files)
	return files, nil
}

// entryMode follows symlinks so linked files and albums are indexed
func entryMode(p string, entry fs.DirEntry) fs.FileMode {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type()
	}
	info, err := os.Stat(p)
	if err != nil {
		return entry.Type()
	}
	return info.Mode()
}

func digestAll(ctx context.Context, files []string, workers int, logger *log.Logger) ([]*Image, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	digests := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := digest.File(file)
			if err != nil {
				logger.Printf("folder: warning: skipping '%s': %s", file, err)
				return nil
			}
			digests[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	images := make([]*Image, 0, len(files))
	for i, file := range files {
		if digests[i] == "" {
			continue
		}
		images = append(images, &Image{path: file, digest: digests[i]})
	}
	return images, nil
}

func (f *Folder) Path() string { return f.path }

// Name is the base name of the folder, used as the remote directory on upload
func (f *Folder) Name() string {
	return filepath.Base(f.path)
}

// Images are sorted by path
func (f *Folder) Images() []*Image { return f.images }

func (f *Folder) Len() int                  { return len(f.images) }
func (f *Folder) Tags() *tags.Store         { return f.tags }
func (f *Folder) Thumbnails() *thumbs.Cache { return f.thumbs }

// Starred returns the starred images in path order
func (f *Folder) Starred() []*Image {
	var starred []*Image
	for _, img := range f.images {
		if img.Starred() {
			starred = append(starred, img)
		}
	}
	return starred
}

// Position returns the index of img by its path, false if img is not part of f
func (f *Folder) Position(img *Image) (int, bool) {
	i := sort.Search(len(f.images), func(i int) bool {
		return f.images[i].path >= img.path
	})
	if i < len(f.images) && f.images[i].path == img.path {
		return i, true
	}
	return 0, false
}

// Next is the image after img, false at the end of the folder
func (f *Folder) Next(img *Image) (*Image, bool) {
	i, ok := f.Position(img)
	if !ok || i+1 >= len(f.images) {
		return nil, false
	}
	return f.images[i+1], true
}

// Prev is the image before img, false at the start of the folder
func (f *Folder) Prev(img *Image) (*Image, bool) {
	i, ok := f.Position(img)
	if !ok || i == 0 {
		return nil, false
	}
	return f.images[i-1], true
}

// Close releases the storage when the folder opened it itself
func (f *Folder) Close() error {
	if !f.ownsStore {
		return nil
	}
	return f.storage.Close()
}
