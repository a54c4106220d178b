// Package collection groups folders under the names of configured sources.
//
// Sources are name -> pattern pairs. The folders are built on first use and
// kept until Refresh, which rebuilds them and swaps the folders and the
// identity registry in one step.
package collection

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/folder"
	"github.com/lewtec/barber/internal/thumbs"
)

// Source is a configured name -> pattern pair
type Source struct {
	Name    string
	Pattern string
}

type snapshot struct {
	names    []string
	folders  map[string][]*folder.Folder
	registry *Registry
}

// Collection is the named set of indexed folders
type Collection struct {
	opts   folder.Options
	logger *log.Logger

	mu       sync.Mutex
	sources  []Source
	storages map[string]*folder.Storage

	current atomic.Pointer[snapshot]
}

// New creates an empty collection; opts are used for every folder it builds.
// Without a render pool in opts, one sized by opts.Workers is shared by all
// folders.
func New(opts folder.Options) *Collection {
	if opts.Pool == nil {
		opts.Pool = thumbs.NewPool(opts.Workers)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Collection{
		opts:     opts,
		logger:   logger,
		storages: make(map[string]*folder.Storage),
	}
}

// AddSource records a pattern under name. A known name keeps its position and
// gets the new pattern. Changes apply to the next build, so once the folders
// are built they need a Refresh.
func (c *Collection) AddSource(name, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.sources {
		if c.sources[i].Name == name {
			c.sources[i].Pattern = pattern
			return
		}
	}
	c.sources = append(c.sources, Source{Name: name, Pattern: pattern})
}

// Sources returns the configured sources in configuration order
func (c *Collection) Sources() []Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Source(nil), c.sources...)
}

// Names returns the source names of the current build in configuration order
func (c *Collection) Names(ctx context.Context) ([]string, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.names, nil
}

// Group is the folders of one source
type Group struct {
	Name    string
	Folders []*folder.Folder
}

// Groups returns the folders of every source in configuration order, all from
// the same build
func (c *Collection) Groups(ctx context.Context) ([]Group, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(snap.names))
	for _, name := range snap.names {
		groups = append(groups, Group{Name: name, Folders: snap.folders[name]})
	}
	return groups, nil
}

// Folders returns the folders of every source, building them on first use
func (c *Collection) Folders(ctx context.Context) (map[string][]*folder.Folder, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.folders, nil
}

// Folder returns the pos-th (1-based) folder of source name
func (c *Collection) Folder(ctx context.Context, name string, pos int) (*folder.Folder, error) {
	folders, err := c.Folders(ctx)
	if err != nil {
		return nil, err
	}
	list, ok := folders[name]
	if !ok {
		return nil, fmt.Errorf("%w: no source named '%s'", domain.ErrNotFound, name)
	}
	if pos < 1 || pos > len(list) {
		return nil, fmt.Errorf("%w: source '%s' has no folder %d", domain.ErrNotFound, name, pos)
	}
	return list[pos-1], nil
}

// Registry returns the identity registry of the current build
func (c *Collection) Registry(ctx context.Context) (*Registry, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.registry, nil
}

// Lookup finds an image of the collection by identity
func (c *Collection) Lookup(ctx context.Context, digest string) (*folder.Image, error) {
	registry, err := c.Registry(ctx)
	if err != nil {
		return nil, err
	}
	img, ok := registry.Lookup(digest)
	if !ok {
		return nil, fmt.Errorf("%w: no image with identity '%s'", domain.ErrNotFound, digest)
	}
	return img, nil
}

// Refresh rebuilds every folder and replaces the current build at once.
// Readers keep the build they already hold until they ask again.
func (c *Collection) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, err := c.build(ctx)
	if err != nil {
		return err
	}
	c.current.Store(snap)
	return nil
}

func (c *Collection) snapshot(ctx context.Context) (*snapshot, error) {
	if snap := c.current.Load(); snap != nil {
		return snap, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap := c.current.Load(); snap != nil {
		return snap, nil
	}
	snap, err := c.build(ctx)
	if err != nil {
		return nil, err
	}
	c.current.Store(snap)
	return snap, nil
}

// build must be called with c.mu held
func (c *Collection) build(ctx context.Context) (*snapshot, error) {
	snap := &snapshot{folders: make(map[string][]*folder.Folder, len(c.sources))}
	opts := c.opts
	opts.Open = c.openStorage
	for _, src := range c.sources {
		paths, err := c.resolve(src.Pattern)
		if err != nil {
			return nil, fmt.Errorf("while resolving source '%s': %w", src.Name, err)
		}
		folders := make([]*folder.Folder, 0, len(paths))
		for _, p := range paths {
			f, err := folder.Build(ctx, p, opts)
			if err != nil {
				return nil, fmt.Errorf("while building source '%s': %w", src.Name, err)
			}
			folders = append(folders, f)
		}
		snap.names = append(snap.names, src.Name)
		snap.folders[src.Name] = folders
	}
	snap.registry = newRegistry(snap.names, snap.folders, c.logger)
	c.logger.Printf("collection: built %d sources, %d identities", len(snap.names), snap.registry.Len())
	return snap, nil
}

// openStorage keeps one storage per directory across rebuilds, so tag mirrors
// and in-flight thumbnails stay shared by old and new builds.
func (c *Collection) openStorage(ctx context.Context, dir string) (*folder.Storage, error) {
	key, err := filepath.Abs(dir)
	if err != nil {
		key = dir
	}
	if s, ok := c.storages[key]; ok {
		return s, nil
	}
	s, err := folder.OpenStorage(ctx, dir, c.opts)
	if err != nil {
		return nil, err
	}
	c.storages[key] = s
	return s, nil
}

// resolve turns a pattern into folder paths: every matching directory of a
// glob in lexical order, or the literal path.
func (c *Collection) resolve(pattern string) ([]string, error) {
	pattern, err := ExpandHome(pattern)
	if err != nil {
		return nil, err
	}
	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern '%s': %w", pattern, err)
	}
	sort.Strings(matches)
	dirs := matches[:0]
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.IsDir() {
			c.logger.Printf("collection: warning: skipping '%s', not a directory", m)
			continue
		}
		dirs = append(dirs, m)
	}
	return dirs, nil
}

// ExpandHome replaces a leading ~ with the home directory
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("while expanding '%s': %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// Close releases the storage of every folder ever built
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for key, s := range c.storages {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.storages, key)
	}
	c.current.Store(nil)
	return firstErr
}
