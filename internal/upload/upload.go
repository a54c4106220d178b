// Package upload pushes resized copies of starred images to a remote store.
//
// Every image is sent once per configured size under
// <root>/<folder name>/<stem>@<size>.<ext>; objects already on the remote
// are left alone.
package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/folder"
	"github.com/lewtec/barber/internal/picture"
	"github.com/lewtec/barber/internal/remote"
	"golang.org/x/sync/errgroup"
)

// Lister enumerates object keys, relative to the bucket, under a bucket/prefix path
type Lister interface {
	List(ctx context.Context, prefix string) ([]string, error)
}

// Sender stores content at a bucket/key destination
type Sender interface {
	Send(ctx context.Context, content []byte, destination string) error
}

// Resizer produces the upload bytes of the image at path
type Resizer func(path string, maxSide int) ([]byte, error)

func resizeJPEG(p string, maxSide int) ([]byte, error) {
	return picture.Resize(p, maxSide, imaging.JPEG)
}

// Syncer uploads the starred images of folders
type Syncer struct {
	Lister Lister
	Sender Sender
	// Sizes are maximum side lengths, sent smallest first
	Sizes []int
	// Root is bucket[/prefix]
	Root   string
	Policy Policy
	Resize Resizer
	Logger *log.Logger
}

// Report summarizes one folder run
type Report struct {
	RunID   string
	Folder  string
	Sent    int
	Skipped int
	Bytes   uint64
	// Err holds every unit failure of the run
	Err error
}

func (s *Syncer) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return s.Logger
}

// Sync uploads every missing size of the starred images of f
func (s *Syncer) Sync(ctx context.Context, f *folder.Folder) (*Report, error) {
	logger := s.logger()
	report := &Report{RunID: uuid.NewString(), Folder: f.Path()}
	name := f.Name()
	_, rootPrefix := remote.SplitBucket(s.Root)

	listing, err := s.Lister.List(ctx, path.Join(s.Root, name))
	if err != nil {
		report.Err = fmt.Errorf("%w: while listing '%s': %w", domain.ErrNetwork, path.Join(s.Root, name), err)
		return report, report.Err
	}
	present := make(map[string]struct{}, len(listing))
	for _, key := range listing {
		present[key] = struct{}{}
	}

	sizes := slices.Clone(s.Sizes)
	slices.Sort(sizes)
	resize := s.Resize
	if resize == nil {
		resize = resizeJPEG
	}

	var errs *multierror.Error
	starred := f.Starred()
	logger.Printf("upload: run %s: folder '%s', %d starred images", report.RunID, name, len(starred))
	for _, img := range starred {
		for _, size := range sizes {
			if err := ctx.Err(); err != nil {
				errs = multierror.Append(errs, err)
				report.Err = errs.ErrorOrNil()
				return report, report.Err
			}
			file := ObjectName(img, size)
			if _, ok := present[path.Join(rootPrefix, name, file)]; ok {
				report.Skipped++
				continue
			}
			destination := path.Join(s.Root, name, file)
			n, err := s.send(ctx, resize, img, size, destination)
			if err == nil {
				report.Sent++
				report.Bytes += uint64(n)
				logger.Printf("upload: sent '%s'", destination)
				continue
			}
			errs = multierror.Append(errs, err)
			logger.Printf("upload: error: %s", err)
			if s.Policy == AbortRun {
				report.Err = errs.ErrorOrNil()
				return report, report.Err
			}
			if s.Policy == SkipImage {
				break
			}
		}
	}
	report.Err = errs.ErrorOrNil()
	return report, report.Err
}

func (s *Syncer) send(ctx context.Context, resize Resizer, img *folder.Image, size int, destination string) (int, error) {
	content, err := resize(img.Path(), size)
	if err != nil {
		return 0, fmt.Errorf("while resizing '%s' to %d: %w", img.Path(), size, err)
	}
	if err := s.Sender.Send(ctx, content, destination); err != nil {
		return 0, fmt.Errorf("while sending '%s': %w", destination, err)
	}
	return len(content), nil
}

// SyncAll runs Sync on every folder in parallel. Reports keep the order of
// folders; the error joins every failed run.
func (s *Syncer) SyncAll(ctx context.Context, folders []*folder.Folder) ([]*Report, error) {
	reports := make([]*Report, len(folders))
	errs := make([]error, len(folders))
	var g errgroup.Group
	for i, f := range folders {
		g.Go(func() error {
			reports[i], errs[i] = s.Sync(ctx, f)
			return nil
		})
	}
	g.Wait()
	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return reports, merr.ErrorOrNil()
}

// ObjectName is the remote file name of img at size: the stem, the size and
// a JPEG extension (the original one when it already is .jpg or .jpeg)
func ObjectName(img *folder.Image, size int) string {
	ext := path.Ext(img.Name())
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
	default:
		ext = ".jpg"
	}
	return img.Stem() + "@" + strconv.Itoa(size) + ext
}
