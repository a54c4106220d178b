package collection

import (
	"log"

	"github.com/lewtec/barber/internal/folder"
)

// Registry maps identities to images. It is built whole with the folders of a
// collection and never modified afterwards; a rebuild produces a new one.
type Registry struct {
	byDigest map[string]*folder.Image
}

func newRegistry(order []string, folders map[string][]*folder.Folder, logger *log.Logger) *Registry {
	r := &Registry{byDigest: make(map[string]*folder.Image)}
	for _, name := range order {
		for _, f := range folders[name] {
			for _, img := range f.Images() {
				if prev, ok := r.byDigest[img.Digest()]; ok && prev.Path() != img.Path() {
					// prefix digests can collide, the later image wins
					logger.Printf("collection: warning: '%s' and '%s' share identity %s, keeping the latter", prev.Path(), img.Path(), img.Digest())
				}
				r.byDigest[img.Digest()] = img
			}
		}
	}
	return r
}

// Lookup finds the image registered for digest
func (r *Registry) Lookup(digest string) (*folder.Image, bool) {
	img, ok := r.byDigest[digest]
	return img, ok
}

// Len is the number of distinct identities
func (r *Registry) Len() int {
	return len(r.byDigest)
}
