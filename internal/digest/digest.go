// Package digest computes the identity of image files.
//
// The identity is an MD5 over the first HeadSize bytes of the file only. It is
// not a content hash of the whole file: two files that differ only after
// HeadSize bytes share an identity. It survives renames and moves and changes
// when the head of the file is edited.
package digest

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/lewtec/barber/internal/domain"
)

// HeadSize is the number of leading bytes that take part in the digest
const HeadSize = 4 * 1024

// File returns the hex digest of the head of the file at path
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: while opening '%s' for digest: %w", domain.ErrIO, path, err)
	}
	defer f.Close()
	sum, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("%w: while reading '%s' for digest: %w", domain.ErrIO, path, err)
	}
	return sum, nil
}

// Reader digests at most HeadSize bytes from r
func Reader(r io.Reader) (string, error) {
	hasher := md5.New()
	if _, err := io.CopyN(hasher, r, HeadSize); err != nil && err != io.EOF {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
