// Package picture turns image files into resized, upright JPEG or PNG bytes.
package picture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/lewtec/barber/internal/domain"
)

// JPEGQuality is used for every JPEG this package produces
const JPEGQuality = 90

// FormatFor picks the output family for a source file: PNG stays PNG, anything else is JPEG
func FormatFor(path string) imaging.Format {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		return imaging.PNG
	}
	return imaging.JPEG
}

// Decode reads the image at path and rotates it upright according to its EXIF orientation
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: while opening '%s': %w", domain.ErrIO, path, err)
	}
	defer f.Close()
	orientation := Orientation(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: while rewinding '%s': %w", domain.ErrIO, path, err)
	}
	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: while decoding '%s': %w", domain.ErrDecode, path, err)
	}
	return Orient(m, orientation), nil
}

// Orientation returns the EXIF orientation tag of r, 1 when there is none
func Orientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

// Orient applies an EXIF orientation value so the result is upright
func Orient(m image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(m)
	case 3:
		return imaging.Rotate180(m)
	case 4:
		return imaging.FlipV(m)
	case 5:
		return imaging.Transpose(m)
	case 6:
		return imaging.Rotate270(m)
	case 7:
		return imaging.Transverse(m)
	case 8:
		return imaging.Rotate90(m)
	}
	return m
}

// Resize decodes path, fits it within maxSide x maxSide without upscaling and
// encodes it in format.
func Resize(path string, maxSide int, format imaging.Format) ([]byte, error) {
	if maxSide <= 0 {
		return nil, fmt.Errorf("invalid size %d for '%s'", maxSide, path)
	}
	m, err := Decode(path)
	if err != nil {
		return nil, err
	}
	m = imaging.Fit(m, maxSide, maxSide, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, m, format, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("while encoding '%s': %w", path, err)
	}
	return buf.Bytes(), nil
}

// Thumbnail resizes path keeping the family of the source format
func Thumbnail(path string, maxSide int) ([]byte, error) {
	return Resize(path, maxSide, FormatFor(path))
}
