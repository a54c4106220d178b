package folder

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/store"
)

// writeImage encodes a small picture; seed makes the bytes distinct
func writeImage(t *testing.T, path string, seed uint8) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	m := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := 0; x < 32; x++ {
		m.Set(x, int(seed)%24, color.RGBA{seed, uint8(x), 0, 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if filepath.Ext(path) == ".png" {
		err = png.Encode(f, m)
	} else {
		err = jpeg.Encode(f, m, nil)
	}
	if err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
}

func buildFolder(t *testing.T, dir string) *Folder {
	t.Helper()
	f, err := Build(context.Background(), dir, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBuild(t *testing.T) {
	t.Run("filters and sorts images one level deep", func(t *testing.T) {
		dir := t.TempDir()
		writeImage(t, filepath.Join(dir, "a.jpg"), 1)
		os.WriteFile(filepath.Join(dir, "b.txt"), []byte("notes"), 0644)
		writeImage(t, filepath.Join(dir, "sub", "c.png"), 2)
		writeImage(t, filepath.Join(dir, "sub", "deeper", "d.jpg"), 3)

		f := buildFolder(t, dir)
		got := make([]string, 0, f.Len())
		for _, img := range f.Images() {
			rel, _ := filepath.Rel(dir, img.Path())
			got = append(got, rel)
		}
		want := []string{"a.jpg", filepath.Join("sub", "c.png")}
		if len(got) != len(want) {
			t.Fatalf("images = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("images[%d] = %s, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("extensions are case-insensitive", func(t *testing.T) {
		dir := t.TempDir()
		writeImage(t, filepath.Join(dir, "UPPER.JPG"), 1)
		writeImage(t, filepath.Join(dir, "mixed.JpEg"), 2)
		if n := buildFolder(t, dir).Len(); n != 2 {
			t.Errorf("Len() = %d, want 2", n)
		}
	})

	t.Run("creates the hidden store", func(t *testing.T) {
		dir := t.TempDir()
		buildFolder(t, dir)
		if _, err := os.Stat(filepath.Join(dir, store.FileName)); err != nil {
			t.Errorf("store not created: %v", err)
		}
	})

	t.Run("empty directory is a valid folder", func(t *testing.T) {
		f := buildFolder(t, t.TempDir())
		if f.Len() != 0 {
			t.Errorf("Len() = %d, want 0", f.Len())
		}
	})

	t.Run("missing directory is not found", func(t *testing.T) {
		_, err := Build(context.Background(), filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("a file is not a folder", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "file.jpg")
		writeImage(t, p, 1)
		_, err := Build(context.Background(), p, Options{})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestDigestAll_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.jpg")
	writeImage(t, good, 1)
	files := []string{good, filepath.Join(dir, "vanished.jpg")}

	images, err := digestAll(context.Background(), files, 2, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("digestAll() error = %v", err)
	}
	if len(images) != 1 || images[0].Path() != good {
		t.Errorf("images = %v, want only %s", images, good)
	}
}

func TestNavigation(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"1.jpg", "2.jpg", "3.jpg"} {
		writeImage(t, filepath.Join(dir, name), uint8(i+1))
	}
	f := buildFolder(t, dir)
	first, middle, last := f.Images()[0], f.Images()[1], f.Images()[2]

	if next, ok := first.Next(); !ok || next != middle {
		t.Errorf("first.Next() = %v, %v; want middle", next, ok)
	}
	if prev, ok := last.Prev(); !ok || prev != middle {
		t.Errorf("last.Prev() = %v, %v; want middle", prev, ok)
	}
	if _, ok := last.Next(); ok {
		t.Error("last.Next() should report no next image")
	}
	if _, ok := first.Prev(); ok {
		t.Error("first.Prev() should report no previous image")
	}

	t.Run("uses the path key, not the instance", func(t *testing.T) {
		twin := &Image{path: middle.Path(), digest: middle.Digest(), folder: f}
		if next, ok := f.Next(twin); !ok || next != last {
			t.Errorf("Next(twin) = %v, %v; want last", next, ok)
		}
		stranger := &Image{path: filepath.Join(dir, "0.jpg")}
		if _, ok := f.Next(stranger); ok {
			t.Error("Next() of an image outside the folder should be absent")
		}
	})
}

func TestImageState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "shot.png"), 9)
	f := buildFolder(t, dir)
	img := f.Images()[0]

	if img.Stem() != "shot" || img.ContentType() != "image/png" {
		t.Errorf("Stem() = %s, ContentType() = %s", img.Stem(), img.ContentType())
	}

	starred, err := img.FlipStar(ctx)
	if err != nil || !starred {
		t.Fatalf("FlipStar() = %v, %v", starred, err)
	}
	if len(f.Starred()) != 1 {
		t.Errorf("Starred() = %d images, want 1", len(f.Starred()))
	}

	thumb, err := img.Thumbnail(ctx)
	if err != nil || len(thumb) == 0 {
		t.Fatalf("Thumbnail() = %d bytes, %v", len(thumb), err)
	}

	rc, err := img.Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	if b, _ := io.ReadAll(rc); len(b) == 0 {
		t.Error("Open() returned an empty file")
	}

	t.Run("state survives a rebuild", func(t *testing.T) {
		f.Close()
		rebuilt := buildFolder(t, dir)
		if !rebuilt.Images()[0].Starred() {
			t.Error("star lost after rebuilding the folder")
		}
		if n, _ := rebuilt.Thumbnails().Len(ctx); n != 1 {
			t.Errorf("cached thumbnails = %d, want 1", n)
		}
	})
}

func TestBuild_SiblingsWithPatternCharacters(t *testing.T) {
	ctx := context.Background()
	parent := t.TempDir()
	first := filepath.Join(parent, "trip?1")
	second := filepath.Join(parent, "trip?2")
	writeImage(t, filepath.Join(first, "a.jpg"), 1)
	writeImage(t, filepath.Join(second, "a.jpg"), 1)

	f1 := buildFolder(t, first)
	f2 := buildFolder(t, second)
	for _, dir := range []string{first, second} {
		if _, err := os.Stat(filepath.Join(dir, store.FileName)); err != nil {
			t.Errorf("no store inside '%s': %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(parent, "trip")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stray file next to the folders: %v", err)
	}

	if _, err := f1.Images()[0].FlipStar(ctx); err != nil {
		t.Fatal(err)
	}
	f2.Close()
	rebuilt := buildFolder(t, second)
	if rebuilt.Images()[0].Starred() {
		t.Error("star leaked into the sibling folder")
	}
}
