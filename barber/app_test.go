package barber

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lewtec/barber/internal/collection"
	"github.com/lewtec/barber/internal/folder"
)

func writeJPEG(t *testing.T, p string, seed uint8) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	m := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		m.Set(x, int(seed)%30, color.RGBA{seed, uint8(x), 0, 255})
	}
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, m, nil); err != nil {
		t.Fatal(err)
	}
}

type testApp struct {
	dir     string
	coll    *collection.Collection
	handler http.Handler
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "2023")
	writeJPEG(t, filepath.Join(dir, "a.jpg"), 1)
	writeJPEG(t, filepath.Join(dir, "b.jpg"), 2)
	coll := collection.New(folder.Options{Workers: 2})
	coll.AddSource("trips", dir)
	t.Cleanup(func() { coll.Close() })
	app := &App{Collection: coll}
	return &testApp{dir: dir, coll: coll, handler: app.GetHTTPHandler()}
}

func (a *testApp) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) image(t *testing.T, name string) *folder.Image {
	t.Helper()
	f, err := a.coll.Folder(context.Background(), "trips", 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, img := range f.Images() {
		if img.Name() == name {
			return img
		}
	}
	t.Fatalf("no image %s", name)
	return nil
}

func TestIndex(t *testing.T) {
	a := setupApp(t)
	rec := a.do(t, http.MethodGet, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"trips", `href="/folder/trips/1"`, "2 images, 0 starred"} {
		if !strings.Contains(body, want) {
			t.Errorf("index does not contain %q:\n%s", want, body)
		}
	}
}

func TestFolderPage(t *testing.T) {
	a := setupApp(t)
	img := a.image(t, "a.jpg")

	rec := a.do(t, http.MethodGet, "/folder/trips/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /folder/trips/1 = %d", rec.Code)
	}
	if want := "/img/" + img.Digest() + "/a.jpg?thumb=1"; !strings.Contains(rec.Body.String(), want) {
		t.Errorf("folder page does not link %s", want)
	}

	for _, target := range []string{"/folder/trips/2", "/folder/trips/0", "/folder/trips/x", "/folder/nope/1"} {
		if rec := a.do(t, http.MethodGet, target); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, rec.Code)
		}
	}
}

func TestImage(t *testing.T) {
	a := setupApp(t)
	img := a.image(t, "a.jpg")

	t.Run("full", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/img/"+img.Digest()+"/a.jpg")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Content-Type = %s", ct)
		}
		want, _ := os.ReadFile(img.Path())
		if !bytes.Equal(rec.Body.Bytes(), want) {
			t.Errorf("body differs from the original file")
		}
	})

	t.Run("thumbnail", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/img/"+img.Digest()+"/a.jpg?thumb=1")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if _, err := jpeg.Decode(rec.Body); err != nil {
			t.Errorf("thumbnail is not a JPEG: %v", err)
		}
	})

	t.Run("unknown digest", func(t *testing.T) {
		rec := a.do(t, http.MethodGet, "/img/ffffffffffffffffffffffffffffffff/x.jpg")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("undecodable thumbnail", func(t *testing.T) {
		broken := filepath.Join(a.dir, "c.jpg")
		if err := os.WriteFile(broken, []byte("not an image at all"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := a.coll.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
		c := a.image(t, "c.jpg")
		rec := a.do(t, http.MethodGet, "/img/"+c.Digest()+"/c.jpg?thumb=1")
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestStar(t *testing.T) {
	a := setupApp(t)
	img := a.image(t, "b.jpg")
	target := "/star/" + img.Digest() + "/b.jpg"

	for _, want := range []string{"★", "☆", "★"} {
		rec := a.do(t, http.MethodPost, target)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST %s = %d", target, rec.Code)
		}
		if got, _ := io.ReadAll(rec.Body); string(got) != want {
			t.Errorf("POST %s = %q, want %q", target, got, want)
		}
	}
	if !img.Starred() {
		t.Error("image not starred after three flips")
	}
	if rec := a.do(t, http.MethodGet, target); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET %s = %d, want 405", target, rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/star/ffffffffffffffffffffffffffffffff/x.jpg"); rec.Code != http.StatusNotFound {
		t.Errorf("POST unknown star = %d, want 404", rec.Code)
	}
}

func TestSolo(t *testing.T) {
	a := setupApp(t)
	first, second := a.image(t, "a.jpg"), a.image(t, "b.jpg")

	body := a.do(t, http.MethodGet, "/solo/"+first.Digest()+"/a.jpg").Body.String()
	if !strings.Contains(body, "/solo/"+second.Digest()+"/b.jpg") {
		t.Errorf("first image does not link the next one")
	}
	if strings.Contains(body, "prev</a>") {
		t.Errorf("first image links a previous one")
	}

	body = a.do(t, http.MethodGet, "/solo/"+second.Digest()+"/b.jpg").Body.String()
	if !strings.Contains(body, "/solo/"+first.Digest()+"/a.jpg") {
		t.Errorf("last image does not link the previous one")
	}
	if strings.Contains(body, ">next") {
		t.Errorf("last image links a next one")
	}
}

func TestRefresh(t *testing.T) {
	a := setupApp(t)
	a.do(t, http.MethodGet, "/")
	writeJPEG(t, filepath.Join(a.dir, "c.jpg"), 3)

	rec := a.do(t, http.MethodPost, "/refresh")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST /refresh = %d, want 303", rec.Code)
	}
	if body := a.do(t, http.MethodGet, "/").Body.String(); !strings.Contains(body, "3 images") {
		t.Errorf("index after refresh:\n%s", body)
	}
}
