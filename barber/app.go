// Package barber serves a photo collection for browsing and starring
package barber

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lewtec/barber/internal/collection"
	"github.com/lewtec/barber/internal/domain"
	"github.com/lewtec/barber/internal/folder"
)

type App struct {
	Collection *collection.Collection
	Logger     *log.Logger
}

func (a *App) logger() *log.Logger {
	if a.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return a.Logger
}

func (a *App) GetHTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(HTTPLogger(a.logger()))

	r.Get("/", a.index)
	r.Get("/folder/{name}/{pos}", a.folder)
	r.Get("/img/{digest}/{filename}", a.image)
	r.Post("/star/{digest}/{filename}", a.star)
	r.Get("/solo/{digest}/{filename}", a.solo)
	r.Post("/refresh", a.refresh)
	return r
}

// fail maps err to a status code and writes it
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDecode):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		a.logger().Printf("error: http: %s %s: %s", r.Method, r.URL.Path, err)
	}
	http.Error(w, http.StatusText(status), status)
}

// render buffers the page so a template failure still yields a clean 500
func (a *App) render(w http.ResponseWriter, r *http.Request, page Page) {
	var buf bytes.Buffer
	if err := RenderPage(&buf, page); err != nil {
		a.fail(w, r, fmt.Errorf("while rendering '%s': %w", page.Title, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func (a *App) index(w http.ResponseWriter, r *http.Request) {
	groups, err := a.Collection.Groups(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# barber\n\n")
	fmt.Fprintf(&markdownBuilder, "<form method=\"post\" action=\"/refresh\"><button>Refresh</button></form>\n\n")
	for _, group := range groups {
		fmt.Fprintf(&markdownBuilder, "## %s\n\n", escape(group.Name))
		if len(group.Folders) == 0 {
			fmt.Fprintf(&markdownBuilder, "_No folders_\n\n")
			continue
		}
		for i, f := range group.Folders {
			fmt.Fprintf(&markdownBuilder, "- [%s](%s) (%d images, %d starred)\n",
				escape(f.Name()), link("folder", group.Name, strconv.Itoa(i+1)), f.Len(), len(f.Starred()))
		}
		fmt.Fprintf(&markdownBuilder, "\n")
	}
	a.render(w, r, Page{Title: "Collection", Content: markdownBuilder.String()})
}

func (a *App) folder(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	pos, err := strconv.Atoi(chi.URLParam(r, "pos"))
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: bad folder position: %w", domain.ErrNotFound, err))
		return
	}
	f, err := a.Collection.Folder(r.Context(), name, pos)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# [<](/) %s / %s\n\n", escape(name), escape(f.Name()))
	fmt.Fprintf(&markdownBuilder, "%d images, %d starred\n\n", f.Len(), len(f.Starred()))
	for _, img := range f.Images() {
		fmt.Fprintf(&markdownBuilder, "[![%s](%s?thumb=1)](%s) ",
			escape(img.Name()), link("img", img.Digest(), img.Name()), link("solo", img.Digest(), img.Name()))
		if img.Starred() {
			fmt.Fprintf(&markdownBuilder, "★ ")
		}
	}
	fmt.Fprintf(&markdownBuilder, "\n")
	a.render(w, r, Page{Title: f.Name(), Class: "grid", Content: markdownBuilder.String()})
}

func (a *App) lookup(r *http.Request) (*folder.Image, error) {
	return a.Collection.Lookup(r.Context(), chi.URLParam(r, "digest"))
}

func (a *App) image(w http.ResponseWriter, r *http.Request) {
	img, err := a.lookup(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if thumb, _ := strconv.ParseBool(r.URL.Query().Get("thumb")); thumb {
		content, err := img.Thumbnail(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		w.Header().Set("Content-Type", img.ContentType())
		w.Header().Set("Cache-Control", "max-age=86400")
		w.Write(content)
		return
	}
	f, err := img.Open()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: %w", domain.ErrIO, err))
		return
	}
	w.Header().Set("Content-Type", img.ContentType())
	http.ServeContent(w, r, img.Name(), info.ModTime(), f)
}

func (a *App) star(w http.ResponseWriter, r *http.Request) {
	img, err := a.lookup(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	starred, err := img.FlipStar(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, starMark(starred))
}

func (a *App) solo(w http.ResponseWriter, r *http.Request) {
	img, err := a.lookup(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var markdownBuilder strings.Builder
	fmt.Fprintf(&markdownBuilder, "# %s\n\n", escape(img.Name()))
	if prev, ok := img.Prev(); ok {
		fmt.Fprintf(&markdownBuilder, "[< prev](%s) ", link("solo", prev.Digest(), prev.Name()))
	}
	if next, ok := img.Next(); ok {
		fmt.Fprintf(&markdownBuilder, "[next >](%s)", link("solo", next.Digest(), next.Name()))
	}
	fmt.Fprintf(&markdownBuilder, "\n\n")
	fmt.Fprintf(&markdownBuilder, "<form class=\"star\" method=\"post\" action=\"%s\"><button>%s</button></form>\n\n",
		link("star", img.Digest(), img.Name()), starMark(img.Starred()))
	fmt.Fprintf(&markdownBuilder, "[![%s](%s)](%s)\n", escape(img.Name()), link("img", img.Digest(), img.Name()), link("img", img.Digest(), img.Name()))
	a.render(w, r, Page{Title: img.Name(), Content: markdownBuilder.String()})
}

func (a *App) refresh(w http.ResponseWriter, r *http.Request) {
	if err := a.Collection.Refresh(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
