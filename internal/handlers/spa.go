package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SPAHandler serves the prebuilt console bundle. Paths that do not name a
// file fall back to index.html so client-side routes resolve.
type SPAHandler struct {
	home string
}

// NewSPAHandler creates a handler serving files under home
func NewSPAHandler(home string) *SPAHandler {
	absHome, err := filepath.Abs(home)
	if err != nil {
		absHome = home
	}
	return &SPAHandler{home: absHome}
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		respondMessage(w, http.StatusNotFound, "Not found")
		return
	}

	index := filepath.Join(h.home, "index.html")
	target := filepath.Join(h.home, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))

	// target must stay under home
	if rel, err := filepath.Rel(h.home, target); err != nil || strings.HasPrefix(rel, "..") {
		target = index
	}

	if info, err := os.Stat(target); err != nil || info.IsDir() {
		target = index
	}
	f, err := os.Open(target)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
