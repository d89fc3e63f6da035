// Package assets serves the playground's static files through a read-through
// edge cache.
package assets

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/philogos/gemini-playground/internal/metrics"
)

var contentTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".txt":  "text/plain",
}

// ContentTypeFor maps a file extension (with leading dot) to its content
// type.
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

type Handler struct {
	root    string
	cache   Cache
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewHandler(root string, cache Cache, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		root:    root,
		cache:   cache,
		log:     logger,
		metrics: m,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := path.Clean("/" + r.URL.Path)
	if p == "/" {
		p = "/index.html"
	}

	if e, ok := h.cache.Get(r.Context(), p); ok {
		h.metrics.Inc(metrics.AssetCacheHit)
		serveEntry(w, e)
		return
	}

	data, err := os.ReadFile(filepath.Join(h.root, filepath.FromSlash(strings.TrimPrefix(p, "/"))))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	e := Entry{Body: data, ContentType: ContentTypeFor(path.Ext(p))}
	h.cache.Set(r.Context(), p, e)
	h.metrics.Inc(metrics.AssetCacheMiss)
	serveEntry(w, e)
}

func serveEntry(w http.ResponseWriter, e Entry) {
	w.Header().Set("Content-Type", e.ContentType)
	_, _ = w.Write(e.Body)
}
