package assets

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/philogos/gemini-playground/internal/metrics"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := map[string]string{
		".html": "text/html",
		".js":   "application/javascript",
		".SVG":  "image/svg+xml",
		".wasm": "application/octet-stream",
		"":      "application/octet-stream",
	}
	for ext, want := range cases {
		if got := ContentTypeFor(ext); got != want {
			t.Errorf("ContentTypeFor(%q)=%q, want %q", ext, got, want)
		}
	}
}

func TestHandler_ServesIndexAndCaches(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<html>playground</html>")

	m := metrics.New()
	h := NewHandler(dir, newMemoryCache(time.Minute), m, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	resp := rec.Result()
	if resp.StatusCode != 200 {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html" {
		t.Fatalf("content-type=%q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<html>playground</html>" {
		t.Fatalf("body=%q", body)
	}
	if m.Get(metrics.AssetCacheMiss) != 1 {
		t.Fatalf("expected one cache miss")
	}

	// Second hit comes from the cache, even after the file changes on disk.
	writeFile(t, dir, "index.html", "changed")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	body, _ = io.ReadAll(rec.Result().Body)
	if string(body) != "<html>playground</html>" {
		t.Fatalf("cached body=%q", body)
	}
	if m.Get(metrics.AssetCacheHit) != 1 {
		t.Fatalf("expected one cache hit")
	}
}

func TestHandler_MissingFileIs404AndNotCached(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()
	cache := newMemoryCache(time.Minute)
	h := NewHandler(dir, cache, m, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/missing.js", nil))
	if rec.Result().StatusCode != 404 {
		t.Fatalf("status=%d, want 404", rec.Result().StatusCode)
	}

	// Create the file; the next request must see it.
	writeFile(t, dir, "missing.js", "console.log(1)")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/missing.js", nil))
	resp := rec.Result()
	if resp.StatusCode != 200 {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/javascript" {
		t.Fatalf("content-type=%q", ct)
	}
}

func TestHandler_PathTraversalStaysUnderRoot(t *testing.T) {
	dir := t.TempDir()
	parent := filepath.Dir(dir)
	writeFile(t, parent, "secret.txt", "secret")

	h := NewHandler(dir, newMemoryCache(time.Minute), metrics.New(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/../secret.txt", nil))
	if rec.Result().StatusCode != 404 {
		t.Fatalf("status=%d, want 404", rec.Result().StatusCode)
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := newMemoryCache(10 * time.Millisecond)
	c.Set(context.Background(), "/a", Entry{Body: []byte("x"), ContentType: "text/plain"})

	if _, ok := c.Get(context.Background(), "/a"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get(context.Background(), "/a"); ok {
		t.Fatalf("expected miss after expiry")
	}
}
