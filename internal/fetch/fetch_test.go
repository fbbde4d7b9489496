package fetch

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/zombified/reliquary/internal/catalog"
)

func newTestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := catalog.Open("sqlite", filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFetchIfMissing_DownloadsAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("tarball contents"))
	}))
	defer srv.Close()

	root := t.TempDir()
	db := newTestCatalog(t)
	f := New(db, root)

	res, err := f.FetchIfMissing("commonjs", "alpha", "stable", "left-pad-1.3.0.tgz", srv.URL)
	if err != nil {
		t.Fatalf("FetchIfMissing: %v", err)
	}
	if !res.Fetched {
		t.Fatalf("expected Fetched=true on first call")
	}

	data, err := os.ReadFile(filepath.Join(root, "alpha", "stable", "left-pad-1.3.0.tgz"))
	if err != nil {
		t.Fatalf("reading persisted relic: %v", err)
	}
	if string(data) != "tarball contents" {
		t.Errorf("got %q", data)
	}

	exists, err := db.RelicExists("alpha", "stable", "left-pad-1.3.0.tgz")
	if err != nil {
		t.Fatalf("RelicExists: %v", err)
	}
	if !exists {
		t.Fatal("expected relic to be registered in catalog")
	}
}

func TestFetchIfMissing_SkipsWhenPresent(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("should not be fetched"))
	}))
	defer srv.Close()

	root := t.TempDir()
	db := newTestCatalog(t)
	f := New(db, root)

	if _, err := f.FetchIfMissing("commonjs", "alpha", "stable", "already-here.tgz", srv.URL); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", hits)
	}

	res, err := f.FetchIfMissing("commonjs", "alpha", "stable", "already-here.tgz", srv.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if res.Fetched {
		t.Error("expected Fetched=false on second call")
	}
	if hits != 1 {
		t.Fatalf("expected still 1 upstream hit, got %d", hits)
	}
}

func TestFetchIfMissing_RejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := t.TempDir()
	db := newTestCatalog(t)
	f := New(db, root)

	if _, err := f.FetchIfMissing("commonjs", "alpha", "stable", "missing.tgz", srv.URL); err == nil {
		t.Fatal("expected error for 404 upstream response")
	}

	if _, err := os.Stat(filepath.Join(root, "alpha", "stable", "missing.tgz")); !os.IsNotExist(err) {
		t.Error("expected no file to be persisted for a non-2xx upstream response")
	}

	exists, err := db.RelicExists("alpha", "stable", "missing.tgz")
	if err != nil {
		t.Fatalf("RelicExists: %v", err)
	}
	if exists {
		t.Error("expected no catalog row for a failed fetch")
	}
}

func TestFetchIfMissing_ConcurrentCallsCollapse(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	root := t.TempDir()
	db := newTestCatalog(t)
	f := New(db, root)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := f.FetchIfMissing("commonjs", "alpha", "stable", "concurrent.tgz", srv.URL)
			errs[idx] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("concurrent fetch error: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if hits != 1 {
		t.Errorf("expected exactly 1 upstream hit across concurrent callers, got %d", hits)
	}
}
