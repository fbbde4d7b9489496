package protocol

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/zombified/reliquary/internal/catalog"
	"github.com/zombified/reliquary/internal/debrepo"
	"github.com/zombified/reliquary/internal/download"
	"github.com/zombified/reliquary/internal/fetch"
)

func newTestService(t *testing.T) (*Service, *catalog.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := catalog.Open("sqlite", filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	root := filepath.Join(dir, "store")
	gen := debrepo.New(db)
	fetcher := fetch.New(db, root)
	emitter := download.New(root, false, "")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(db, root, "http://reliquary.example", gen, fetcher, emitter, logger)
	return svc, db, root
}
