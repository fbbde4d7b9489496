// Package fetch implements the Fetch-on-Miss path, per spec.md §4.7: when a
// proxy route's relic is absent locally, download it from an upstream URL,
// persist it, and register it in the catalog.
package fetch

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zombified/reliquary/internal/catalog"
	"github.com/zombified/reliquary/internal/metrics"
	"github.com/zombified/reliquary/internal/patharbiter"
)

// Fetcher downloads and persists relics missing from local storage,
// deduplicating concurrent requests for the same relic.
type Fetcher struct {
	db     *catalog.DB
	root   string
	client *http.Client
	group  singleflight.Group
}

// New creates a Fetcher rooted at root (reliquary.location).
func New(db *catalog.DB, root string) *Fetcher {
	return &Fetcher{
		db:     db,
		root:   root,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Result describes the outcome of a fetch-or-confirm call.
type Result struct {
	Path    string
	Fetched bool // true if this call performed the download
}

// FetchIfMissing ensures (channel, index, relicName) exists locally, fetching
// it from upstream if not. Concurrent calls for the same key collapse into a
// single download via singleflight, so two simultaneous requests for the
// same missing relic never race to write the same file. protocol labels the
// cache/upstream metrics ("python" or "commonjs", per the proxy shim
// calling in).
func (f *Fetcher) FetchIfMissing(protocol, channel, index, relicName, upstream string) (Result, error) {
	key := channel + "/" + index + "/" + relicName

	v, err, _ := f.group.Do(key, func() (interface{}, error) {
		return f.fetchIfMissing(protocol, channel, index, relicName, upstream)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (f *Fetcher) fetchIfMissing(protocol, channel, index, relicName, upstream string) (Result, error) {
	exists, err := f.db.RelicExists(channel, index, relicName)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: checking existence: %w", err)
	}

	paths, err := patharbiter.Validate(f.root, channel, index, relicName)
	if err != nil {
		return Result{}, err
	}

	if exists {
		metrics.RecordCacheHit(protocol)
		return Result{Path: paths.RelicPath, Fetched: false}, nil
	}
	metrics.RecordCacheMiss(protocol)

	if err := os.MkdirAll(paths.RelicFolder, 0755); err != nil {
		return Result{}, fmt.Errorf("fetch: creating %q: %w", paths.RelicFolder, err)
	}

	req, err := http.NewRequest(http.MethodGet, upstream, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: building request for %q: %w", upstream, err)
	}

	fetchStart := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamError(protocol, "request_failed")
		return Result{}, fmt.Errorf("fetch: downloading %q: %w", upstream, err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamFetch(protocol, time.Since(fetchStart))

	// Require 2xx before persisting — spec.md §9 item 4's recommended fix
	// over the original's unconditional write.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordUpstreamError(protocol, "bad_status")
		return Result{}, fmt.Errorf("fetch: upstream %q returned %s", upstream, resp.Status)
	}

	out, err := os.Create(paths.RelicPath)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: creating %q: %w", paths.RelicPath, err)
	}
	size, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		return Result{}, fmt.Errorf("fetch: writing %q: %w", paths.RelicPath, copyErr)
	}
	if closeErr != nil {
		return Result{}, fmt.Errorf("fetch: closing %q: %w", paths.RelicPath, closeErr)
	}

	info, err := os.Stat(paths.RelicPath)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: stat %q: %w", paths.RelicPath, err)
	}
	mtime := strconv.FormatFloat(float64(info.ModTime().UnixNano())/1e9, 'f', -1, 64)

	chanID, err := f.db.UpsertChannel(channel)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: upserting channel %q: %w", channel, err)
	}
	idxID, err := f.db.UpsertIndex(chanID, index)
	if err != nil {
		return Result{}, fmt.Errorf("fetch: upserting index %q/%q: %w", channel, index, err)
	}
	if _, err := f.db.InsertRelic(idxID, relicName, mtime, size); err != nil {
		return Result{}, fmt.Errorf("fetch: inserting relic %q: %w", paths.RelicPath, err)
	}

	return Result{Path: paths.RelicPath, Fetched: true}, nil
}
