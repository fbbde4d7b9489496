// Package protocol implements the HTTP-facing protocol shims — raw
// upload/download, autoindex, PyPI simple, CommonJS/npm registry, and
// Debian repository surfaces — per spec.md §4.9 and the URL surface in §6.
//
// Every handler is a thin translation layer: it resolves chi URL params,
// delegates to internal/catalog, internal/debrepo, internal/fetch,
// internal/download, and internal/storage, and shapes the result as HTML or
// JSON. No handler touches the database directly; PutRaw alone touches the
// filesystem, to stat the stored relic and, when the storage root could not
// be opened, to write it directly.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/zombified/reliquary/internal/catalog"
	"github.com/zombified/reliquary/internal/debrepo"
	"github.com/zombified/reliquary/internal/download"
	"github.com/zombified/reliquary/internal/fetch"
	"github.com/zombified/reliquary/internal/patharbiter"
	"github.com/zombified/reliquary/internal/storage"
)

// formatMtime mirrors the mtime encoding used throughout reindex/fetch: a
// decimal Unix timestamp in fractional seconds, formatted as the shortest
// float64 representation (so finer than microseconds is lost), matching
// Python's os.path.getmtime() float formatting.
func formatMtime(info fs.FileInfo) string {
	return strconv.FormatFloat(float64(info.ModTime().UnixNano())/1e9, 'f', -1, 64)
}

const (
	defaultPyPIUpstream      = "https://pypi.org"
	defaultNPMUpstream       = "https://registry.npmjs.org"
	defaultPyPIFilesUpstream = "https://files.pythonhosted.org"
)

// Service holds the collaborators every protocol shim needs. One Service is
// shared by all shims registered on a server.
type Service struct {
	DB      *catalog.DB
	Root    string
	BaseURL string
	Debrepo *debrepo.Generator
	Fetcher *fetch.Fetcher
	Emitter *download.Emitter
	FS      *storage.Filesystem
	Logger  *slog.Logger
	HTTP     *http.Client
	PyPIURL  string
	NPMURL   string
	FilesURL string
}

// NewService builds a Service, filling in the upstream URLs used by the
// proxy shims when they are left blank. The relic root is also opened as a
// storage.Filesystem, giving PutRaw an atomic temp-file-then-rename write
// path instead of writing the request body straight into place.
func NewService(db *catalog.DB, root, baseURL string, gen *debrepo.Generator, fetcher *fetch.Fetcher, emitter *download.Emitter, logger *slog.Logger) *Service {
	fs, err := storage.NewFilesystem(root)
	if err != nil {
		logger.Warn("opening relic storage root, falling back to direct writes", "root", root, "error", err)
	}
	return &Service{
		DB:      db,
		Root:    root,
		BaseURL: baseURL,
		Debrepo: gen,
		Fetcher: fetcher,
		Emitter: emitter,
		FS:      fs,
		Logger:  logger,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		PyPIURL:  defaultPyPIUpstream,
		NPMURL:   defaultNPMUpstream,
		FilesURL: defaultPyPIFilesUpstream,
	}
}

// JSONError writes the spec's `{"status":"error","message":"..."}` error
// envelope (spec.md §7).
func JSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}

// writeArbiterError maps a Path Arbiter error to the 500-style JSON
// responses spec.md §7 mandates — never a 404, since an arbiter failure is
// a configuration or request-shape defect, not a missing resource. It also
// handles the Download Emitter's one non-arbiter error, since every caller
// of the Emitter already funnels its error return through here: spec.md
// §4.8/§7 calls for a 501 when xsendfile is enabled for an unimplemented
// front-end, never a 500.
func writeArbiterError(w http.ResponseWriter, err error) {
	if errors.Is(err, download.ErrUnsupportedFrontend) {
		JSONError(w, http.StatusNotImplemented, "xsendfile frontend not implemented")
		return
	}

	var aerr *patharbiter.Error
	if !errors.As(err, &aerr) {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch aerr.Kind {
	case patharbiter.NotConfigured:
		JSONError(w, http.StatusInternalServerError, "reliquary not configured")
	case patharbiter.InvalidName, patharbiter.Escape:
		JSONError(w, http.StatusInternalServerError, "invalid channel/index")
	default:
		JSONError(w, http.StatusInternalServerError, aerr.Error())
	}
}

// resolveIndex looks up (channel, index), reporting a catalog miss or an
// ambiguous row as NotFound per spec.md §7's AmbiguousRow rule.
func (s *Service) resolveIndex(channel, index string) (int64, error) {
	ch, err := s.DB.GetChannel(channel)
	if err != nil {
		return 0, errNotFound
	}
	idx, err := s.DB.GetIndex(ch.ID, index)
	if err != nil {
		return 0, errNotFound
	}
	return idx.ID, nil
}

var errNotFound = errors.New("protocol: not found")

// proxyJSON fetches upstream and decodes the body as JSON into v. It
// returns ok=false (having already written a response) on any failure, per
// spec.md §7's UpstreamFailed/DecodeFailed kinds.
func (s *Service) proxyJSON(w http.ResponseWriter, upstreamURL string, v any) bool {
	req, err := http.NewRequest(http.MethodGet, upstreamURL, nil)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		JSONError(w, http.StatusNotFound, fmt.Sprintf("upstream fetch failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		JSONError(w, http.StatusNotFound, fmt.Sprintf("upstream returned %s", resp.Status))
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		JSONError(w, http.StatusInternalServerError, "decoding upstream response")
		return false
	}
	return true
}
