package protocol

import (
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zombified/reliquary/internal/debrepo"
)

// dirListing renders a minimal nginx-style directory listing of a fixed set
// of child links — used for the Debian tree's navigation pages, which (per
// spec.md §4.9) are fixed shapes rather than a dump of arbitrary relics.
func dirListing(w http.ResponseWriter, title string, links []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body>\n", html.EscapeString(title))
	fmt.Fprintf(&b, "<h1>%s</h1><pre>\n", html.EscapeString(title))
	for _, l := range links {
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", html.EscapeString(l), html.EscapeString(l))
	}
	b.WriteString("</pre></body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

// DebianChannelIndex handles GET /api/v1/debian/{channel}/ — the channel's
// top-level listing: dist/ and pool/.
func (s *Service) DebianChannelIndex(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	if _, err := s.DB.GetChannel(channel); err != nil {
		JSONError(w, http.StatusNotFound, "no such channel")
		return
	}
	dirListing(w, "Index of "+channel+"/", []string{"dist/", "pool/"})
}

// listDistributions returns the sorted names of every index under channel.
func (s *Service) listDistributions(channel string) ([]string, error) {
	ch, err := s.DB.GetChannel(channel)
	if err != nil {
		return nil, errNotFound
	}
	indices, err := s.DB.ListIndices(ch.ID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(indices))
	for _, idx := range indices {
		names = append(names, idx.Name)
	}
	sort.Strings(names)
	return names, nil
}

// DebianDistRootIndex handles GET /api/v1/debian/{channel}/dist/ — one
// link per distribution (index) under this channel.
func (s *Service) DebianDistRootIndex(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	names, err := s.listDistributions(channel)
	if err != nil {
		JSONError(w, http.StatusNotFound, "no such channel")
		return
	}
	links := make([]string, len(names))
	for i, n := range names {
		links[i] = n + "/"
	}
	dirListing(w, "Index of "+channel+"/dist/", links)
}

// DebianPoolRootIndex handles GET /api/v1/debian/{channel}/pool/ — one link
// per distribution (index) under this channel, mirroring dist/ since the
// flat pool layout keys relics by the same index name.
func (s *Service) DebianPoolRootIndex(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	names, err := s.listDistributions(channel)
	if err != nil {
		JSONError(w, http.StatusNotFound, "no such channel")
		return
	}
	links := make([]string, len(names))
	for i, n := range names {
		links[i] = n + "/"
	}
	dirListing(w, "Index of "+channel+"/pool/", links)
}

// DebianDistIndex handles GET /api/v1/debian/{channel}/dist/{index}/ —
// links to main/ and Release.
func (s *Service) DebianDistIndex(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	if _, err := s.resolveIndex(channel, index); err != nil {
		JSONError(w, http.StatusNotFound, "no such distribution")
		return
	}
	dirListing(w, fmt.Sprintf("Index of %s/dist/%s/", channel, index), []string{"main/", "Release"})
}

// DebianPoolDistIndex handles GET /api/v1/debian/{channel}/pool/{index}/ —
// one link per relic stored under this distribution.
func (s *Service) DebianPoolDistIndex(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	idxID, err := s.resolveIndex(channel, index)
	if err != nil {
		JSONError(w, http.StatusNotFound, "no such distribution")
		return
	}
	relics, err := s.DB.ListRelics(idxID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	names := make([]string, len(relics))
	for i, rl := range relics {
		names[i] = rl.Name
	}
	sort.Strings(names)
	dirListing(w, fmt.Sprintf("Index of %s/pool/%s/", channel, index), names)
}

// DebianPoolPackage handles
// GET /api/v1/debian/{channel}/pool/{index}/{relic} — download.
func (s *Service) DebianPoolPackage(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	relic := chi.URLParam(r, "relic")
	if err := s.Emitter.Serve(w, channel, index, relic); err != nil {
		writeArbiterError(w, err)
	}
}

// DebianCompIndex handles
// GET /api/v1/debian/{channel}/dist/{index}/main/ — one binary-<arch>/
// link per architecture enumerated among the distribution's relics.
func (s *Service) DebianCompIndex(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	if _, err := s.resolveIndex(channel, index); err != nil {
		JSONError(w, http.StatusNotFound, "no such distribution")
		return
	}
	arches, err := s.Debrepo.UniqueArches(channel, index)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Strings(arches)
	links := make([]string, len(arches))
	for i, a := range arches {
		links[i] = "binary-" + a + "/"
	}
	dirListing(w, fmt.Sprintf("Index of %s/dist/%s/main/", channel, index), links)
}

// DebianArchIndex handles
// GET /api/v1/debian/{channel}/dist/{index}/main/binary-{arch}/ — links to
// Release, Packages, Packages.gz, Packages.bz2.
func (s *Service) DebianArchIndex(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	arch := chi.URLParam(r, "arch")
	if _, err := s.resolveIndex(channel, index); err != nil {
		JSONError(w, http.StatusNotFound, "no such distribution")
		return
	}
	dirListing(w, fmt.Sprintf("Index of %s/dist/%s/main/binary-%s/", channel, index, arch),
		[]string{"Release", "Packages", "Packages.gz", "Packages.bz2"})
}

// DebianArchRelease handles
// GET /api/v1/debian/{channel}/dist/{index}/main/binary-{arch}/Release.
func (s *Service) DebianArchRelease(w http.ResponseWriter, r *http.Request) {
	arch := chi.URLParam(r, "arch")
	blob := s.Debrepo.ArchRelease(arch)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// DebianDistRelease handles
// GET /api/v1/debian/{channel}/dist/{index}/Release.
func (s *Service) DebianDistRelease(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	if _, err := s.resolveIndex(channel, index); err != nil {
		JSONError(w, http.StatusNotFound, "no such distribution")
		return
	}
	blob, err := s.Debrepo.DistRelease(channel, index)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// DebianArchPackages handles the three Packages variants —
// .../binary-{arch}/Packages[.gz|.bz2] — selecting Content-Type and
// debrepo.Compression from the requested extension.
func (s *Service) DebianArchPackages(compression debrepo.Compression, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel := chi.URLParam(r, "channel")
		index := chi.URLParam(r, "index")
		arch := chi.URLParam(r, "arch")

		if _, err := s.resolveIndex(channel, index); err != nil {
			JSONError(w, http.StatusNotFound, "no such distribution")
			return
		}

		blob, err := s.Debrepo.Packages(channel, index, arch, compression, false)
		if err != nil {
			JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(blob.Data)
	}
}
