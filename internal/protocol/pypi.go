package protocol

import (
	"fmt"
	"html"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zombified/reliquary/internal/nameparse"
)

// PyPISimpleRoot handles GET /api/v1/python/{channel}/{index}/simple/ — the
// PEP-503 simple index root: one anchor per distinct, PEP-503-normalized
// package name found among the index's relic filenames.
func (s *Service) PyPISimpleRoot(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")

	idxID, err := s.resolveIndex(channel, index)
	if err != nil {
		JSONError(w, http.StatusNotFound, "no such channel/index")
		return
	}
	relics, err := s.DB.ListRelics(idxID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	seen := make(map[string]struct{})
	var names []string
	for _, rl := range relics {
		parsed := nameparse.ParsePyPI(rl.Name)
		if !parsed.Parsed {
			continue
		}
		norm := nameparse.NormalizePyPIName(parsed.Package)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		names = append(names, norm)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body>\n")
	for _, name := range names {
		fmt.Fprintf(&b, "<a href=\"%s/\">%s</a><br>\n", html.EscapeString(name), html.EscapeString(name))
	}
	b.WriteString("</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

// PyPISimplePackage handles
// GET /api/v1/python/{channel}/{index}/simple/{package}/ — every relic
// whose parsed, normalized package name matches {package}, each anchored
// to the raw download route.
func (s *Service) PyPISimplePackage(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	wantName := nameparse.NormalizePyPIName(chi.URLParam(r, "package"))

	idxID, err := s.resolveIndex(channel, index)
	if err != nil {
		JSONError(w, http.StatusNotFound, "no such channel/index")
		return
	}
	relics, err := s.DB.ListRelics(idxID)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var matches []string
	for _, rl := range relics {
		parsed := nameparse.ParsePyPI(rl.Name)
		if !parsed.Parsed {
			continue
		}
		if nameparse.NormalizePyPIName(parsed.Package) == wantName {
			matches = append(matches, rl.Name)
		}
	}
	if len(matches) == 0 {
		JSONError(w, http.StatusNotFound, "package not found")
		return
	}
	sort.Strings(matches)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body>\n")
	for _, name := range matches {
		href := fmt.Sprintf("%s/api/v1/raw/%s/%s/%s", strings.TrimSuffix(s.BaseURL, "/"), channel, index, name)
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a><br>\n", html.EscapeString(href), html.EscapeString(name))
	}
	b.WriteString("</body></html>\n")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

// proxyHTML forwards upstreamURL's body verbatim as text/html — used by the
// PyPI proxy simple endpoints, which (unlike the CommonJS proxy) need no
// rewriting: every link on a PEP-503 page is already a relative anchor.
func (s *Service) proxyHTML(w http.ResponseWriter, upstreamURL string) {
	req, err := http.NewRequest(http.MethodGet, upstreamURL, nil)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		JSONError(w, http.StatusNotFound, fmt.Sprintf("upstream fetch failed: %v", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		JSONError(w, http.StatusNotFound, fmt.Sprintf("upstream returned %s", resp.Status))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, resp.Body)
}

// PyPIProxySimpleRoot handles
// GET /api/v1/python/proxy/{channel}/{index}/simple/ by forwarding
// pypi.org's own simple index verbatim.
func (s *Service) PyPIProxySimpleRoot(w http.ResponseWriter, r *http.Request) {
	s.proxyHTML(w, strings.TrimSuffix(s.PyPIURL, "/")+"/simple/")
}

// PyPIProxySimplePackage handles
// GET /api/v1/python/proxy/{channel}/{index}/simple/{package}/ by
// forwarding pypi.org's per-package simple page verbatim.
func (s *Service) PyPIProxySimplePackage(w http.ResponseWriter, r *http.Request) {
	pkg := chi.URLParam(r, "package")
	s.proxyHTML(w, fmt.Sprintf("%s/simple/%s/", strings.TrimSuffix(s.PyPIURL, "/"), pkg))
}

// PyPIProxyPackage handles
// GET /api/v1/python/proxy/{channel}/{index}/packages/{a}/{b}/{hash}/{package}
// — fetch-on-miss from files.pythonhosted.org's hash-sharded layout, then
// serve the local copy via the Download Emitter.
func (s *Service) PyPIProxyPackage(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	a := chi.URLParam(r, "a")
	b := chi.URLParam(r, "b")
	hash := chi.URLParam(r, "hash")
	pkg := chi.URLParam(r, "package")

	upstream := fmt.Sprintf("%s/packages/%s/%s/%s/%s",
		strings.TrimSuffix(s.FilesURL, "/"), a, b, hash, pkg)

	if _, err := s.Fetcher.FetchIfMissing("python", channel, index, pkg, upstream); err != nil {
		JSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.Emitter.Serve(w, channel, index, pkg); err != nil {
		writeArbiterError(w, err)
	}
}
