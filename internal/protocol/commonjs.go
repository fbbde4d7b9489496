package protocol

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zombified/reliquary/internal/nameparse"
)

// registryEntry is the self-hosted CommonJS package-version document shape
// mandated by spec.md §4.9.
type registryEntry struct {
	Name    string           `json:"name"`
	Version string           `json:"version"`
	Dist    registryDistInfo `json:"dist"`
}

type registryDistInfo struct {
	Tarball string `json:"tarball"`
}

// CommonJSRegistryRoot handles GET /api/v1/commonjs/{channel}/{index}/ — a
// map of unique package name to the URL of its package-root route.
func (s *Service) CommonJSRegistryRoot(w http.ResponseWriter, r *http.Request) {
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
	result := make(map[string]string)
	for _, rl := range relics {
		parsed := nameparse.ParseCommonJS(rl.Name)
		if !parsed.Parsed {
			continue
		}
		key := strings.ToLower(parsed.Package)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result[parsed.Package] = fmt.Sprintf("%s/api/v1/commonjs/%s/%s/%s/",
			strings.TrimSuffix(s.BaseURL, "/"), channel, index, url.PathEscape(parsed.Package))
	}

	writeJSON(w, http.StatusOK, result)
}

// packageVersions collects every parsed version of name within idxID,
// case-insensitively matching the requested name per spec.md §4.9.
func (s *Service) packageVersions(idxID int64, name string) (map[string]registryEntry, error) {
	relics, err := s.DB.ListRelics(idxID)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(name)
	versions := make(map[string]registryEntry)
	for _, rl := range relics {
		parsed := nameparse.ParseCommonJS(rl.Name)
		if !parsed.Parsed || strings.ToLower(parsed.Package) != want {
			continue
		}
		versions[parsed.Version] = registryEntry{
			Name:    parsed.Package,
			Version: parsed.Version,
			Dist:    registryDistInfo{Tarball: rl.Name},
		}
	}
	return versions, nil
}

// CommonJSPackageRoot handles
// GET /api/v1/commonjs/{channel}/{index}/{package}/ —
// {name, versions: {version: {name, version, dist: {tarball}}}}.
func (s *Service) CommonJSPackageRoot(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	pkg := chi.URLParam(r, "package")

	idxID, err := s.resolveIndex(channel, index)
	if err != nil {
		JSONError(w, http.StatusNotFound, "no such channel/index")
		return
	}
	versions, err := s.packageVersions(idxID, pkg)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(versions) == 0 {
		JSONError(w, http.StatusNotFound, "package not found")
		return
	}

	for v, entry := range versions {
		entry.Dist.Tarball = fmt.Sprintf("%s/api/v1/raw/%s/%s/%s",
			strings.TrimSuffix(s.BaseURL, "/"), channel, index, entry.Dist.Tarball)
		versions[v] = entry
	}

	writeJSON(w, http.StatusOK, map[string]any{"name": pkg, "versions": versions})
}

// CommonJSPackageVersion handles
// GET /api/v1/commonjs/{channel}/{index}/{package}/{version}/ — the single
// matching version sub-object.
func (s *Service) CommonJSPackageVersion(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	pkg := chi.URLParam(r, "package")
	version := chi.URLParam(r, "version")

	idxID, err := s.resolveIndex(channel, index)
	if err != nil {
		JSONError(w, http.StatusNotFound, "no such channel/index")
		return
	}
	versions, err := s.packageVersions(idxID, pkg)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entry, ok := versions[version]
	if !ok {
		JSONError(w, http.StatusNotFound, "version not found")
		return
	}
	entry.Dist.Tarball = fmt.Sprintf("%s/api/v1/raw/%s/%s/%s",
		strings.TrimSuffix(s.BaseURL, "/"), channel, index, entry.Dist.Tarball)

	writeJSON(w, http.StatusOK, entry)
}

// CommonJSProxyRegistryRoot handles
// GET /api/v1/commonjs/proxy/{channel}/{index}/ by forwarding
// registry.npmjs.org's root document (search/metadata) verbatim — it
// carries no tarball URLs, so no rewriting is needed.
func (s *Service) CommonJSProxyRegistryRoot(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if !s.proxyJSON(w, strings.TrimSuffix(s.NPMURL, "/")+"/", &doc) {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// proxyPackageURL builds the local proxy-package URL that a rewritten
// tarball field should point at, carrying the original upstream tarball
// URL in the "upstream" query parameter per spec.md §4.9/§6.
func (s *Service) proxyPackageURL(channel, index, pkg, version, upstream string) string {
	v := url.Values{}
	v.Set("upstream", upstream)
	return fmt.Sprintf("%s/api/v1/commonjs/proxy/package/%s/%s/%s/%s?%s",
		strings.TrimSuffix(s.BaseURL, "/"), channel, index, url.PathEscape(pkg), url.PathEscape(version), v.Encode())
}

// rewriteTarballs rewrites every versions[*].dist.tarball in an npm
// metadata document to a local proxy-package URL, per spec.md §4.9.
func (s *Service) rewriteTarballs(channel, index, pkg string, doc map[string]any) {
	versions, ok := doc["versions"].(map[string]any)
	if !ok {
		return
	}
	for version, raw := range versions {
		vmap, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		dist, ok := vmap["dist"].(map[string]any)
		if !ok {
			continue
		}
		tarball, ok := dist["tarball"].(string)
		if !ok {
			continue
		}
		dist["tarball"] = s.proxyPackageURL(channel, index, pkg, version, tarball)
	}
}

// CommonJSProxyPackageRoot handles
// GET /api/v1/commonjs/proxy/{channel}/{index}/{package}/ by proxying npm
// registry metadata and rewriting every tarball URL to route through
// Fetch-on-Miss.
func (s *Service) CommonJSProxyPackageRoot(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	pkg := chi.URLParam(r, "package")

	var doc map[string]any
	upstream := fmt.Sprintf("%s/%s", strings.TrimSuffix(s.NPMURL, "/"), url.PathEscape(pkg))
	if !s.proxyJSON(w, upstream, &doc) {
		return
	}
	s.rewriteTarballs(channel, index, pkg, doc)
	writeJSON(w, http.StatusOK, doc)
}

// CommonJSProxyPackageVersion handles
// GET /api/v1/commonjs/proxy/{channel}/{index}/{package}/{version}/ by
// proxying the single-version npm document and rewriting its dist.tarball.
func (s *Service) CommonJSProxyPackageVersion(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	pkg := chi.URLParam(r, "package")
	version := chi.URLParam(r, "version")

	var doc map[string]any
	upstream := fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(s.NPMURL, "/"), url.PathEscape(pkg), url.PathEscape(version))
	if !s.proxyJSON(w, upstream, &doc) {
		return
	}
	if dist, ok := doc["dist"].(map[string]any); ok {
		if tarball, ok := dist["tarball"].(string); ok {
			dist["tarball"] = s.proxyPackageURL(channel, index, pkg, version, tarball)
		}
	}
	writeJSON(w, http.StatusOK, doc)
}

// CommonJSProxyPackage handles
// GET /api/v1/commonjs/proxy/package/{channel}/{index}/{package}/{version}?upstream=<url>
// — Fetch-on-Miss against the carried upstream URL, then Download.
func (s *Service) CommonJSProxyPackage(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	pkg := chi.URLParam(r, "package")
	version := chi.URLParam(r, "version")
	upstream := r.URL.Query().Get("upstream")
	if upstream == "" {
		JSONError(w, http.StatusBadRequest, "missing upstream query parameter")
		return
	}

	relicName := fmt.Sprintf("%s-%s.tgz", pkg, version)
	if _, err := s.Fetcher.FetchIfMissing("commonjs", channel, index, relicName, upstream); err != nil {
		JSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.Emitter.Serve(w, channel, index, relicName); err != nil {
		writeArbiterError(w, err)
	}
}

// writeJSON encodes v as the response body. Key order of a map[string]any
// is whatever encoding/json produces; neither spec.md nor npm's own API
// promises stable key order here.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
