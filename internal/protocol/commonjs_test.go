package protocol

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestCommonJSRegistryRoot_MapsNamesToPackageRootURLs(t *testing.T) {
	svc, db, _ := newTestService(t)
	chanID, _ := db.UpsertChannel("alpha")
	idxID, _ := db.UpsertIndex(chanID, "stable")
	db.InsertRelic(idxID, "left-pad-1.3.0.tgz", "0", 1)

	r := chi.NewRouter()
	svc.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commonjs/alpha/stable/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	url, ok := result["left-pad"]
	if !ok {
		t.Fatalf("expected left-pad key, got %v", result)
	}
	if want := "http://reliquary.example/api/v1/commonjs/alpha/stable/left-pad/"; url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestCommonJSPackageRoot_ListsVersionsWithTarballURL(t *testing.T) {
	svc, db, _ := newTestService(t)
	chanID, _ := db.UpsertChannel("alpha")
	idxID, _ := db.UpsertIndex(chanID, "stable")
	db.InsertRelic(idxID, "left-pad-1.3.0.tgz", "0", 1)
	db.InsertRelic(idxID, "left-pad-1.1.0.tgz", "0", 1)

	r := chi.NewRouter()
	svc.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commonjs/alpha/stable/left-pad/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		Name     string                    `json:"name"`
		Versions map[string]registryEntry `json:"versions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(doc.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %d: %v", len(doc.Versions), doc.Versions)
	}
	entry := doc.Versions["1.3.0"]
	if want := "http://reliquary.example/api/v1/raw/alpha/stable/left-pad-1.3.0.tgz"; entry.Dist.Tarball != want {
		t.Errorf("tarball = %q, want %q", entry.Dist.Tarball, want)
	}
}

func TestCommonJSPackageVersion_UnknownVersionReturns404(t *testing.T) {
	svc, db, _ := newTestService(t)
	chanID, _ := db.UpsertChannel("alpha")
	idxID, _ := db.UpsertIndex(chanID, "stable")
	db.InsertRelic(idxID, "left-pad-1.3.0.tgz", "0", 1)

	r := chi.NewRouter()
	svc.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commonjs/alpha/stable/left-pad/9.9.9/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCommonJSProxyPackageRoot_RewritesTarballURLs(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"left-pad","versions":{"1.3.0":{"dist":{"tarball":"https://registry.npmjs.org/left-pad/-/left-pad-1.3.0.tgz"}}}}`))
	}))
	defer upstream.Close()

	svc, _, _ := newTestService(t)
	svc.NPMURL = upstream.URL

	r := chi.NewRouter()
	svc.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commonjs/proxy/alpha/stable/left-pad/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	versions := doc["versions"].(map[string]any)
	v130 := versions["1.3.0"].(map[string]any)
	dist := v130["dist"].(map[string]any)
	tarball := dist["tarball"].(string)
	wantPrefix := "http://reliquary.example/api/v1/commonjs/proxy/package/alpha/stable/left-pad/1.3.0?upstream="
	if len(tarball) < len(wantPrefix) || tarball[:len(wantPrefix)] != wantPrefix {
		t.Errorf("tarball = %q, want prefix %q", tarball, wantPrefix)
	}
}

func TestCommonJSProxyPackage_FetchesUpstreamAndServes(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("tarball bytes"))
	}))
	defer upstream.Close()

	svc, _, _ := newTestService(t)
	r := chi.NewRouter()
	svc.Mount(r)

	target := "/api/v1/commonjs/proxy/package/alpha/stable/left-pad/1.3.0?upstream=" + upstream.URL
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "tarball bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestCommonJSProxyPackage_MissingUpstreamParamIsBadRequest(t *testing.T) {
	svc, _, _ := newTestService(t)
	r := chi.NewRouter()
	svc.Mount(r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/commonjs/proxy/package/alpha/stable/left-pad/1.3.0", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
