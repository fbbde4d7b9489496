// Package download implements the Download Emitter, per spec.md §4.8:
// streaming a stored relic as an HTTP response, with optional off-load to a
// front-end web server via X-Accel-Redirect.
package download

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombified/reliquary/internal/patharbiter"
)

// XSendfileFrontend identifies which front-end web server off-load
// convention to use. Only nginx's X-Accel-Redirect is implemented; any other
// value is rejected rather than silently falling back to streaming the body.
type XSendfileFrontend string

const (
	FrontendNginx XSendfileFrontend = "nginx"
)

// Emitter serves relics from local storage.
type Emitter struct {
	root             string
	xsendfileEnabled bool
	xsendfileFront   XSendfileFrontend
}

// New creates an Emitter rooted at root (reliquary.location).
func New(root string, xsendfileEnabled bool, frontend XSendfileFrontend) *Emitter {
	return &Emitter{root: root, xsendfileEnabled: xsendfileEnabled, xsendfileFront: frontend}
}

// ErrUnsupportedFrontend is returned when xsendfile is enabled for a
// frontend other than nginx — the original only ever implemented nginx's
// X-Accel-Redirect and left the rest as a TODO.
var ErrUnsupportedFrontend = fmt.Errorf("download: xsendfile frontend not implemented")

// Serve writes the relic at (channel, index, relicName) to w. If xsendfile
// is enabled for nginx, it sets X-Accel-Redirect and writes no body,
// delegating the actual transfer to the front-end server.
func (e *Emitter) Serve(w http.ResponseWriter, channel, index, relicName string) error {
	paths, err := patharbiter.Validate(e.root, channel, index, relicName)
	if err != nil {
		return err
	}

	if e.xsendfileEnabled && e.xsendfileFront != FrontendNginx {
		return ErrUnsupportedFrontend
	}

	absPath, err := filepath.Abs(paths.RelicPath)
	if err != nil {
		return fmt.Errorf("download: resolving %q: %w", paths.RelicPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("download: stat %q: %w", absPath, err)
	}

	mimeType, encoding := guessMIME(absPath)
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", relicName))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	if encoding != "" {
		w.Header().Set("Content-Encoding", encoding)
	}

	if e.xsendfileEnabled && e.xsendfileFront == FrontendNginx {
		w.Header().Set("X-Accel-Redirect", absPath)
		w.WriteHeader(http.StatusOK)
		return nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("download: opening %q: %w", absPath, err)
	}
	defer f.Close()

	w.WriteHeader(http.StatusOK)
	_, err = io.Copy(w, f)
	return err
}

// directTypes covers the compound/non-standard extensions Python's
// mimetypes module resolves directly rather than through Go's stdlib
// extension table — notably ".tgz", which spec.md §8 scenario 5 pins to
// "application/x-gzip".
var directTypes = map[string]string{
	".tgz": "application/x-gzip",
}

// knownEncodings mirrors Python's mimetypes module encodings_map: a
// trailing extension that names a transfer encoding rather than a content
// type, stripped before the content-type guess and reported separately.
var knownEncodings = map[string]string{
	".gz":  "gzip",
	".bz2": "bzip2",
	".z":   "compress",
}

// guessMIME mirrors the original's Python mimetypes.guess_type: guess from
// the extension, falling back to application/octet-stream when unknown, and
// separately reporting a compression encoding when the final extension
// names one (e.g. ".tar.gz" is type "x-tar" with encoding "gzip").
func guessMIME(path string) (mimeType, encoding string) {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := directTypes[ext]; ok {
		return t, ""
	}

	if enc, ok := knownEncodings[ext]; ok {
		encoding = enc
		path = strings.TrimSuffix(path, filepath.Ext(path))
		ext = strings.ToLower(filepath.Ext(path))
	}

	t := mime.TypeByExtension(ext)
	if t == "" {
		return "application/octet-stream", encoding
	}
	// mime.TypeByExtension may append a charset parameter stdlib adds for
	// text types; the original never emits one, so strip it to match.
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t, encoding
}
