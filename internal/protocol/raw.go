package protocol

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zombified/reliquary/internal/catalog"
	"github.com/zombified/reliquary/internal/metrics"
	"github.com/zombified/reliquary/internal/patharbiter"
	"github.com/zombified/reliquary/internal/storage"
)

// PutRaw handles PUT /api/v1/raw/{channel}/{index}/{relic} — writes the
// request body to the validated relic path and registers it in the
// catalog, per the original's api.py put_relic.
func (s *Service) PutRaw(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	relic := chi.URLParam(r, "relic")

	paths, err := patharbiter.Validate(s.Root, channel, index, relic)
	if err != nil {
		writeArbiterError(w, err)
		return
	}

	size, err := s.storeRelic(paths, channel, index, relic, r.Body)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	info, err := os.Stat(paths.RelicPath)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	mtime := formatMtime(info)

	chanID, err := s.DB.UpsertChannel(channel)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	idxID, err := s.DB.UpsertIndex(chanID, index)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if existing, err := s.DB.GetRelic(idxID, relic); err == nil {
		if err := s.DB.UpdateRelic(existing.ID, mtime, size); err != nil {
			JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else if err == catalog.ErrNone {
		if _, err := s.DB.InsertRelic(idxID, relic, mtime, size); err != nil {
			JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// storeRelic writes body to the validated relic path, preferring the
// storage.Filesystem's atomic temp-file-then-rename Store (falling back to a
// direct write only if the Filesystem failed to open at startup), and
// records the write against the storage operation metrics.
func (s *Service) storeRelic(paths patharbiter.Paths, channel, index, relic string, body io.Reader) (int64, error) {
	start := time.Now()

	var size int64
	var err error
	if s.FS != nil {
		size, _, err = s.FS.Store(context.Background(), storage.RelicPath(channel, index, relic), body)
	} else {
		size, err = writeDirect(paths, body)
	}

	metrics.RecordStorageOperation("write", time.Since(start))
	if err != nil {
		metrics.RecordStorageError("write")
	}
	return size, err
}

// writeDirect is the pre-storage.Filesystem write path, kept as a fallback
// for the rare case the relic root could not be opened as a Filesystem.
func writeDirect(paths patharbiter.Paths, body io.Reader) (int64, error) {
	if err := os.MkdirAll(paths.RelicFolder, 0755); err != nil {
		return 0, err
	}
	out, err := os.Create(paths.RelicPath)
	if err != nil {
		return 0, err
	}
	size, copyErr := io.Copy(out, body)
	closeErr := out.Close()
	if copyErr != nil {
		return 0, copyErr
	}
	if closeErr != nil {
		return 0, closeErr
	}
	return size, nil
}

// GetRaw handles GET /api/v1/raw/{channel}/{index}/{relic} — streams the
// relic via the Download Emitter.
func (s *Service) GetRaw(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	index := chi.URLParam(r, "index")
	relic := chi.URLParam(r, "relic")

	if err := s.Emitter.Serve(w, channel, index, relic); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			JSONError(w, http.StatusNotFound, "relic not found")
			return
		}
		writeArbiterError(w, err)
	}
}
