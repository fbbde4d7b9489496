package reindex

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blakesmith/ar"

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

func buildTestDeb(t *testing.T, control string) []byte {
	t.Helper()

	var controlTar bytes.Buffer
	gw := gzip.NewWriter(&controlTar)
	tw := tar.NewWriter(gw)
	body := []byte(control)
	if err := tw.WriteHeader(&tar.Header{Name: "./control", Mode: 0644, Size: int64(len(body))}); err != nil {
		t.Fatalf("tar header: %v", err)
	}
	if _, err := tw.Write(body); err != nil {
		t.Fatalf("tar write: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	var out bytes.Buffer
	aw := ar.NewWriter(&out)
	writeMember := func(name string, content []byte) {
		hdr := &ar.Header{Name: name, Size: int64(len(content)), Mode: 0644, ModTime: time.Unix(0, 0)}
		if err := aw.WriteHeader(hdr); err != nil {
			t.Fatalf("ar header %s: %v", name, err)
		}
		if _, err := aw.Write(content); err != nil {
			t.Fatalf("ar write %s: %v", name, err)
		}
	}
	writeMember("debian-binary", []byte("2.0\n"))
	writeMember("control.tar.gz", controlTar.Bytes())
	writeMember("data.tar.gz", []byte("fake data"))

	return out.Bytes()
}

func TestRun_PicksUpNewRelic(t *testing.T) {
	root := t.TempDir()
	indexDir := filepath.Join(root, "alpha", "stable")
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	control := "Package: hello\nVersion: 1.0\nArchitecture: amd64\n" +
		"Maintainer: Jane <jane@example.com>\nDescription: a greeting\n"
	debBytes := buildTestDeb(t, control)
	relicPath := filepath.Join(indexDir, "hello_1.0_amd64.deb")
	if err := os.WriteFile(relicPath, debBytes, 0644); err != nil {
		t.Fatalf("writing relic: %v", err)
	}

	db := newTestCatalog(t)
	rx := New(db, root, nil)

	stats, err := rx.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.ChannelsSeen != 1 || stats.IndicesSeen != 1 || stats.RelicsSeen != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.DebInfosSet != 1 {
		t.Fatalf("expected DebInfosSet = 1, got %d", stats.DebInfosSet)
	}

	ch, err := db.GetChannel("alpha")
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	idx, err := db.GetIndex(ch.ID, "stable")
	if err != nil {
		t.Fatalf("GetIndex: %v", err)
	}
	relic, err := db.GetRelic(idx.ID, "hello_1.0_amd64.deb")
	if err != nil {
		t.Fatalf("GetRelic: %v", err)
	}
	if relic.Size != int64(len(debBytes)) {
		t.Errorf("relic size = %d, want %d", relic.Size, len(debBytes))
	}

	debInfo, err := db.GetDebInfo(relic.ID)
	if err != nil {
		t.Fatalf("GetDebInfo: %v", err)
	}
	if debInfo.Package != "hello" || debInfo.Version != "1.0" || debInfo.Architecture != "amd64" {
		t.Errorf("unexpected DebInfo: %+v", debInfo)
	}
}

func TestRun_DirtyCleanup(t *testing.T) {
	root := t.TempDir()
	db := newTestCatalog(t)

	chanID, err := db.UpsertChannel("alpha")
	if err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}
	idxID, err := db.UpsertIndex(chanID, "stable")
	if err != nil {
		t.Fatalf("UpsertIndex: %v", err)
	}
	if _, err := db.InsertRelic(idxID, "ghost", "0", 1); err != nil {
		t.Fatalf("InsertRelic: %v", err)
	}

	rx := New(db, root, nil)
	if _, err := rx.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	_, err = db.GetRelic(idxID, "ghost")
	if err != catalog.ErrNone {
		t.Fatalf("expected ghost relic gone, got err=%v", err)
	}
}

func TestRun_NonDebFilesSkipDebInfo(t *testing.T) {
	root := t.TempDir()
	indexDir := filepath.Join(root, "alpha", "stable")
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(indexDir, "left-pad-1.3.0.tgz"), []byte("data"), 0644); err != nil {
		t.Fatalf("writing relic: %v", err)
	}

	db := newTestCatalog(t)
	rx := New(db, root, nil)
	stats, err := rx.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.RelicsSeen != 1 {
		t.Fatalf("expected 1 relic, got %d", stats.RelicsSeen)
	}
	if stats.DebInfosSet != 0 {
		t.Fatalf("expected 0 deb infos for non-.deb relic, got %d", stats.DebInfosSet)
	}
}

func TestRun_TwiceIsIdempotent(t *testing.T) {
	root := t.TempDir()
	indexDir := filepath.Join(root, "alpha", "stable")
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(indexDir, "thing.tar.gz"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing relic: %v", err)
	}

	db := newTestCatalog(t)
	rx := New(db, root, nil)
	if _, err := rx.Run(); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	stats, err := rx.Run()
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.Deleted != 0 {
		t.Errorf("second run should delete nothing, deleted %d", stats.Deleted)
	}

	channels, err := db.ListChannels()
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel after two runs, got %d: %v", len(channels), channels)
	}
}
