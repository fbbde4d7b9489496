package catalog

import (
	"path/filepath"
	"testing"

	"github.com/zombified/reliquary/internal/debcontrol"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open("sqlite", filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestChannelUpsertAndGet(t *testing.T) {
	db := openTestDB(t)

	id, err := db.UpsertChannel("stable")
	if err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}

	got, err := db.GetChannel("stable")
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if got.ID != id || got.Dirty {
		t.Errorf("got %+v", got)
	}

	if _, err := db.GetChannel("nope"); err != ErrNone {
		t.Errorf("got %v, want ErrNone", err)
	}
}

func TestChannelDirtySweep(t *testing.T) {
	db := openTestDB(t)

	id, err := db.UpsertChannel("stable")
	if err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}

	if err := db.MarkAllChannelsDirty(); err != nil {
		t.Fatalf("MarkAllChannelsDirty: %v", err)
	}

	got, err := db.GetChannel("stable")
	if err != nil {
		t.Fatalf("GetChannel: %v", err)
	}
	if !got.Dirty {
		t.Error("expected dirty = true after sweep start")
	}

	if _, err := db.UpsertChannel("stable"); err != nil {
		t.Fatalf("UpsertChannel (re-seen): %v", err)
	}
	got, _ = db.GetChannel("stable")
	if got.Dirty {
		t.Error("expected dirty = false after re-upsert")
	}
	if got.ID != id {
		t.Errorf("id changed across re-upsert: %d != %d", got.ID, id)
	}

	if err := db.MarkAllChannelsDirty(); err != nil {
		t.Fatalf("MarkAllChannelsDirty: %v", err)
	}
	n, err := db.DeleteDirtyChannels()
	if err != nil {
		t.Fatalf("DeleteDirtyChannels: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
	if _, err := db.GetChannel("stable"); err != ErrNone {
		t.Errorf("got %v, want ErrNone after delete", err)
	}
}

func TestIndexAndRelicLifecycle(t *testing.T) {
	db := openTestDB(t)

	chanID, err := db.UpsertChannel("stable")
	if err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}
	idxID, err := db.UpsertIndex(chanID, "main")
	if err != nil {
		t.Fatalf("UpsertIndex: %v", err)
	}

	relicID, err := db.InsertRelic(idxID, "hello_1.0_amd64.deb", "12345.0", 1024)
	if err != nil {
		t.Fatalf("InsertRelic: %v", err)
	}

	relic, err := db.GetRelic(idxID, "hello_1.0_amd64.deb")
	if err != nil {
		t.Fatalf("GetRelic: %v", err)
	}
	if relic.ID != relicID || relic.Size != 1024 {
		t.Errorf("got %+v", relic)
	}

	exists, err := db.RelicExists("stable", "main", "hello_1.0_amd64.deb")
	if err != nil {
		t.Fatalf("RelicExists: %v", err)
	}
	if !exists {
		t.Error("expected relic to exist")
	}

	exists, err = db.RelicExists("stable", "main", "nope.deb")
	if err != nil {
		t.Fatalf("RelicExists: %v", err)
	}
	if exists {
		t.Error("expected relic to not exist")
	}
}

func TestRelicStats(t *testing.T) {
	db := openTestDB(t)

	count, size, err := db.RelicStats()
	if err != nil {
		t.Fatalf("RelicStats on empty catalog: %v", err)
	}
	if count != 0 || size != 0 {
		t.Fatalf("empty catalog: got count=%d size=%d, want 0/0", count, size)
	}

	chanID, err := db.UpsertChannel("stable")
	if err != nil {
		t.Fatalf("UpsertChannel: %v", err)
	}
	idxID, err := db.UpsertIndex(chanID, "main")
	if err != nil {
		t.Fatalf("UpsertIndex: %v", err)
	}
	if _, err := db.InsertRelic(idxID, "a.deb", "1.0", 100); err != nil {
		t.Fatalf("InsertRelic: %v", err)
	}
	if _, err := db.InsertRelic(idxID, "b.deb", "2.0", 250); err != nil {
		t.Fatalf("InsertRelic: %v", err)
	}

	count, size, err = db.RelicStats()
	if err != nil {
		t.Fatalf("RelicStats: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if size != 350 {
		t.Errorf("size = %d, want 350", size)
	}
}

func TestDebInfoUpsert(t *testing.T) {
	db := openTestDB(t)

	chanID, _ := db.UpsertChannel("stable")
	idxID, _ := db.UpsertIndex(chanID, "main")
	relicID, err := db.InsertRelic(idxID, "hello_1.0_amd64.deb", "12345.0", 1024)
	if err != nil {
		t.Fatalf("InsertRelic: %v", err)
	}

	info := &debcontrol.Info{
		Package:        "hello",
		Version:        "1.0",
		Architecture:   "amd64",
		Maintainer:     "Jane",
		Description:    "a greeting",
		DescriptionMD5: "abc123",
		Filename:       "pool/main/hello_1.0_amd64.deb",
		Hashes:         debcontrol.Hashes{MD5: "m", SHA1: "s1", SHA256: "s256", SHA512: "s512"},
	}

	if err := db.UpsertDebInfo(relicID, info); err != nil {
		t.Fatalf("UpsertDebInfo (insert): %v", err)
	}

	got, err := db.GetDebInfo(relicID)
	if err != nil {
		t.Fatalf("GetDebInfo: %v", err)
	}
	if got.Package != "hello" || got.SHA256 != "s256" {
		t.Errorf("got %+v", got)
	}

	info.Section = "utils"
	if err := db.UpsertDebInfo(relicID, info); err != nil {
		t.Fatalf("UpsertDebInfo (update): %v", err)
	}
	got, _ = db.GetDebInfo(relicID)
	if got.Section != "utils" {
		t.Errorf("update did not apply: %+v", got)
	}
}

func TestPackagesForArch(t *testing.T) {
	db := openTestDB(t)

	chanID, _ := db.UpsertChannel("stable")
	idxID, _ := db.UpsertIndex(chanID, "main")

	seed := func(name, arch string) {
		relicID, err := db.InsertRelic(idxID, name, "0", 1)
		if err != nil {
			t.Fatalf("InsertRelic: %v", err)
		}
		info := &debcontrol.Info{
			Package: name, Version: "1.0", Architecture: arch,
			Maintainer: "x", Description: "x", DescriptionMD5: "x",
			Filename: "pool/main/" + name,
		}
		if err := db.UpsertDebInfo(relicID, info); err != nil {
			t.Fatalf("UpsertDebInfo: %v", err)
		}
	}
	seed("a_1.0_amd64.deb", "amd64")
	seed("b_1.0_all.deb", "all")
	seed("c_1.0_i386.deb", "i386")

	rows, err := db.PackagesForArch(idxID, "amd64")
	if err != nil {
		t.Fatalf("PackagesForArch: %v", err)
	}
	if len(rows) != 1 || rows[0].Package != "a_1.0_amd64.deb" {
		t.Errorf("got %+v", rows)
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	db := openTestDB(t)

	row := &FileCache{Key: "stable-main-amd64-none", Value: []byte("Package: hello\n"), Mtime: "0", Size: 15, MD5Sum: "m", SHA1: "s1", SHA256: "s256"}
	if err := db.PutFileCache(row); err != nil {
		t.Fatalf("PutFileCache: %v", err)
	}

	got, err := db.GetFileCache("stable-main-amd64-none")
	if err != nil {
		t.Fatalf("GetFileCache: %v", err)
	}
	if string(got.Value) != "Package: hello\n" {
		t.Errorf("got %q", got.Value)
	}

	row.Value = []byte("Package: hello\nVersion: 2.0\n")
	if err := db.PutFileCache(row); err != nil {
		t.Fatalf("PutFileCache (update): %v", err)
	}
	got, _ = db.GetFileCache("stable-main-amd64-none")
	if string(got.Value) != "Package: hello\nVersion: 2.0\n" {
		t.Errorf("update did not apply: %q", got.Value)
	}

	if err := db.DeleteFileCache("stable-main-amd64-none"); err != nil {
		t.Fatalf("DeleteFileCache: %v", err)
	}
	if _, err := db.GetFileCache("stable-main-amd64-none"); err != ErrNone {
		t.Errorf("got %v, want ErrNone", err)
	}
}
