// Package debrepo generates the Debian repository metadata families —
// Packages, per-arch Release, per-distribution Release — memoized through
// the catalog's FileCache, per spec.md §4.6.
package debrepo

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zombified/reliquary/internal/catalog"
)

// Compression selects the encoding of a generated Packages file.
type Compression int

const (
	None Compression = iota
	Gzip
	Bzip2
)

func (c Compression) suffix() string {
	switch c {
	case Gzip:
		return "gz"
	case Bzip2:
		return "bz2"
	default:
		return "none"
	}
}

// Blob is a generated (or cache-retrieved) metadata file together with its
// digests, per spec.md §8 testable property 5.
type Blob struct {
	Data   []byte
	Mtime  string
	Size   int64
	MD5Sum string
	SHA1   string
	SHA256 string
}

func blobFrom(data []byte) Blob {
	md5sum := md5.Sum(data)
	sha1sum := sha1.Sum(data)
	sha256sum := sha256.Sum256(data)
	return Blob{
		Data:   data,
		Mtime:  nowStamp(),
		Size:   int64(len(data)),
		MD5Sum: hex.EncodeToString(md5sum[:]),
		SHA1:   hex.EncodeToString(sha1sum[:]),
		SHA256: hex.EncodeToString(sha256sum[:]),
	}
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Generator builds Debian metadata against a catalog.DB.
type Generator struct {
	db *catalog.DB
}

// New creates a Generator.
func New(db *catalog.DB) *Generator {
	return &Generator{db: db}
}

func (g *Generator) resolveIndex(channel, index string) (int64, error) {
	ch, err := g.db.GetChannel(channel)
	if err != nil {
		return 0, fmt.Errorf("debrepo: channel %q: %w", channel, err)
	}
	idx, err := g.db.GetIndex(ch.ID, index)
	if err != nil {
		return 0, fmt.Errorf("debrepo: index %q/%q: %w", channel, index, err)
	}
	return idx.ID, nil
}

func cacheKey(channel, index, arch string, c Compression) string {
	return fmt.Sprintf("%s-%s-%s-%s", channel, index, arch, c.suffix())
}

func rowToBlob(row *catalog.FileCache) Blob {
	return Blob{
		Data:   row.Value,
		Mtime:  row.Mtime,
		Size:   row.Size,
		MD5Sum: row.MD5Sum,
		SHA1:   row.SHA1,
		SHA256: row.SHA256,
	}
}

func blobToRow(key string, b Blob) *catalog.FileCache {
	return &catalog.FileCache{
		Key: key, Value: b.Data, Mtime: b.Mtime, Size: b.Size,
		MD5Sum: b.MD5Sum, SHA1: b.SHA1, SHA256: b.SHA256,
	}
}
