package debrepo

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"strings"

	"github.com/dsnet/compress/bzip2"

	"github.com/zombified/reliquary/internal/catalog"
	"github.com/zombified/reliquary/internal/metrics"
)

// cacheMetricProtocol labels the FileCache hit/miss metrics; Packages is
// only ever reached from the Debian protocol shim.
const cacheMetricProtocol = "debian"

// Packages generates (or retrieves from FileCache) the Packages file for one
// architecture of one (channel, index), per spec.md §4.6.1.
//
// If force is true, any existing cache entry for this (channel, index, arch,
// compression) is discarded and regenerated. Otherwise: an existing entry is
// returned directly; failing that, if the uncompressed "-none" sibling
// exists and compression != None, it is compressed and cached rather than
// rebuilt from the catalog — this is what preserves the compressed/
// uncompressed cross-entry invariant (spec.md §3).
func (g *Generator) Packages(channel, index, arch string, compression Compression, force bool) (Blob, error) {
	key := cacheKey(channel, index, arch, compression)

	if force {
		if err := g.db.DeleteFileCache(key); err != nil {
			return Blob{}, fmt.Errorf("debrepo: invalidating cache %q: %w", key, err)
		}
	} else {
		if row, err := g.db.GetFileCache(key); err == nil {
			metrics.RecordCacheHit(cacheMetricProtocol)
			return rowToBlob(row), nil
		} else if err != catalog.ErrNone {
			return Blob{}, fmt.Errorf("debrepo: fetching cache %q: %w", key, err)
		}

		if compression != None {
			siblingKey := cacheKey(channel, index, arch, None)
			if sibling, err := g.db.GetFileCache(siblingKey); err == nil {
				metrics.RecordCacheHit(cacheMetricProtocol)
				compressed, err := compress(sibling.Value, compression)
				if err != nil {
					return Blob{}, err
				}
				blob := blobFrom(compressed)
				if err := g.db.PutFileCache(blobToRow(key, blob)); err != nil {
					return Blob{}, fmt.Errorf("debrepo: caching %q: %w", key, err)
				}
				return blob, nil
			} else if err != catalog.ErrNone {
				return Blob{}, fmt.Errorf("debrepo: fetching sibling cache %q: %w", siblingKey, err)
			}
		}

		metrics.RecordCacheMiss(cacheMetricProtocol)
	}

	idxID, err := g.resolveIndex(channel, index)
	if err != nil {
		return Blob{}, err
	}

	candidates, err := g.db.PackagesForArch(idxID, arch)
	if err != nil {
		return Blob{}, fmt.Errorf("debrepo: querying packages for arch %q: %w", arch, err)
	}

	matched := filterExactArch(candidates, arch)

	var buf bytes.Buffer
	for _, d := range matched {
		writeStanza(&buf, d)
	}
	uncompressed := buf.Bytes()

	var data []byte
	if compression == None {
		data = uncompressed
	} else {
		data, err = compress(uncompressed, compression)
		if err != nil {
			return Blob{}, err
		}
	}

	blob := blobFrom(data)
	if err := g.db.PutFileCache(blobToRow(key, blob)); err != nil {
		return Blob{}, fmt.Errorf("debrepo: caching %q: %w", key, err)
	}

	// Also seed the uncompressed sibling so later compressed requests can
	// derive from it instead of re-querying the catalog.
	if compression != None {
		noneKey := cacheKey(channel, index, arch, None)
		if _, err := g.db.GetFileCache(noneKey); err == catalog.ErrNone {
			noneBlob := blobFrom(uncompressed)
			_ = g.db.PutFileCache(blobToRow(noneKey, noneBlob))
		}
	}

	return blob, nil
}

// filterExactArch reproduces the source's substring-then-exact-membership
// filter: DebInfo.architecture may be "all" or a whitespace-separated list
// of architectures. A package is only included if arch appears verbatim
// (lowercased, trimmed) among those tokens — "all" is NOT treated as a
// wildcard here, so an "all" package is excluded from a single-arch query
// unless "all" itself is the requested arch. Reproduces spec.md §9 item 5.
func filterExactArch(candidates []catalog.DebInfoWithRelic, arch string) []catalog.DebInfoWithRelic {
	arch = strings.ToLower(strings.TrimSpace(arch))
	var matched []catalog.DebInfoWithRelic
	for _, d := range candidates {
		tokens := strings.Fields(strings.ToLower(d.Architecture))
		for _, tok := range tokens {
			if tok == arch {
				matched = append(matched, d)
				break
			}
		}
	}
	return matched
}

// writeStanza writes one RFC822 paragraph for a DebInfo in the exact field
// order mandated by spec.md §4.6.1, omitting optional fields that are empty.
// Priority is emitted only when Section is present, reproducing the
// source's emission rule (spec.md §9 item — see DESIGN.md).
func writeStanza(buf *bytes.Buffer, d catalog.DebInfoWithRelic) {
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(buf, "%s: %s\n", name, value)
		}
	}

	field("Package", d.Package)
	field("Source", d.Source)
	field("Version", d.Version)
	field("Section", d.Section)
	if d.Section != "" {
		field("Priority", d.Priority)
	}
	field("Architecture", d.Architecture)
	field("Essential", d.Essential)
	field("Depends", d.Depends)
	field("Recommends", d.Recommends)
	field("Suggests", d.Suggests)
	field("Enhances", d.Enhances)
	field("Pre-Depends", d.PreDepends)
	field("Installed-Size", d.InstalledSize)
	field("Maintainer", d.Maintainer)
	field("Description", d.Description)
	field("Homepage", d.Homepage)
	field("Built-Using", d.BuiltUsing)
	field("Filename", d.Filename)
	fmt.Fprintf(buf, "Size: %d\n", d.RelicSize)
	field("MD5Sum", d.MD5Sum)
	field("SHA1", d.SHA1)
	field("SHA256", d.SHA256)
	field("SHA512", d.SHA512)
	field("Description-md5", d.DescriptionMD5)
	field("Multi-Arch", d.MultiArch)
	buf.WriteString("\n")
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case Gzip:
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, fmt.Errorf("debrepo: gzip compressing: %w", err)
		}
		if err := gw.Close(); err != nil {
			return nil, fmt.Errorf("debrepo: closing gzip writer: %w", err)
		}
		return buf.Bytes(), nil
	case Bzip2:
		var buf bytes.Buffer
		bw, err := bzip2.NewWriter(&buf, nil)
		if err != nil {
			return nil, fmt.Errorf("debrepo: creating bzip2 writer: %w", err)
		}
		if _, err := bw.Write(data); err != nil {
			return nil, fmt.Errorf("debrepo: bzip2 compressing: %w", err)
		}
		if err := bw.Close(); err != nil {
			return nil, fmt.Errorf("debrepo: closing bzip2 writer: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return data, nil
	}
}
