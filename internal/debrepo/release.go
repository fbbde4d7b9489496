package debrepo

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ArchRelease generates the fixed five-line per-architecture Release file.
// Never cached — it is a handful of bytes computed on demand.
func (g *Generator) ArchRelease(arch string) Blob {
	data := []byte(fmt.Sprintf(
		"Archive: reliquary\nComponent: main\nOrigin: reliquary\nLabel: reliquary\nArchitecture: %s\n",
		arch))
	return blobFrom(data)
}

// distDigestFile names one of the four files enumerated per arch in a
// per-distribution Release.
type distDigestFile struct {
	name string
	blob Blob
}

// DistRelease generates the per-distribution Release file: repository
// metadata followed by MD5Sum/SHA1/SHA256 digest sections listing
// Packages, Packages.gz, Packages.bz2, and Release for every arch present
// in the index.
func (g *Generator) DistRelease(channel, index string) (Blob, error) {
	arches, err := g.UniqueArches(channel, index)
	if err != nil {
		return Blob{}, err
	}
	sort.Strings(arches)

	var b strings.Builder
	fmt.Fprintf(&b, "Suite: stable\n")
	fmt.Fprintf(&b, "Codename: reliquary\n")
	fmt.Fprintf(&b, "Origin: reliquary\n")
	fmt.Fprintf(&b, "Architectures: %s\n", strings.Join(arches, " "))
	fmt.Fprintf(&b, "Components: main\n")
	fmt.Fprintf(&b, "Date: %s\n", time.Now().UTC().Format("Mon, Jan 2006 15:04:05 +0000"))

	type perArch struct {
		arch  string
		files []distDigestFile
	}
	var all []perArch
	for _, arch := range arches {
		pkgs, err := g.Packages(channel, index, arch, None, false)
		if err != nil {
			return Blob{}, err
		}
		pkgsGz, err := g.Packages(channel, index, arch, Gzip, false)
		if err != nil {
			return Blob{}, err
		}
		pkgsBz2, err := g.Packages(channel, index, arch, Bzip2, false)
		if err != nil {
			return Blob{}, err
		}
		release := g.ArchRelease(arch)

		all = append(all, perArch{arch: arch, files: []distDigestFile{
			{name: "Packages", blob: pkgs},
			{name: "Packages.gz", blob: pkgsGz},
			{name: "Packages.bz2", blob: pkgsBz2},
			{name: "Release", blob: release},
		}})
	}

	writeSection := func(title string, digest func(Blob) string) {
		fmt.Fprintf(&b, "%s:\n", title)
		for _, pa := range all {
			for _, f := range pa.files {
				fmt.Fprintf(&b, " %s %15d main/binary-%s/%s\n",
					digest(f.blob), f.blob.Size, pa.arch, f.name)
			}
		}
	}
	writeSection("MD5Sum", func(bl Blob) string { return bl.MD5Sum })
	writeSection("SHA1", func(bl Blob) string { return bl.SHA1 })
	writeSection("SHA256", func(bl Blob) string { return bl.SHA256 })

	fmt.Fprintf(&b, "Acquire-By-Hash: no\n")

	return blobFrom([]byte(b.String())), nil
}
