package debcontrol

import (
	"fmt"
	"io"
	"strings"
)

// Info is the fully extracted metadata for one .deb relic, shaped to match
// the DebInfo catalog row of spec.md §3. Filename and Hashes are filled in
// by ExtractInfo; the rest comes straight off the control file.
type Info struct {
	Hashes Hashes

	Package      string
	Version      string
	Architecture string
	Maintainer   string
	Description  string

	Source        string
	Section       string
	Priority      string
	Essential     string
	Depends       string
	Recommends    string
	Suggests      string
	Enhances      string
	PreDepends    string
	InstalledSize string
	Homepage      string
	BuiltUsing    string
	MultiArch     string

	DescriptionMD5 string

	// Filename is the pool-relative path "pool/<index>/<relic_name>".
	Filename string
}

// ExtractInfo streams r twice: once to compute the multi-hash digest, once
// (via seek back to the start) to extract and parse the control file. r must
// support io.Seeker in addition to io.Reader.
func ExtractInfo(r io.ReadSeeker, index, relicName string) (*Info, error) {
	hashes, err := Hash(r)
	if err != nil {
		return nil, fmt.Errorf("debcontrol: hashing: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("debcontrol: seeking back for extraction: %w", err)
	}

	raw, err := ExtractControl(r)
	if err != nil {
		return nil, err
	}

	c := Parse(raw)
	if err := c.Validate(); err != nil {
		return nil, err
	}

	get := func(name string) string {
		v, _ := c.Get(name)
		return v
	}

	pkg, _ := c.Get("package")
	version, _ := c.Get("version")
	arch, _ := c.Get("architecture")
	maintainer, _ := c.Get("maintainer")
	desc, _ := c.Get("description")

	return &Info{
		Hashes:         hashes,
		Package:        pkg,
		Version:        version,
		Architecture:   arch,
		Maintainer:     maintainer,
		Description:    desc,
		Source:         get("source"),
		Section:        get("section"),
		Priority:       get("priority"),
		Essential:      get("essential"),
		Depends:        get("depends"),
		Recommends:     get("recommends"),
		Suggests:       get("suggests"),
		Enhances:       get("enhances"),
		PreDepends:     get("pre-depends"),
		InstalledSize:  get("installed-size"),
		Homepage:       get("homepage"),
		BuiltUsing:     get("built-using"),
		MultiArch:      get("multi-arch"),
		DescriptionMD5: c.DescriptionMD5(),
		Filename:       strings.Join([]string{"pool", index, relicName}, "/"),
	}, nil
}
