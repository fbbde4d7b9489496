package catalog

// Channel is the top-level namespace (e.g. "stable", "unstable").
type Channel struct {
	ID    int64  `db:"id"`
	Name  string `db:"name"`
	Dirty bool   `db:"dirty"`
}

// Index is a named collection of relics within a Channel (e.g. a PyPI/npm
// "index" or a Debian "distribution").
type Index struct {
	ID        int64  `db:"id"`
	ChannelID int64  `db:"channel_id"`
	Name      string `db:"name"`
	Dirty     bool   `db:"dirty"`
}

// Relic is one stored artifact within an Index.
type Relic struct {
	ID      int64  `db:"id"`
	IndexID int64  `db:"index_id"`
	Name    string `db:"name"`
	Mtime   string `db:"mtime"`
	Size    int64  `db:"size"`
	Dirty   bool   `db:"dirty"`
}

// DebInfo is the 1:1 Debian control metadata for a Relic whose name ends in
// ".deb". See spec.md §3 for the field catalog.
type DebInfo struct {
	ID             int64  `db:"id"`
	RelicID        int64  `db:"relic_id"`
	Filename       string `db:"filename"`
	MD5Sum         string `db:"md5sum"`
	SHA1           string `db:"sha1"`
	SHA256         string `db:"sha256"`
	SHA512         string `db:"sha512"`
	DescriptionMD5 string `db:"description_md5"`
	MultiArch      string `db:"multi_arch"`

	Package      string `db:"package"`
	Version      string `db:"version"`
	Architecture string `db:"architecture"`
	Maintainer   string `db:"maintainer"`
	Description  string `db:"description"`

	Source        string `db:"source"`
	Section       string `db:"section"`
	Priority      string `db:"priority"`
	Essential     string `db:"essential"`
	Depends       string `db:"depends"`
	Recommends    string `db:"recommends"`
	Suggests      string `db:"suggests"`
	Enhances      string `db:"enhances"`
	PreDepends    string `db:"pre_depends"`
	InstalledSize string `db:"installed_size"`
	Homepage      string `db:"homepage"`
	BuiltUsing    string `db:"built_using"`
}

// DebInfoWithRelic is a DebInfo joined with its owning Relic's size and
// name — the shape debrepo needs to emit a Packages stanza's Size field and
// to recover the original filename when built from a query rather than a
// fresh extraction.
type DebInfoWithRelic struct {
	DebInfo
	RelicSize int64  `db:"relic_size"`
	RelicName string `db:"relic_name"`
}

// FileCache is a content-addressed memoization row keyed by an arbitrary
// logical string key (e.g. "stable-main-amd64-gz"). See spec.md §4.6.
type FileCache struct {
	ID     int64  `db:"id"`
	Key    string `db:"key"`
	Value  []byte `db:"value"`
	Mtime  string `db:"mtime"`
	Size   int64  `db:"size"`
	MD5Sum string `db:"md5sum"`
	SHA1   string `db:"sha1"`
	SHA256 string `db:"sha256"`
}
