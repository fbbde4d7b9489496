// Package nameparse decodes relic filenames into package/version/extension
// triples. Each parser is a pure function; none performs I/O.
package nameparse

// Result is the outcome of a name parse: either a Parsed name or, on no
// match, an Unparsed sentinel carrying the original filename.
type Result struct {
	Parsed  bool
	Package string
	Version string
	Ext     string
	// Arch is set only by the Debian parser, and only when the filename
	// carries an architecture component (e.g. "_amd64").
	Arch string
	// Original is always set, Parsed or not.
	Original string
}

// Unparsed reports whether the name could not be decoded.
func (r Result) Unparsed() bool {
	return !r.Parsed
}
