// Package patharbiter validates (channel, index, relic_name) triples against
// a configured storage root, preventing path escape.
package patharbiter

import (
	"errors"
	"path/filepath"
	"regexp"
)

// Kind identifies the category of a validation failure.
type Kind int

const (
	// NotConfigured means the storage root was never set.
	NotConfigured Kind = iota
	// InvalidName means a path segment contains a forbidden character.
	InvalidName
	// Escape means the normalized path falls outside the root.
	Escape
)

func (k Kind) String() string {
	switch k {
	case NotConfigured:
		return "not_configured"
	case InvalidName:
		return "invalid_name"
	case Escape:
		return "escape"
	default:
		return "unknown"
	}
}

// Error is the failure variant of a Path Arbiter result. It is never a 404:
// callers convert it to a 500-style response per spec.md §7.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string {
	switch e.Kind {
	case NotConfigured:
		return "reliquary not configured"
	case InvalidName:
		return "invalid channel/index"
	case Escape:
		return "invalid channel/index"
	default:
		return "path validation failed"
	}
}

// forbiddenChar matches any rune outside the restricted charset of spec.md
// §4.2: letters, digits, underscore, hyphen, slash, dot, and space. Any such
// rune is InvalidName.
var forbiddenChar = regexp.MustCompile(`[^A-Za-z0-9_\-/. ]`)

// Paths is the success variant: the validated storage root, the
// channel/index folder, and (if a relic name was given) the full relic path.
type Paths struct {
	Root        string
	RelicFolder string
	RelicPath   string // empty if no relic_name was requested
}

// Validate checks (root, channel, index, relicName) per spec.md §4.2.
// relicName may be empty, in which case RelicPath is left empty and no
// additional character/containment check is performed on it.
//
// The containment check normalizes both sides with filepath.Clean (without
// making them absolute) and compares the folder's path against the root's
// as a prefix, mirroring the
// original Python implementation's os.path.normpath + startswith check
// (original_source/reliquary/utils.py validate_reliquary_location).
func Validate(root, channel, index, relicName string) (Paths, error) {
	if root == "" {
		return Paths{}, &Error{Kind: NotConfigured}
	}
	root = filepath.Clean(root)

	relicFolder := filepath.Clean(filepath.Join(root, channel, index))
	if forbiddenChar.MatchString(relicFolder) {
		return Paths{}, &Error{Kind: InvalidName}
	}
	if !withinRoot(root, relicFolder) {
		return Paths{}, &Error{Kind: Escape}
	}

	var relicPath string
	if relicName != "" {
		relicPath = filepath.Clean(filepath.Join(relicFolder, relicName))
		if forbiddenChar.MatchString(relicPath) {
			return Paths{}, &Error{Kind: InvalidName}
		}
		if !withinRoot(root, relicPath) {
			return Paths{}, &Error{Kind: Escape}
		}
	}

	return Paths{Root: root, RelicFolder: relicFolder, RelicPath: relicPath}, nil
}

func withinRoot(root, candidate string) bool {
	if candidate == root {
		return true
	}
	return len(candidate) > len(root) &&
		candidate[:len(root)] == root &&
		(candidate[len(root)] == filepath.Separator || filepath.Separator == '/')
}

// As is a convenience wrapper around errors.As for *Error.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}
