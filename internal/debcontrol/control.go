// Package debcontrol extracts and parses the control metadata embedded in
// Debian binary packages (.deb files), per spec.md §4.5.
package debcontrol

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// RequiredFields are the control fields that must be present for a .deb to
// be cataloged; absence of any aborts extraction for that relic.
var RequiredFields = []string{"package", "version", "architecture", "maintainer", "description"}

// ErrMissingField is returned by Validate when a required field is absent.
type ErrMissingField struct {
	Field string
}

func (e *ErrMissingField) Error() string {
	return fmt.Sprintf("debcontrol: required field %q missing", e.Field)
}

// Control is an RFC822-style case-insensitive mapping parsed from a
// "control" file. Folded (continuation) lines are joined with "\n" so
// multi-line values like Description round-trip intact.
type Control struct {
	Raw    string
	fields map[string]string // lowercased field name -> value
	// order preserves the original field order for round-tripping.
	order []string
}

// Parse decodes the RFC822-style control stanza. Unlike a strict RFC822
// parser it tolerates blank lines within the stanza (a trailing Installed-Size
// or Filename-less control file is still common).
func Parse(raw string) *Control {
	c := &Control{Raw: raw, fields: make(map[string]string)}

	var currentKey string
	var currentValue strings.Builder
	flush := func() {
		if currentKey == "" {
			return
		}
		key := strings.ToLower(currentKey)
		if _, exists := c.fields[key]; !exists {
			c.order = append(c.order, key)
		}
		c.fields[key] = strings.TrimSpace(currentValue.String())
	}

	for _, line := range strings.Split(raw, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			currentValue.WriteString("\n" + line)
			continue
		}
		if idx := strings.Index(line, ":"); idx >= 0 {
			flush()
			currentKey = strings.TrimSpace(line[:idx])
			currentValue.Reset()
			currentValue.WriteString(strings.TrimSpace(line[idx+1:]))
		}
	}
	flush()

	return c
}

// Get looks up a field case-insensitively. ok is false if absent.
func (c *Control) Get(name string) (string, bool) {
	v, ok := c.fields[strings.ToLower(name)]
	return v, ok
}

// Validate ensures every field in RequiredFields is present and non-empty.
func (c *Control) Validate() error {
	for _, f := range RequiredFields {
		v, ok := c.Get(f)
		if !ok || v == "" {
			return &ErrMissingField{Field: f}
		}
	}
	return nil
}

// DescriptionMD5 returns the control's "description-md5" field if present;
// otherwise it computes the lowercase hex MD5 of the Description field, with
// a trailing newline appended if the description does not already end with
// one, per spec.md §4.5 step 4.
func (c *Control) DescriptionMD5() string {
	if v, ok := c.Get("description-md5"); ok && v != "" {
		return v
	}
	desc, _ := c.Get("description")
	if !strings.HasSuffix(desc, "\n") {
		desc += "\n"
	}
	sum := md5.Sum([]byte(desc))
	return hex.EncodeToString(sum[:])
}
