package debrepo

import (
	"fmt"

	"github.com/zombified/reliquary/internal/nameparse"
)

// UniqueArches enumerates the distinct architectures present among an
// index's relics by attempting the Debian name parser on each relic's
// filename, per spec.md §4.6.4. The result is unordered; callers needing
// stable ordering must sort it.
func (g *Generator) UniqueArches(channel, index string) ([]string, error) {
	idxID, err := g.resolveIndex(channel, index)
	if err != nil {
		return nil, err
	}

	relics, err := g.db.ListRelics(idxID)
	if err != nil {
		return nil, fmt.Errorf("debrepo: listing relics: %w", err)
	}

	seen := make(map[string]struct{})
	var arches []string
	for _, r := range relics {
		parsed := nameparse.ParseDebian(r.Name)
		if !parsed.Parsed || parsed.Arch == "" {
			continue
		}
		if _, ok := seen[parsed.Arch]; ok {
			continue
		}
		seen[parsed.Arch] = struct{}{}
		arches = append(arches, parsed.Arch)
	}
	return arches, nil
}
