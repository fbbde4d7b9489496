// Package reindex reconciles the Catalog Store with the on-disk repository
// tree, per spec.md §4.4. It is the offline counterpart to the HTTP server:
// its own process, assuming no concurrent writers to the catalog or the
// repository tree during its run.
package reindex

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zombified/reliquary/internal/catalog"
	"github.com/zombified/reliquary/internal/debcontrol"
)

// Reindexer walks a storage root and reconciles it against a catalog.DB.
type Reindexer struct {
	db     *catalog.DB
	root   string
	logger *slog.Logger
}

// New creates a Reindexer rooted at root (reliquary.location).
func New(db *catalog.DB, root string, logger *slog.Logger) *Reindexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reindexer{db: db, root: root, logger: logger}
}

// Stats summarizes one sweep, for the CLI to report.
type Stats struct {
	ChannelsSeen int
	IndicesSeen  int
	RelicsSeen   int
	DebInfosSet  int
	Ambiguous    int
	Deleted      int64
}

// Run performs one full reindex sweep: mark everything dirty, walk the
// filesystem tree reconciling it against the catalog, then delete anything
// still dirty.
func (rx *Reindexer) Run() (Stats, error) {
	var stats Stats

	if err := rx.db.MarkAllChannelsDirty(); err != nil {
		return stats, fmt.Errorf("reindex: marking channels dirty: %w", err)
	}
	if err := rx.db.MarkAllIndicesDirty(); err != nil {
		return stats, fmt.Errorf("reindex: marking indices dirty: %w", err)
	}
	if err := rx.db.MarkAllRelicsDirty(); err != nil {
		return stats, fmt.Errorf("reindex: marking relics dirty: %w", err)
	}

	channels, err := os.ReadDir(rx.root)
	if err != nil {
		return stats, fmt.Errorf("reindex: reading root %q: %w", rx.root, err)
	}

	for _, channelEnt := range channels {
		if !channelEnt.IsDir() {
			continue
		}
		channelName := channelEnt.Name()
		channelPath := filepath.Join(rx.root, channelName)

		channelID, err := rx.db.UpsertChannel(channelName)
		if err != nil {
			return stats, fmt.Errorf("reindex: upserting channel %q: %w", channelName, err)
		}
		stats.ChannelsSeen++

		if err := rx.walkChannel(channelID, channelName, channelPath, &stats); err != nil {
			return stats, err
		}
	}

	deleted, err := rx.sweepDirty()
	stats.Deleted = deleted
	if err != nil {
		return stats, err
	}

	return stats, nil
}

func (rx *Reindexer) walkChannel(channelID int64, channelName, channelPath string, stats *Stats) error {
	indices, err := os.ReadDir(channelPath)
	if err != nil {
		return fmt.Errorf("reindex: reading channel %q: %w", channelName, err)
	}

	for _, indexEnt := range indices {
		if !indexEnt.IsDir() {
			continue
		}
		indexName := indexEnt.Name()
		indexPath := filepath.Join(channelPath, indexName)

		indexID, err := rx.db.UpsertIndex(channelID, indexName)
		if err != nil {
			return fmt.Errorf("reindex: upserting index %q/%q: %w", channelName, indexName, err)
		}
		stats.IndicesSeen++

		if err := rx.walkIndex(indexID, channelName, indexName, indexPath, stats); err != nil {
			return err
		}
	}
	return nil
}

func (rx *Reindexer) walkIndex(indexID int64, channelName, indexName, indexPath string, stats *Stats) error {
	relics, err := os.ReadDir(indexPath)
	if err != nil {
		return fmt.Errorf("reindex: reading index %q/%q: %w", channelName, indexName, err)
	}

	for _, relicEnt := range relics {
		if relicEnt.IsDir() {
			continue
		}
		relicName := relicEnt.Name()
		relicPath := filepath.Join(indexPath, relicName)

		info, err := relicEnt.Info()
		if err != nil {
			return fmt.Errorf("reindex: stat %q: %w", relicPath, err)
		}
		mtime := strconv.FormatFloat(float64(info.ModTime().UnixNano())/1e9, 'f', -1, 64)
		size := info.Size()

		existing, err := rx.db.GetRelic(indexID, relicName)
		if err == catalog.ErrMultiple {
			rx.logger.Error("ambiguous relic, skipping",
				"channel", channelName, "index", indexName, "relic", relicName)
			stats.Ambiguous++
			continue
		} else if err != nil && err != catalog.ErrNone {
			return fmt.Errorf("reindex: looking up relic %q: %w", relicPath, err)
		}

		var relicID int64
		if existing != nil {
			relicID = existing.ID
			if err := rx.db.UpdateRelic(relicID, mtime, size); err != nil {
				return fmt.Errorf("reindex: updating relic %q: %w", relicPath, err)
			}
		} else {
			relicID, err = rx.db.InsertRelic(indexID, relicName, mtime, size)
			if err != nil {
				return fmt.Errorf("reindex: inserting relic %q: %w", relicPath, err)
			}
		}
		stats.RelicsSeen++

		if filepath.Ext(relicName) == ".deb" {
			if err := rx.extractDebInfo(relicID, indexName, relicName, relicPath); err != nil {
				rx.logger.Error("control extraction failed",
					"relic", relicPath, "error", err)
				continue
			}
			stats.DebInfosSet++
		}
	}
	return nil
}

func (rx *Reindexer) extractDebInfo(relicID int64, indexName, relicName, relicPath string) error {
	f, err := os.Open(relicPath)
	if err != nil {
		return fmt.Errorf("opening %q: %w", relicPath, err)
	}
	defer f.Close()

	info, err := debcontrol.ExtractInfo(f, indexName, relicName)
	if err != nil {
		return err
	}

	return rx.db.UpsertDebInfo(relicID, info)
}

// sweepDirty deletes every Channel/Index/Relic row still dirty at the end of
// a sweep (spec.md §8 testable property 2), in the same Channel-then-Index-
// then-Relic order as the original reindex script. Deleting a dirty Channel
// cascades away its Indices and Relics regardless of their own dirty flag —
// correct, since a missing channel directory means everything under it is
// gone too.
func (rx *Reindexer) sweepDirty() (int64, error) {
	var total int64

	n, err := rx.db.DeleteDirtyChannels()
	if err != nil {
		return total, fmt.Errorf("reindex: deleting dirty channels: %w", err)
	}
	total += n

	n, err = rx.db.DeleteDirtyIndices()
	if err != nil {
		return total, fmt.Errorf("reindex: deleting dirty indices: %w", err)
	}
	total += n

	n, err = rx.db.DeleteDirtyRelics()
	if err != nil {
		return total, fmt.Errorf("reindex: deleting dirty relics: %w", err)
	}
	total += n

	return total, nil
}
