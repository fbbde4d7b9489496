package catalog

import "database/sql"

// GetRelic fetches a Relic by (indexID, name). Returns ErrMultiple if more
// than one row matches — the tie-break signal the reindexer logs and skips
// on (spec.md §4.4).
func (db *DB) GetRelic(indexID int64, name string) (*Relic, error) {
	var rows []Relic
	err := db.Select(&rows,
		db.Rebind(`SELECT id, index_id, name, mtime, size, dirty FROM relics WHERE index_id = ? AND name = ?`),
		indexID, name)
	if err != nil {
		return nil, err
	}
	return boundOne(rows)
}

// InsertRelic inserts a new Relic row with dirty = false.
func (db *DB) InsertRelic(indexID int64, name, mtime string, size int64) (int64, error) {
	res, err := db.Exec(
		db.Rebind(`INSERT INTO relics (index_id, name, mtime, size, dirty) VALUES (?, ?, ?, ?, ?)`),
		indexID, name, mtime, size, false)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateRelic updates an existing Relic's mtime/size and clears its dirty
// flag.
func (db *DB) UpdateRelic(id int64, mtime string, size int64) error {
	_, err := db.Exec(
		db.Rebind(`UPDATE relics SET mtime = ?, size = ?, dirty = ? WHERE id = ?`),
		mtime, size, false, id)
	return err
}

// MarkAllRelicsDirty sets dirty = true on every Relic row.
func (db *DB) MarkAllRelicsDirty() error {
	_, err := db.Exec(`UPDATE relics SET dirty = true`)
	return err
}

// DeleteDirtyRelics removes every Relic row still dirty = true, cascading
// to its DebInfo.
func (db *DB) DeleteDirtyRelics() (int64, error) {
	res, err := db.Exec(`DELETE FROM relics WHERE dirty = true`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListRelics returns every Relic belonging to an Index.
func (db *DB) ListRelics(indexID int64) ([]Relic, error) {
	var rows []Relic
	err := db.Select(&rows,
		db.Rebind(`SELECT id, index_id, name, mtime, size, dirty FROM relics WHERE index_id = ? ORDER BY name`),
		indexID)
	return rows, err
}

// RelicStats reports the total number of Relic rows and their combined size,
// across every channel/index — the figures metrics.UpdateCacheStats exports
// as gauges.
func (db *DB) RelicStats() (count, totalSize int64, err error) {
	if err = db.Get(&count, `SELECT COUNT(*) FROM relics`); err != nil {
		return 0, 0, err
	}
	var sum sql.NullInt64
	if err = db.Get(&sum, `SELECT SUM(size) FROM relics`); err != nil {
		return 0, 0, err
	}
	return count, sum.Int64, nil
}

// RelicExists reports whether a Relic row exists for (channel, index, name),
// joining through Index and Channel. Used by Fetch-on-Miss (spec.md §4.7).
func (db *DB) RelicExists(channel, index, name string) (bool, error) {
	var count int
	err := db.Get(&count, db.Rebind(`
		SELECT COUNT(*) FROM relics r
		JOIN indices i ON i.id = r.index_id
		JOIN channels c ON c.id = i.channel_id
		WHERE c.name = ? AND i.name = ? AND r.name = ?
	`), channel, index, name)
	return count > 0, err
}
