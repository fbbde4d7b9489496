package catalog

// GetIndex fetches an Index by (channelID, name).
func (db *DB) GetIndex(channelID int64, name string) (*Index, error) {
	var rows []Index
	err := db.Select(&rows,
		db.Rebind(`SELECT id, channel_id, name, dirty FROM indices WHERE channel_id = ? AND name = ?`),
		channelID, name)
	if err != nil {
		return nil, err
	}
	return boundOne(rows)
}

// UpsertIndex inserts the index if absent, or clears its dirty flag if
// present. Returns the row's id.
func (db *DB) UpsertIndex(channelID int64, name string) (int64, error) {
	existing, err := db.GetIndex(channelID, name)
	if err != nil && err != ErrNone {
		return 0, err
	}
	if existing != nil {
		_, err := db.Exec(db.Rebind(`UPDATE indices SET dirty = ? WHERE id = ?`), false, existing.ID)
		return existing.ID, err
	}

	res, err := db.Exec(
		db.Rebind(`INSERT INTO indices (channel_id, name, dirty) VALUES (?, ?, ?)`),
		channelID, name, false)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkAllIndicesDirty sets dirty = true on every Index row.
func (db *DB) MarkAllIndicesDirty() error {
	_, err := db.Exec(`UPDATE indices SET dirty = true`)
	return err
}

// DeleteDirtyIndices removes every Index row still dirty = true.
func (db *DB) DeleteDirtyIndices() (int64, error) {
	res, err := db.Exec(`DELETE FROM indices WHERE dirty = true`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListIndices returns every Index belonging to a Channel.
func (db *DB) ListIndices(channelID int64) ([]Index, error) {
	var rows []Index
	err := db.Select(&rows,
		db.Rebind(`SELECT id, channel_id, name, dirty FROM indices WHERE channel_id = ? ORDER BY name`),
		channelID)
	return rows, err
}
