package catalog

// GetChannel fetches a Channel by name. Returns ErrNone if absent, ErrMultiple
// if the (name) uniqueness invariant has somehow been violated.
func (db *DB) GetChannel(name string) (*Channel, error) {
	var rows []Channel
	if err := db.Select(&rows, db.Rebind(`SELECT id, name, dirty FROM channels WHERE name = ?`), name); err != nil {
		return nil, err
	}
	return boundOne(rows)
}

// UpsertChannel inserts the channel if absent, or clears its dirty flag if
// present. Returns the row's id.
func (db *DB) UpsertChannel(name string) (int64, error) {
	existing, err := db.GetChannel(name)
	if err != nil && err != ErrNone {
		return 0, err
	}
	if existing != nil {
		_, err := db.Exec(db.Rebind(`UPDATE channels SET dirty = ? WHERE id = ?`), false, existing.ID)
		return existing.ID, err
	}

	res, err := db.Exec(db.Rebind(`INSERT INTO channels (name, dirty) VALUES (?, ?)`), name, false)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkAllChannelsDirty sets dirty = true on every Channel row, the first
// step of a reindex sweep (spec.md §4.4).
func (db *DB) MarkAllChannelsDirty() error {
	_, err := db.Exec(`UPDATE channels SET dirty = true`)
	return err
}

// DeleteDirtyChannels removes every Channel row still dirty = true,
// cascading to its Indices, Relics, and DebInfos.
func (db *DB) DeleteDirtyChannels() (int64, error) {
	res, err := db.Exec(`DELETE FROM channels WHERE dirty = true`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListChannels returns every Channel, ordered by name.
func (db *DB) ListChannels() ([]Channel, error) {
	var rows []Channel
	err := db.Select(&rows, `SELECT id, name, dirty FROM channels ORDER BY name`)
	return rows, err
}

func boundOne[T any](rows []T) (*T, error) {
	switch len(rows) {
	case 0:
		return nil, ErrNone
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrMultiple
	}
}
