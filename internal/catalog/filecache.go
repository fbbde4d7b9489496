package catalog

// GetFileCache fetches a FileCache row by key. Returns ErrNone if absent.
func (db *DB) GetFileCache(key string) (*FileCache, error) {
	var rows []FileCache
	err := db.Select(&rows,
		db.Rebind(`SELECT id, key, value, mtime, size, md5sum, sha1, sha256 FROM file_cache WHERE key = ?`),
		key)
	if err != nil {
		return nil, err
	}
	return boundOne(rows)
}

// PutFileCache inserts or replaces a FileCache row by key.
func (db *DB) PutFileCache(row *FileCache) error {
	existing, err := db.GetFileCache(row.Key)
	if err != nil && err != ErrNone {
		return err
	}
	if existing != nil {
		_, err := db.Exec(db.Rebind(`
			UPDATE file_cache SET value = ?, mtime = ?, size = ?, md5sum = ?, sha1 = ?, sha256 = ?
			WHERE key = ?
		`), row.Value, row.Mtime, row.Size, row.MD5Sum, row.SHA1, row.SHA256, row.Key)
		return err
	}
	_, err = db.Exec(db.Rebind(`
		INSERT INTO file_cache (key, value, mtime, size, md5sum, sha1, sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), row.Key, row.Value, row.Mtime, row.Size, row.MD5Sum, row.SHA1, row.SHA256)
	return err
}

// DeleteFileCache removes the row for key, if present. Absence is not an
// error — the caller is about to regenerate it.
func (db *DB) DeleteFileCache(key string) error {
	_, err := db.Exec(db.Rebind(`DELETE FROM file_cache WHERE key = ?`), key)
	return err
}
