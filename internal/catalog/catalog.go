// Package catalog is the relational backing store for Reliquary: Channel,
// Index, Relic, DebInfo, and FileCache rows, per spec.md §3 and §4.1.
//
// Both sqlite (via modernc.org/sqlite) and PostgreSQL (via lib/pq) are
// supported through a single sqlx.DB handle; query text uses sqlx's `?`
// placeholder convention and is rebound per-driver with db.Rebind.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNone and ErrMultiple signal the two boundary cases of a bounded fetch:
// a query expected to return zero-or-one row returned zero, or more than
// one. Per spec.md §4.1, "multiple" is a hard data-integrity signal and is
// never silently reduced to "one".
var (
	ErrNone     = errors.New("catalog: no matching row")
	ErrMultiple = errors.New("catalog: multiple matching rows")
)

// DB wraps a sqlx.DB bound to one of the two supported dialects.
type DB struct {
	*sqlx.DB
	driver string
}

// Open opens (and, if empty, schema-initializes) a catalog database.
// driver is "sqlite" or "postgres"; dsn is the sqlite file path or the
// postgres connection string respectively.
func Open(driver, dsn string) (*DB, error) {
	var sqlxDriver string
	switch driver {
	case "sqlite":
		sqlxDriver = "sqlite"
		// SQLite enforces foreign keys (and so ON DELETE CASCADE) only when
		// asked to on each connection.
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	case "postgres":
		sqlxDriver = "postgres"
	default:
		return nil, fmt.Errorf("catalog: unknown driver %q", driver)
	}

	conn, err := sqlx.Open(sqlxDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: opening %s database: %w", driver, err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("catalog: pinging %s database: %w", driver, err)
	}

	db := &DB{DB: conn, driver: driver}
	if err := db.createSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("catalog: creating schema: %w", err)
	}
	return db, nil
}

// Driver returns "sqlite" or "postgres".
func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) createSchema() error {
	var stmt string
	if db.driver == "postgres" {
		stmt = schemaPostgres
	} else {
		stmt = schemaSQLite
	}
	_, err := db.Exec(stmt)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS channels (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	name  TEXT NOT NULL UNIQUE,
	dirty BOOLEAN NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS indices (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	dirty      BOOLEAN NOT NULL DEFAULT 1,
	UNIQUE(channel_id, name)
);

CREATE TABLE IF NOT EXISTS relics (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	index_id INTEGER NOT NULL REFERENCES indices(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	mtime    TEXT NOT NULL,
	size     INTEGER NOT NULL,
	dirty    BOOLEAN NOT NULL DEFAULT 1,
	UNIQUE(index_id, name)
);

CREATE TABLE IF NOT EXISTS deb_infos (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	relic_id        INTEGER NOT NULL UNIQUE REFERENCES relics(id) ON DELETE CASCADE,
	filename        TEXT NOT NULL,
	md5sum          TEXT NOT NULL,
	sha1            TEXT NOT NULL,
	sha256          TEXT NOT NULL,
	sha512          TEXT NOT NULL,
	description_md5 TEXT NOT NULL,
	multi_arch      TEXT NOT NULL DEFAULT '',
	package         TEXT NOT NULL,
	version         TEXT NOT NULL,
	architecture    TEXT NOT NULL,
	maintainer      TEXT NOT NULL,
	description     TEXT NOT NULL,
	source          TEXT NOT NULL DEFAULT '',
	section         TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT '',
	essential       TEXT NOT NULL DEFAULT '',
	depends         TEXT NOT NULL DEFAULT '',
	recommends      TEXT NOT NULL DEFAULT '',
	suggests        TEXT NOT NULL DEFAULT '',
	enhances        TEXT NOT NULL DEFAULT '',
	pre_depends     TEXT NOT NULL DEFAULT '',
	installed_size  TEXT NOT NULL DEFAULT '',
	homepage        TEXT NOT NULL DEFAULT '',
	built_using     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS file_cache (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	key    TEXT NOT NULL UNIQUE,
	value  BLOB NOT NULL,
	mtime  TEXT NOT NULL,
	size   INTEGER NOT NULL,
	md5sum TEXT NOT NULL,
	sha1   TEXT NOT NULL,
	sha256 TEXT NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS channels (
	id    BIGSERIAL PRIMARY KEY,
	name  TEXT NOT NULL UNIQUE,
	dirty BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS indices (
	id         BIGSERIAL PRIMARY KEY,
	channel_id BIGINT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	dirty      BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE(channel_id, name)
);

CREATE TABLE IF NOT EXISTS relics (
	id       BIGSERIAL PRIMARY KEY,
	index_id BIGINT NOT NULL REFERENCES indices(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	mtime    TEXT NOT NULL,
	size     BIGINT NOT NULL,
	dirty    BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE(index_id, name)
);

CREATE TABLE IF NOT EXISTS deb_infos (
	id              BIGSERIAL PRIMARY KEY,
	relic_id        BIGINT NOT NULL UNIQUE REFERENCES relics(id) ON DELETE CASCADE,
	filename        TEXT NOT NULL,
	md5sum          TEXT NOT NULL,
	sha1            TEXT NOT NULL,
	sha256          TEXT NOT NULL,
	sha512          TEXT NOT NULL,
	description_md5 TEXT NOT NULL,
	multi_arch      TEXT NOT NULL DEFAULT '',
	package         TEXT NOT NULL,
	version         TEXT NOT NULL,
	architecture    TEXT NOT NULL,
	maintainer      TEXT NOT NULL,
	description     TEXT NOT NULL,
	source          TEXT NOT NULL DEFAULT '',
	section         TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT '',
	essential       TEXT NOT NULL DEFAULT '',
	depends         TEXT NOT NULL DEFAULT '',
	recommends      TEXT NOT NULL DEFAULT '',
	suggests        TEXT NOT NULL DEFAULT '',
	enhances        TEXT NOT NULL DEFAULT '',
	pre_depends     TEXT NOT NULL DEFAULT '',
	installed_size  TEXT NOT NULL DEFAULT '',
	homepage        TEXT NOT NULL DEFAULT '',
	built_using     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS file_cache (
	id     BIGSERIAL PRIMARY KEY,
	key    TEXT NOT NULL UNIQUE,
	value  BYTEA NOT NULL,
	mtime  TEXT NOT NULL,
	size   BIGINT NOT NULL,
	md5sum TEXT NOT NULL,
	sha1   TEXT NOT NULL,
	sha256 TEXT NOT NULL
);
`
