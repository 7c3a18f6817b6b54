// Package database keeps the SQLite ledger of annotation runs and written reports.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// connPragmas run on every pooled connection, busy_timeout first so the
// journal switch can wait out a concurrent writer.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// DB is the run and report ledger.
type DB struct {
	conn    *sql.DB
	path    string
	version int
}

// Open creates or opens the ledger at dbPath and brings its schema up to date.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", dbPath, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening ledger %s: %w", dbPath, err)
	}

	version, err := migrate(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating ledger %s: %w", dbPath, err)
	}
	return &DB{conn: conn, path: dbPath, version: version}, nil
}

// dsn attaches connPragmas to the file path in the form the modernc driver
// reads them.
func dsn(dbPath string) string {
	return dbPath + "?" + url.Values{"_pragma": connPragmas}.Encode()
}

// Close closes the ledger.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the ledger file path.
func (db *DB) Path() string {
	return db.path
}

// SchemaVersion returns the migration version the ledger was opened at.
func (db *DB) SchemaVersion() int {
	return db.version
}
