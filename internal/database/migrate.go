package database

import (
	"database/sql"
	"fmt"
	"log"
)

type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func schemaVersion(q querier) (int, error) {
	var version int
	if err := q.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// pending returns the migrations newer than current, oldest first.
func pending(current int) []Migration {
	var out []Migration
	for _, m := range migrations {
		if m.Version > current {
			out = append(out, m)
		}
	}
	return out
}

// migrate applies pending migrations and returns the resulting version.
func migrate(conn *sql.DB) (int, error) {
	current, err := schemaVersion(conn)
	if err != nil {
		return 0, err
	}
	if current > latestVersion() {
		log.Printf("Warning: ledger schema version %d is newer than this build (%d)", current, latestVersion())
	}
	todo := pending(current)
	for _, m := range todo {
		if err := apply(conn, m); err != nil {
			return current, err
		}
		current = m.Version
	}
	if len(todo) > 0 {
		log.Printf("Ledger schema at version %d (%d migrations applied)", current, len(todo))
	}
	return current, nil
}

// apply runs one migration in a transaction, then records its version.
// The driver ignores user_version writes made inside a transaction.
func apply(conn *sql.DB, m Migration) error {
	log.Printf("Applying ledger migration %d: %s", m.Version, m.Description)

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("recording version %d: %w", m.Version, err)
	}
	return nil
}
