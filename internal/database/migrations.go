package database

import "database/sql"

// Migration is a single schema step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations must stay ordered by Version. Append only.
var migrations = []Migration{
	{
		Version:     1,
		Description: "annotation runs",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS annotation_runs (
    id TEXT PRIMARY KEY,
    semester TEXT NOT NULL,
    teacher TEXT NOT NULL,
    cache_path TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    provider TEXT,
    model TEXT,
    total_rows INTEGER DEFAULT 0,
    annotated INTEGER DEFAULT 0,
    skipped INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_key ON annotation_runs(semester, teacher, finished_at);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "report ledger",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT REFERENCES annotation_runs(id),
    semester TEXT NOT NULL,
    teacher TEXT NOT NULL,
    course TEXT NOT NULL,
    class TEXT NOT NULL,
    path TEXT NOT NULL,
    respondents INTEGER DEFAULT 0,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_key ON reports(semester, teacher);
`)
			return err
		},
	},
}

func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
