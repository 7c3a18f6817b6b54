package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const runColumns = `id, semester, teacher, cache_path, content_hash, provider, model,
	total_rows, annotated, skipped, failed, started_at, finished_at`

// InsertRun stores a run, assigning an ID when it has none.
func (db *DB) InsertRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = r.FinishedAt
	}
	_, err := db.conn.Exec(
		`INSERT INTO annotation_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Semester, r.Teacher, r.CachePath, r.ContentHash, r.Provider, r.Model,
		r.TotalRows, r.Annotated, r.Skipped, r.Failed,
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
	)
	return err
}

// GetLatestRun returns the most recent run for a key, or nil if none exists.
func (db *DB) GetLatestRun(semester, teacher string) (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT `+runColumns+` FROM annotation_runs
		WHERE semester = ? AND teacher = ?
		ORDER BY finished_at DESC LIMIT 1`, semester, teacher,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// GetAllRuns returns runs newest first. A limit of zero returns every run.
func (db *DB) GetAllRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM annotation_runs ORDER BY finished_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                 Run
		provider, model   sql.NullString
		started, finished string
	)
	if err := s.Scan(&r.ID, &r.Semester, &r.Teacher, &r.CachePath, &r.ContentHash, &provider, &model,
		&r.TotalRows, &r.Annotated, &r.Skipped, &r.Failed, &started, &finished); err != nil {
		return nil, err
	}
	r.Provider = provider.String
	r.Model = model.String
	r.StartedAt, _ = time.Parse(timeLayout, started)
	r.FinishedAt, _ = time.Parse(timeLayout, finished)
	return &r, nil
}
