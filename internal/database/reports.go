package database

// InsertReport records a written report file.
func (db *DB) InsertReport(r *Report) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO reports (run_id, semester, teacher, course, class, path, respondents)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Semester, r.Teacher, r.Course, r.Class, r.Path, r.Respondents,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetReports returns the reports written for a teacher, newest first.
func (db *DB) GetReports(semester, teacher string) ([]Report, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, semester, teacher, course, class, path, respondents, generated_at
		FROM reports WHERE semester = ? AND teacher = ? ORDER BY id DESC`, semester, teacher,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.RunID, &r.Semester, &r.Teacher, &r.Course, &r.Class,
			&r.Path, &r.Respondents, &r.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetStats returns aggregate ledger statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM annotation_runs", &s.Runs},
		{"SELECT COUNT(DISTINCT semester || '/' || teacher) FROM annotation_runs", &s.Teachers},
		{"SELECT COUNT(DISTINCT semester) FROM annotation_runs", &s.Semesters},
		{"SELECT COALESCE(SUM(annotated), 0) FROM annotation_runs", &s.Annotated},
		{"SELECT COALESCE(SUM(failed), 0) FROM annotation_runs", &s.Failed},
		{"SELECT COUNT(*) FROM reports", &s.Reports},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return s, nil
}
