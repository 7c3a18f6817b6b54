package database

import "time"

// Run records one annotation pass for a (semester, teacher) pair.
type Run struct {
	ID          string
	Semester    string
	Teacher     string
	CachePath   string
	ContentHash string
	Provider    string
	Model       string
	TotalRows   int
	Annotated   int
	Skipped     int
	Failed      int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Report records one written report file.
type Report struct {
	ID          int64
	RunID       *string
	Semester    string
	Teacher     string
	Course      string
	Class       string
	Path        string
	Respondents int
	GeneratedAt *string
}

// Stats holds aggregate ledger statistics.
type Stats struct {
	Runs      int
	Teachers  int
	Semesters int
	Annotated int
	Failed    int
	Reports   int
}
