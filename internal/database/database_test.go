package database

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertRunAssignsID(t *testing.T) {
	db := openTestDB(t)
	r := &Run{
		Semester:    "Spring2024",
		Teacher:     "Dr. Rao",
		CachePath:   "/cache/Spring2024/Dr._Rao_processed_feedback.csv",
		ContentHash: "abc",
		Provider:    "ollama",
		Model:       "llama3",
		TotalRows:   10,
		Annotated:   7,
		Skipped:     2,
		Failed:      1,
	}
	if err := db.InsertRun(r); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if len(r.ID) != 36 {
		t.Errorf("expected a UUID, got %q", r.ID)
	}

	got, err := db.GetLatestRun("Spring2024", "Dr. Rao")
	if err != nil {
		t.Fatalf("GetLatestRun: %v", err)
	}
	if got == nil || got.ID != r.ID || got.Annotated != 7 || got.Model != "llama3" {
		t.Errorf("unexpected run: %+v", got)
	}
}

func TestGetLatestRunPicksNewest(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, hash := range []string{"old", "new"} {
		err := db.InsertRun(&Run{
			Semester:    "Spring2024",
			Teacher:     "Dr. Rao",
			CachePath:   "p",
			ContentHash: hash,
			FinishedAt:  base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
	}
	got, err := db.GetLatestRun("Spring2024", "Dr. Rao")
	if err != nil {
		t.Fatalf("GetLatestRun: %v", err)
	}
	if got.ContentHash != "new" {
		t.Errorf("expected newest run, got %q", got.ContentHash)
	}
	if !got.FinishedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("unexpected finish time %v", got.FinishedAt)
	}
}

func TestGetLatestRunMissing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetLatestRun("Fall2023", "Nobody")
	if err != nil {
		t.Fatalf("GetLatestRun: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestGetAllRunsLimit(t *testing.T) {
	db := openTestDB(t)
	for _, teacher := range []string{"A", "B", "C"} {
		if err := db.InsertRun(&Run{Semester: "S", Teacher: teacher, CachePath: "p", ContentHash: "h"}); err != nil {
			t.Fatalf("InsertRun: %v", err)
		}
	}
	runs, err := db.GetAllRuns(2)
	if err != nil {
		t.Fatalf("GetAllRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestReportsAndStats(t *testing.T) {
	db := openTestDB(t)
	run := &Run{Semester: "Spring2024", Teacher: "Dr. Rao", CachePath: "p", ContentHash: "h", Annotated: 5, Failed: 1}
	if err := db.InsertRun(run); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}
	if err := db.InsertRun(&Run{Semester: "Fall2023", Teacher: "Prof. Iyer", CachePath: "p", ContentHash: "h", Annotated: 3}); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	id, err := db.InsertReport(&Report{
		RunID:       &run.ID,
		Semester:    "Spring2024",
		Teacher:     "Dr. Rao",
		Course:      "All",
		Class:       "All",
		Path:        "Reports/Spring2024/Dr._Rao_All_All.pdf",
		Respondents: 6,
	})
	if err != nil || id == 0 {
		t.Fatalf("InsertReport: id=%d err=%v", id, err)
	}

	reports, err := db.GetReports("Spring2024", "Dr. Rao")
	if err != nil {
		t.Fatalf("GetReports: %v", err)
	}
	if len(reports) != 1 || reports[0].RunID == nil || *reports[0].RunID != run.ID {
		t.Errorf("unexpected reports: %+v", reports)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	want := Stats{Runs: 2, Teachers: 2, Semesters: 2, Annotated: 8, Failed: 1, Reports: 1}
	if *stats != want {
		t.Errorf("GetStats = %+v, want %+v", *stats, want)
	}
}
