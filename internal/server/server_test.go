package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/FeedbackLens/internal/cache"
	"github.com/TobiSchelling/FeedbackLens/internal/database"
	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedCache(t *testing.T) *cache.Cache {
	t.Helper()
	c := cache.New(t.TempDir())
	table := feedback.NewTable("Spring2024", "Dr. Rao", []string{"Knowledge"}, []feedback.Record{
		{
			FacultyName: "Dr. Rao",
			Course:      "CS101",
			Class:       "A",
			Comments:    "Deep knowledge of algorithms.",
			Target:      "Teacher",
			Semester:    "Spring2024",
		},
		{
			FacultyName: "Dr. Rao",
			Course:      "CS102",
			Class:       "B",
			Comments:    "Explains slowly.",
			Target:      "Teacher",
			Semester:    "Spring2024",
		},
	})
	table.Records[0].Aspects["Knowledge"] = feedback.AspectResult{Terms: "Deep knowledge", Polarity: feedback.Positive}
	table.Records[0].Status = feedback.StatusAnnotated
	if err := c.Store("Spring2024", "Dr. Rao", table); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}
	return c
}

func tablePath() string {
	return "/table/Spring2024/" + cache.KeyName("Dr. Rao")
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIndexRoute(t *testing.T) {
	c := seedCache(t)
	db := openTestDB(t)
	if err := db.InsertRun(&database.Run{
		Semester:  "Spring2024",
		Teacher:   "Dr. Rao",
		CachePath: c.Path("Spring2024", "Dr. Rao"),
		Annotated: 7,
		Failed:    2,
	}); err != nil {
		t.Fatalf("InsertRun: %v", err)
	}

	srv, err := New(c, db)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, tablePath()) {
		t.Error("expected link to the cached table")
	}
	if !strings.Contains(body, ">Dr. Rao</a>") {
		t.Error("expected the faculty name as link text")
	}
	if !strings.Contains(body, "7 annotated, 2 failed") {
		t.Error("expected last run counts in index")
	}
}

func TestIndexRouteEmpty(t *testing.T) {
	srv, err := New(cache.New(filepath.Join(t.TempDir(), "missing")), nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No annotated tables yet") {
		t.Error("expected empty state message")
	}
}

func TestTableRoute(t *testing.T) {
	srv, err := New(seedCache(t), nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, tablePath())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"Feedback Report for Dr. Rao",
		"<strong>Deep knowledge</strong>",
		"?course=CS102",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestTableRouteFiltersCourse(t *testing.T) {
	srv, err := New(seedCache(t), nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, tablePath()+"?course=CS102")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "Deep knowledge") {
		t.Error("expected CS101 comments to be filtered out")
	}
	if !strings.Contains(body, "class=B") {
		t.Error("expected class filter links for the selected course")
	}
}

func TestTableRouteNotFound(t *testing.T) {
	srv, err := New(seedCache(t), nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/table/Spring2024/Nobody")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStaticRoute(t *testing.T) {
	srv, err := New(cache.New(t.TempDir()), nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	rec := get(t, srv, "/static/style.css")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "border-collapse") {
		t.Error("expected CSS content")
	}
}
