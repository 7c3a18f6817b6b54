package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
)

func record(course, class, comment string, aspects map[string]feedback.AspectResult) feedback.Record {
	return feedback.Record{
		FacultyName: "Dr. Rao",
		Course:      course,
		Class:       class,
		Comments:    comment,
		Target:      "Teacher",
		Semester:    "Spring2024",
		Aspects:     aspects,
	}
}

func sampleTable() *feedback.Table {
	return &feedback.Table{
		Semester: "Spring2024",
		Teacher:  "Dr. Rao",
		Aspects:  []string{"Knowledge", "Behavior"},
		Records: []feedback.Record{
			record("CS101", "A", "Deep knowledge of algorithms and very polite.", map[string]feedback.AspectResult{
				"Knowledge": {Terms: "Deep knowledge of algorithms", Polarity: "Positive"},
				"Behavior":  {Terms: "very polite", Polarity: "Positive"},
			}),
			record("CS101", "B", "Does not know the algorithms well.", map[string]feedback.AspectResult{
				"Knowledge": {Terms: "not know the algorithms", Polarity: "Negative"},
				"Behavior":  {Terms: "None", Polarity: "Neutral"},
			}),
			record("CS102", "A", "", map[string]feedback.AspectResult{}),
			record("CS102", "A", "na", map[string]feedback.AspectResult{}),
		},
	}
}

func TestFilter(t *testing.T) {
	records := sampleTable().Records
	if got := Filter(records, All, "B"); len(got) != 4 {
		t.Errorf("All course should ignore class, got %d", len(got))
	}
	if got := Filter(records, "CS101", All); len(got) != 2 {
		t.Errorf("expected 2 CS101 rows, got %d", len(got))
	}
	if got := Filter(records, "CS101", "B"); len(got) != 1 || got[0].Class != "B" {
		t.Errorf("expected the CS101/B row, got %+v", got)
	}
}

func TestCoursesAndClasses(t *testing.T) {
	records := sampleTable().Records
	if got := Courses(records); !reflect.DeepEqual(got, []string{"CS101", "CS102"}) {
		t.Errorf("Courses = %v", got)
	}
	if got := Classes(records, "CS101"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("Classes = %v", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTable(), "", "", nil)
	if s.Course != All || s.Class != All {
		t.Errorf("expected All filters, got %s/%s", s.Course, s.Class)
	}
	if s.TotalRespondents != 3 {
		t.Errorf("expected 3 respondents with comments, got %d", s.TotalRespondents)
	}
	if len(s.Aspects) != 2 {
		t.Fatalf("expected 2 aspects, got %d", len(s.Aspects))
	}

	knowledge := s.Aspects[0]
	if knowledge.Discussed != 2 {
		t.Errorf("expected 2 discussing Knowledge, got %d", knowledge.Discussed)
	}
	want := []SentimentCount{
		{Label: "Positive", Count: 1, Percentage: 50},
		{Label: "Neutral", Count: 0, Percentage: 0},
		{Label: "Negative", Count: 1, Percentage: 50},
	}
	if !reflect.DeepEqual(knowledge.Sentiments, want) {
		t.Errorf("Sentiments = %+v", knowledge.Sentiments)
	}

	behavior := s.Aspects[1]
	if behavior.Discussed != 1 {
		t.Errorf("None terms must not count as discussed, got %d", behavior.Discussed)
	}
}

func TestSummarizeFoldsPolarityCase(t *testing.T) {
	table := &feedback.Table{
		Semester: "Spring2024",
		Teacher:  "Dr. Rao",
		Aspects:  []string{"Knowledge"},
		Records: []feedback.Record{
			record("CS101", "A", "Knows the subject deeply.", map[string]feedback.AspectResult{
				"Knowledge": {Terms: "Knows the subject", Polarity: "positive"},
			}),
			record("CS101", "A", "Solid grasp of theory.", map[string]feedback.AspectResult{
				"Knowledge": {Terms: "Solid grasp", Polarity: " POSITIVE "},
			}),
			record("CS101", "A", "Struggles with questions.", map[string]feedback.AspectResult{
				"Knowledge": {Terms: "Struggles", Polarity: "negative"},
			}),
			record("CS101", "A", "Average explanations.", map[string]feedback.AspectResult{
				"Knowledge": {Terms: "Average explanations", Polarity: "Neutral"},
			}),
		},
	}

	got := Summarize(table, "", "", nil).Aspects[0].Sentiments
	want := []SentimentCount{
		{Label: "Positive", Count: 2, Percentage: 50},
		{Label: "Neutral", Count: 1, Percentage: 25},
		{Label: "Negative", Count: 1, Percentage: 25},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sentiments = %+v, want %+v", got, want)
	}
}

func TestSummarizeSelectedAspectsAndFilter(t *testing.T) {
	s := Summarize(sampleTable(), "CS101", "B", []string{"Knowledge"})
	if s.TotalRespondents != 1 || len(s.Aspects) != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Aspects[0].Sentiments[2].Percentage != 100 {
		t.Errorf("expected 100%% negative, got %+v", s.Aspects[0].Sentiments)
	}
}

func TestTopTermsKeepsNegations(t *testing.T) {
	got := TopTerms([]string{"not clear explanation", "clear examples", "the teacher is clear"}, 3)
	want := []TermCount{{"clear", 3}, {"examples", 1}, {"explanation", 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopTerms = %+v, want %+v", got, want)
	}
	words := Words("Not helpful, didn't explain 2024 topics; student's notes")
	wantWords := []string{"not", "helpful", "didn't", "explain", "topics", "notes"}
	if !reflect.DeepEqual(words, wantWords) {
		t.Errorf("Words = %v, want %v", words, wantWords)
	}
}

func TestSegments(t *testing.T) {
	got := Segments("Explains CONCEPTS clearly,\nbut grading is slow.", "explains concepts,grading,missing")
	want := []Segment{
		{Text: "Explains CONCEPTS", Highlight: true},
		{Text: " clearly, but "},
		{Text: "grading", Highlight: true},
		{Text: " is slow."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Segments = %+v", got)
	}

	plain := Segments("Nothing matches here.", "None")
	if len(plain) != 1 || plain[0].Highlight {
		t.Errorf("expected a single plain segment, got %+v", plain)
	}
}

func TestPath(t *testing.T) {
	got := Path("Reports", "Spring 2024", "Dr. Rao", "CS 101", "All")
	want := filepath.Join("Reports", "Spring_2024", "Dr._Rao_CS_101_All.pdf")
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(Summarize(sampleTable(), "", "", nil))
	for _, want := range []string{
		"# Feedback Report for Dr. Rao",
		"**Total Respondents:** 3",
		"| Knowledge | 2 | 1 (50.0%) | 0 (0.0%) | 1 (50.0%) |",
		"## Behavior",
		"**Deep knowledge of algorithms**",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestWritePDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Spring2024", "report.pdf")
	if err := WritePDF(Summarize(sampleTable(), "", "", nil), path); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("expected a PDF header")
	}
}

func TestWritePDFFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := WritePDF(Summarize(sampleTable(), "", "", nil), filepath.Join(blocker, "out.pdf"))
	if !errors.Is(err, ErrWrite) {
		t.Errorf("expected ErrWrite, got %v", err)
	}
}
