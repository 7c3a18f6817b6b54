// Package report summarizes annotated tables and renders them as Markdown or PDF.
package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
)

// All disables the course or class filter.
const All = "All"

// ErrWrite is returned when the final report file cannot be written.
var ErrWrite = errors.New("report write failed")

// Sentiments in report order.
var Sentiments = []string{feedback.Positive, feedback.Neutral, feedback.Negative}

// SentimentCount is the number of discussing rows with one polarity.
type SentimentCount struct {
	Label      string
	Count      int
	Percentage float64
}

// AspectSummary covers one aspect of a report.
type AspectSummary struct {
	Aspect     string
	Discussed  int
	Sentiments []SentimentCount
	TopTerms   []TermCount
	// Records are the rows that discuss the aspect.
	Records []feedback.Record
}

// Summary is everything a report shows.
type Summary struct {
	Semester         string
	Teacher          string
	Course           string
	Class            string
	TotalRespondents int
	Aspects          []AspectSummary
}

// Filter narrows records to a course and, when a course is set, a class.
func Filter(records []feedback.Record, course, class string) []feedback.Record {
	if course == "" || course == All {
		return records
	}
	var out []feedback.Record
	for _, r := range records {
		if r.Course != course {
			continue
		}
		if class != "" && class != All && r.Class != class {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Courses returns the sorted distinct courses of a table.
func Courses(records []feedback.Record) []string {
	return distinct(records, func(r feedback.Record) (string, bool) { return r.Course, true })
}

// Classes returns the sorted distinct classes taught in a course.
func Classes(records []feedback.Record, course string) []string {
	return distinct(records, func(r feedback.Record) (string, bool) { return r.Class, r.Course == course })
}

func distinct(records []feedback.Record, key func(feedback.Record) (string, bool)) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		k, ok := key(r)
		if !ok || k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Summarize builds the report for a table after applying the course and
// class filter. Aspects default to the table's own list.
func Summarize(table *feedback.Table, course, class string, aspects []string) *Summary {
	if course == "" {
		course = All
	}
	if class == "" || course == All {
		class = All
	}
	if len(aspects) == 0 {
		aspects = table.Aspects
	}

	records := Filter(table.Records, course, class)
	s := &Summary{
		Semester: table.Semester,
		Teacher:  table.Teacher,
		Course:   course,
		Class:    class,
	}
	for _, r := range records {
		if strings.TrimSpace(r.Comments) != "" {
			s.TotalRespondents++
		}
	}

	for _, aspect := range aspects {
		as := AspectSummary{Aspect: aspect}
		var terms []string
		counts := make(map[string]int, len(Sentiments))
		for _, r := range records {
			res := r.Aspects[aspect]
			if !res.Discussed() {
				continue
			}
			as.Discussed++
			as.Records = append(as.Records, r)
			counts[sentimentLabel(res.Polarity)]++
			terms = append(terms, res.Terms)
		}
		for _, label := range Sentiments {
			sc := SentimentCount{Label: label, Count: counts[label]}
			if as.Discussed > 0 {
				sc.Percentage = float64(sc.Count) / float64(as.Discussed) * 100
			}
			as.Sentiments = append(as.Sentiments, sc)
		}
		as.TopTerms = TopTerms(terms, DefaultTopTerms)
		s.Aspects = append(s.Aspects, as)
	}
	return s
}

// sentimentLabel maps a stored polarity onto its Sentiments label regardless
// of case, so hand-edited or older cache files still count.
func sentimentLabel(polarity string) string {
	polarity = strings.TrimSpace(polarity)
	for _, label := range Sentiments {
		if strings.EqualFold(polarity, label) {
			return label
		}
	}
	return polarity
}

// Path returns the report location for a teacher, course and class.
func Path(root, semester, teacher, course, class string) string {
	name := fmt.Sprintf("%s_%s_%s.pdf",
		feedback.SanitizeFilename(teacher),
		feedback.SanitizeFilename(course),
		feedback.SanitizeFilename(class))
	return filepath.Join(root, feedback.SanitizeFilename(semester), name)
}

// Segment is a run of comment text, highlighted when it matches an aspect term.
type Segment struct {
	Text      string
	Highlight bool
}

// Segments splits a comment around its aspect terms. Terms are matched in
// order, case-insensitively, each searched after the previous match.
func Segments(comment, terms string) []Segment {
	remaining := strings.ReplaceAll(comment, "\n", " ")
	var out []Segment
	for _, term := range strings.Split(terms, ",") {
		term = strings.TrimSpace(term)
		if term == "" || strings.EqualFold(term, feedback.NoTerms) {
			continue
		}
		idx := indexFold(remaining, term)
		if idx < 0 {
			continue
		}
		if idx > 0 {
			out = append(out, Segment{Text: remaining[:idx]})
		}
		out = append(out, Segment{Text: remaining[idx : idx+len(term)], Highlight: true})
		remaining = remaining[idx+len(term):]
	}
	if remaining != "" {
		out = append(out, Segment{Text: remaining})
	}
	return out
}

// indexFold is a case-insensitive strings.Index. It falls back to an exact
// match when lower-casing changes the byte length.
func indexFold(s, substr string) int {
	ls, lsub := strings.ToLower(s), strings.ToLower(substr)
	if len(ls) != len(s) || len(lsub) != len(substr) {
		return strings.Index(s, substr)
	}
	return strings.Index(ls, lsub)
}
