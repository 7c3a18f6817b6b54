package feedback

import "strings"

// DefaultAspects is the fixed evaluation taxonomy, in report order.
var DefaultAspects = []string{
	"Teaching Pedagogy",
	"Knowledge",
	"Fair in Assessment",
	"Experience",
	"Behavior",
}

// NoTerms marks an aspect that was checked and yielded nothing.
const NoTerms = "None"

// Sentiment labels.
const (
	Positive = "Positive"
	Negative = "Negative"
	Neutral  = "Neutral"
)

// Status records what happened to a row during an annotation pass.
type Status string

const (
	StatusPending   Status = ""
	StatusAnnotated Status = "Annotated"
	StatusSkipped   Status = "Skipped"
	StatusFailed    Status = "Failed"
)

// AspectResult holds the extracted terms and polarity for one aspect.
// Zero value means the aspect was never filled in.
type AspectResult struct {
	Terms    string
	Polarity string
}

// Discussed reports whether the aspect carries real terms.
func (a AspectResult) Discussed() bool {
	t := strings.TrimSpace(a.Terms)
	return t != "" && !strings.EqualFold(t, NoTerms)
}

// Record is one feedback row.
type Record struct {
	FacultyName string
	Course      string
	Class       string
	Comments    string
	Target      string
	Semester    string

	// Extra carries upload columns that are not part of the fixed schema.
	Extra map[string]string

	Aspects     map[string]AspectResult
	LLMResponse string
	Status      Status
}

// Table is the rows for one (semester, teacher) pair.
type Table struct {
	Semester string
	Teacher  string
	Aspects  []string
	// ExtraColumns preserves the order of passthrough columns.
	ExtraColumns []string
	Records      []Record
}

// NewTable builds a table and prepares aspect fields on every record.
func NewTable(semester, teacher string, aspects []string, records []Record) *Table {
	t := &Table{
		Semester: semester,
		Teacher:  teacher,
		Records:  records,
	}
	t.PrepareAspects(aspects)
	return t
}

// PrepareAspects sets the aspect list and gives every record exactly one
// entry per aspect. Existing values are kept; aspects outside the list are dropped.
func (t *Table) PrepareAspects(aspects []string) {
	t.Aspects = append([]string(nil), aspects...)
	for i := range t.Records {
		r := &t.Records[i]
		prepared := make(map[string]AspectResult, len(aspects))
		for _, a := range aspects {
			prepared[a] = r.Aspects[a]
		}
		r.Aspects = prepared
	}
}

// TermsColumn is the tabular column name for an aspect's terms.
func TermsColumn(aspect string) string { return aspect + "_terms" }

// PolarityColumn is the tabular column name for an aspect's polarity.
func PolarityColumn(aspect string) string { return aspect + "_polarity" }
