package absa

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
	"github.com/TobiSchelling/FeedbackLens/internal/llm"
)

// Store persists an annotated table.
type Store interface {
	Store(semester, teacher string, table *feedback.Table) error
}

// ProgressFunc is told how many rows have been handled out of total.
type ProgressFunc func(completed, total int)

// Options configures an Annotator.
type Options struct {
	Model string
	// Instructions overrides the generated system prompt when set.
	Instructions    string
	MinCommentChars int
	VerifyTerms     bool
	// Verbose logs every annotated row.
	Verbose bool
}

// Result holds the outcome of one annotation pass.
type Result struct {
	Table     *feedback.Table
	Processed int
	Annotated int
	Skipped   int
	Failed    int
}

// Annotator runs every eligible comment of a table through the model.
type Annotator struct {
	client       llm.Client
	store        Store
	filter       feedback.Filter
	model        string
	instructions string
	verifyTerms  bool
	verbose      bool
}

// NewAnnotator creates a new annotator.
func NewAnnotator(client llm.Client, store Store, opts Options) *Annotator {
	return &Annotator{
		client:       client,
		store:        store,
		filter:       feedback.NewFilter(opts.MinCommentChars),
		model:        opts.Model,
		instructions: opts.Instructions,
		verifyTerms:  opts.VerifyTerms,
		verbose:      opts.Verbose,
	}
}

// AnnotateTable fills the aspect fields of every eligible row in place and
// stores the table. Per-row failures are logged and recorded on the row; only
// a failed store is returned as an error.
func (a *Annotator) AnnotateTable(ctx context.Context, table *feedback.Table, teacher, semester string, aspects []string, progress ProgressFunc) (*Result, error) {
	if table == nil {
		return nil, errors.New("no table to annotate")
	}
	if a.client == nil {
		return nil, errors.New("no annotation client configured")
	}
	if len(aspects) == 0 {
		aspects = feedback.DefaultAspects
	}

	table.Semester = semester
	table.Teacher = teacher
	table.PrepareAspects(aspects)

	instructions := a.instructions
	if instructions == "" {
		instructions = BuildInstructions(aspects)
	}

	r := &Result{Table: table}
	total := len(table.Records)
	for i := range table.Records {
		rec := &table.Records[i]
		r.Processed++

		switch a.annotateRecord(ctx, rec, i, aspects, instructions) {
		case feedback.StatusAnnotated:
			r.Annotated++
		case feedback.StatusSkipped:
			r.Skipped++
		case feedback.StatusFailed:
			r.Failed++
		}
		reportProgress(progress, i+1, total)
	}

	log.Printf("Annotation complete for %s (%s): %d rows (%d annotated, %d skipped, %d failed)",
		teacher, semester, r.Processed, r.Annotated, r.Skipped, r.Failed)

	if a.store != nil {
		if err := a.store.Store(semester, teacher, table); err != nil {
			return r, fmt.Errorf("storing annotated table: %w", err)
		}
	}
	return r, nil
}

func (a *Annotator) annotateRecord(ctx context.Context, rec *feedback.Record, idx int, aspects []string, instructions string) feedback.Status {
	if a.filter.ShouldSkip(rec.Comments) {
		rec.Status = feedback.StatusSkipped
		return rec.Status
	}

	raw, err := a.client.Annotate(ctx, rec.Comments, instructions, a.model)
	if err != nil {
		if llm.IsKind(err, llm.TransportError) {
			log.Printf("Endpoint unreachable for row %d (%s %s): %v", idx, rec.Course, rec.Class, err)
		} else {
			log.Printf("Error annotating row %d (%s %s): %v", idx, rec.Course, rec.Class, err)
		}
		rec.Status = feedback.StatusFailed
		return rec.Status
	}
	rec.LLMResponse = raw

	resp, ok := ParseResponse(raw)
	if !ok {
		log.Printf("Unparseable response for row %d (%s %s): %q", idx, rec.Course, rec.Class, raw)
		rec.Status = feedback.StatusFailed
		return rec.Status
	}

	for _, aspect := range aspects {
		terms, polarity, ok := Normalize(aspect, resp)
		if !ok {
			continue
		}
		if a.verifyTerms {
			terms = verifyTerms(terms, rec.Comments)
		}
		rec.Aspects[aspect] = feedback.AspectResult{Terms: terms, Polarity: polarity}
	}
	rec.Status = feedback.StatusAnnotated
	if a.verbose {
		log.Printf("Annotated row %d (%s %s)", idx, rec.Course, rec.Class)
	}
	return rec.Status
}

// reportProgress calls fn and swallows any panic it raises so a broken
// callback cannot abort the pass.
func reportProgress(fn ProgressFunc, completed, total int) {
	if fn == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Printf("Progress callback panicked: %v", p)
		}
	}()
	fn(completed, total)
}
