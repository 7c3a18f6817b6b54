package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/TobiSchelling/FeedbackLens/internal/absa"
	"github.com/TobiSchelling/FeedbackLens/internal/cache"
	"github.com/TobiSchelling/FeedbackLens/internal/config"
	"github.com/TobiSchelling/FeedbackLens/internal/database"
	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
	"github.com/TobiSchelling/FeedbackLens/internal/llm"
	"github.com/TobiSchelling/FeedbackLens/internal/report"
)

// AnnotateResult holds the outcome of Annotate.
type AnnotateResult struct {
	Table *feedback.Table
	// CacheHit is true when the table came from the cache and no model calls were made.
	CacheHit bool
	// Stale is true when the cached table was built from different input rows.
	Stale  bool
	Run    *database.Run
	Counts *absa.Result
}

// ReportResult holds the outcome of Report.
type ReportResult struct {
	Path    string
	Summary *report.Summary
}

// Pipeline connects the annotation cache, the model client and the ledger.
type Pipeline struct {
	cfg    *config.Config
	db     *database.DB
	cache  *cache.Cache
	client llm.Client
}

// New creates a pipeline. The model client is built on first use, so cached
// tables and reports work without a reachable endpoint. db may be nil.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		db:    db,
		cache: cache.New(cfg.GetCacheDir()),
	}
}

// WithClient sets the model client explicitly.
func (p *Pipeline) WithClient(client llm.Client) *Pipeline {
	p.client = client
	return p
}

// Cache returns the table cache.
func (p *Pipeline) Cache() *cache.Cache { return p.cache }

// Annotate returns the annotated table for the input rows. A cached table for
// the same (semester, teacher) wins unless its input changed and
// cache.invalidate_on_change is set.
func (p *Pipeline) Annotate(ctx context.Context, table *feedback.Table, progress absa.ProgressFunc) (*AnnotateResult, error) {
	semester, teacher := table.Semester, table.Teacher
	hash := ContentHash(table.Records)

	cached, err := p.cache.Load(semester, teacher)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		stale := p.isStale(semester, teacher, hash)
		if !stale || !p.cfg.Cache.InvalidateOnChange {
			if stale {
				log.Printf("Warning: cached table for %s (%s) was built from different rows; set cache.invalidate_on_change to re-annotate", teacher, semester)
			}
			log.Printf("Using cached annotations for %s (%s)", teacher, semester)
			return &AnnotateResult{Table: cached, CacheHit: true, Stale: stale}, nil
		}
		log.Printf("Input changed for %s (%s), re-annotating", teacher, semester)
	}

	client, err := p.getClient()
	if err != nil {
		return nil, err
	}

	started := time.Now().UTC()
	annotator := absa.NewAnnotator(client, p.cache, absa.Options{
		Model:           p.cfg.Annotation.Model,
		MinCommentChars: p.cfg.Annotation.MinCommentChars,
		VerifyTerms:     p.cfg.Annotation.VerifyTerms,
		Verbose:         p.cfg.Debug(),
	})
	counts, err := annotator.AnnotateTable(ctx, table, teacher, semester, p.cfg.Aspects(), progress)
	if err != nil {
		return nil, err
	}

	res := &AnnotateResult{Table: counts.Table, Counts: counts}
	if p.db != nil {
		run := &database.Run{
			Semester:    semester,
			Teacher:     teacher,
			CachePath:   p.cache.Path(semester, teacher),
			ContentHash: hash,
			Provider:    p.cfg.Annotation.Provider,
			Model:       p.cfg.Annotation.Model,
			TotalRows:   counts.Processed,
			Annotated:   counts.Annotated,
			Skipped:     counts.Skipped,
			Failed:      counts.Failed,
			StartedAt:   started,
		}
		if err := p.db.InsertRun(run); err != nil {
			log.Printf("Error recording annotation run: %v", err)
		} else {
			res.Run = run
		}
	}
	return res, nil
}

// Report writes the PDF report for a table and records it in the ledger.
func (p *Pipeline) Report(table *feedback.Table, course, class string, aspects []string) (*ReportResult, error) {
	summary := report.Summarize(table, course, class, aspects)
	path := report.Path(p.cfg.GetReportsDir(), table.Semester, table.Teacher, summary.Course, summary.Class)

	if err := report.WritePDF(summary, path); err != nil {
		return nil, err
	}
	log.Printf("Report saved to %s", path)

	if p.db != nil {
		rec := &database.Report{
			Semester:    table.Semester,
			Teacher:     table.Teacher,
			Course:      summary.Course,
			Class:       summary.Class,
			Path:        path,
			Respondents: summary.TotalRespondents,
		}
		if run, err := p.db.GetLatestRun(table.Semester, table.Teacher); err == nil && run != nil {
			rec.RunID = &run.ID
		}
		if _, err := p.db.InsertReport(rec); err != nil {
			log.Printf("Error recording report: %v", err)
		}
	}
	return &ReportResult{Path: path, Summary: summary}, nil
}

func (p *Pipeline) isStale(semester, teacher, hash string) bool {
	if p.db == nil {
		return false
	}
	run, err := p.db.GetLatestRun(semester, teacher)
	if err != nil {
		log.Printf("Error reading run ledger: %v", err)
		return false
	}
	return run != nil && run.ContentHash != hash
}

func (p *Pipeline) getClient() (llm.Client, error) {
	if p.client != nil {
		return p.client, nil
	}
	client, err := llm.New(p.cfg.LLM())
	if err != nil {
		return nil, fmt.Errorf("creating annotation client: %w", err)
	}
	p.client = client
	return client, nil
}

// ContentHash fingerprints the input columns of a set of rows.
func ContentHash(records []feedback.Record) string {
	h := sha256.New()
	for _, r := range records {
		for _, field := range []string{r.FacultyName, r.Course, r.Class, r.Comments, r.Target} {
			h.Write([]byte(field))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
