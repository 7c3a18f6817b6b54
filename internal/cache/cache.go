// Package cache persists annotated tables as CSV files keyed by semester and teacher.
package cache

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
)

const (
	fileSuffix        = "_processed_feedback.csv"
	llmResponseColumn = "llm_response"
	statusColumn      = "status"
)

// BaseColumns are the fixed leading columns of every cached table.
var BaseColumns = []string{"FacultyName", "Course", "Class", "Comments", "Target", "Semester"}

// ErrWrite is returned when a table cannot be persisted.
var ErrWrite = errors.New("cache write failed")

// Entry identifies one cached table on disk. Semester and Teacher are the
// on-disk key segments; Name is the faculty name stored in the file.
type Entry struct {
	Semester string
	Teacher  string
	Name     string
	Path     string
}

// Cache stores annotated tables under a root directory.
type Cache struct {
	root string
}

// New creates a cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{root: dir}
}

// Root returns the cache directory.
func (c *Cache) Root() string { return c.root }

// Path returns the file location for a (semester, teacher) key.
func (c *Cache) Path(semester, teacher string) string {
	return filepath.Join(c.root, KeyName(semester), KeyName(teacher)+fileSuffix)
}

// KeyName turns a semester or teacher into a path segment. Names that
// SanitizeFilename leaves alone are used as is; any other name gets a short
// hash of the original appended, so "A/B" and "A B" never share a file.
// KeyName of its own output returns that output unchanged.
func KeyName(name string) string {
	safe := feedback.SanitizeFilename(name)
	if safe == name {
		return safe
	}
	sum := sha256.Sum256([]byte(name))
	return safe + "_" + hex.EncodeToString(sum[:4])
}

// Load returns the cached table for the key, or nil when nothing is cached.
func (c *Cache) Load(semester, teacher string) (*feedback.Table, error) {
	f, err := os.Open(c.Path(semester, teacher))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening cached table: %w", err)
	}
	defer f.Close()

	table, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("reading cached table %s: %w", f.Name(), err)
	}
	table.Semester = semester
	table.Teacher = teacher
	return table, nil
}

// Store writes the table for the key, replacing any previous version.
func (c *Cache) Store(semester, teacher string, table *feedback.Table) error {
	path := c.Path(semester, teacher)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrWrite, filepath.Dir(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.csv")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, table); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encoding %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// List returns every cached table, sorted by semester then teacher.
func (c *Cache) List() ([]Entry, error) {
	semesters, err := os.ReadDir(c.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}

	var entries []Entry
	for _, sem := range semesters {
		if !sem.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(c.root, sem.Name()))
		if err != nil {
			return nil, fmt.Errorf("listing cache: %w", err)
		}
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || !strings.HasSuffix(name, fileSuffix) {
				continue
			}
			path := filepath.Join(c.root, sem.Name(), name)
			stem := strings.TrimSuffix(name, fileSuffix)
			entries = append(entries, Entry{
				Semester: sem.Name(),
				Teacher:  stem,
				Name:     facultyName(path, stem),
				Path:     path,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Semester != entries[j].Semester {
			return entries[i].Semester < entries[j].Semester
		}
		return entries[i].Teacher < entries[j].Teacher
	})
	return entries, nil
}

// facultyName reads the first data row of a cached file and returns its
// FacultyName, or fallback when the file has none.
func facultyName(path, fallback string) string {
	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return fallback
	}
	row, err := cr.Read()
	if err != nil {
		return fallback
	}
	for i, h := range header {
		if h == "FacultyName" && i < len(row) && row[i] != "" {
			return row[i]
		}
	}
	return fallback
}

// Header returns the column order used to write a table.
func Header(table *feedback.Table) []string {
	header := append([]string(nil), BaseColumns...)
	header = append(header, table.ExtraColumns...)
	for _, a := range table.Aspects {
		header = append(header, feedback.TermsColumn(a), feedback.PolarityColumn(a))
	}
	return append(header, llmResponseColumn, statusColumn)
}

// Encode writes a table as CSV with a header row. Decode reads any line break
// inside a cell back as "\n", so callers store LF-only text.
func Encode(w io.Writer, table *feedback.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(table)); err != nil {
		return err
	}
	for _, r := range table.Records {
		row := []string{r.FacultyName, r.Course, r.Class, r.Comments, r.Target, r.Semester}
		for _, col := range table.ExtraColumns {
			row = append(row, r.Extra[col])
		}
		for _, a := range table.Aspects {
			res := r.Aspects[a]
			row = append(row, res.Terms, res.Polarity)
		}
		row = append(row, r.LLMResponse, string(r.Status))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads a table written by Encode. Aspects are recovered from paired
// _terms and _polarity columns; unknown columns become extras.
func Decode(r io.Reader) (*feedback.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("missing header row")
	}

	header := rows[0]
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[h] = i
	}

	table := &feedback.Table{}
	known := map[string]bool{llmResponseColumn: true, statusColumn: true}
	for _, c := range BaseColumns {
		known[c] = true
	}
	for _, h := range header {
		if a, ok := strings.CutSuffix(h, "_terms"); ok {
			if _, paired := index[feedback.PolarityColumn(a)]; paired {
				table.Aspects = append(table.Aspects, a)
				known[h] = true
				known[feedback.PolarityColumn(a)] = true
			}
		}
	}
	for _, h := range header {
		if !known[h] {
			table.ExtraColumns = append(table.ExtraColumns, h)
		}
	}

	get := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	for _, row := range rows[1:] {
		rec := feedback.Record{
			FacultyName: get(row, "FacultyName"),
			Course:      get(row, "Course"),
			Class:       get(row, "Class"),
			Comments:    get(row, "Comments"),
			Target:      get(row, "Target"),
			Semester:    get(row, "Semester"),
			LLMResponse: get(row, llmResponseColumn),
			Status:      feedback.Status(get(row, statusColumn)),
			Aspects:     make(map[string]feedback.AspectResult, len(table.Aspects)),
		}
		if len(table.ExtraColumns) > 0 {
			rec.Extra = make(map[string]string, len(table.ExtraColumns))
			for _, col := range table.ExtraColumns {
				rec.Extra[col] = get(row, col)
			}
		}
		for _, a := range table.Aspects {
			rec.Aspects[a] = feedback.AspectResult{
				Terms:    get(row, feedback.TermsColumn(a)),
				Polarity: get(row, feedback.PolarityColumn(a)),
			}
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}
