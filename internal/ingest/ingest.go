// Package ingest reads feedback uploads (CSV, Excel or evaluation-report PDF)
// into records.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
)

// RequiredColumns must be present in every tabular upload.
var RequiredColumns = []string{"FacultyName", "Course", "Comments", "Target", "Class"}

const semesterColumn = "Semester"

// Upload is a parsed feedback file.
type Upload struct {
	// Semester defaults to the file name without extension.
	Semester     string
	ExtraColumns []string
	Records      []feedback.Record
}

// MissingColumnError names a required column absent from the upload header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("upload is missing required column %q", e.Column)
}

// Load reads an upload, dispatching on the file extension.
func Load(path string) (*Upload, error) {
	semester := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var (
		u   *Upload
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening upload: %w", err)
		}
		defer f.Close()
		u, err = ReadCSV(f, semester)
	case ".xlsx":
		u, err = ReadXLSX(path, semester)
	case ".pdf":
		u, err = ReadPDF(path, semester)
	default:
		return nil, fmt.Errorf("unsupported upload type %q (want .csv, .xlsx or .pdf)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return u, nil
}

// ReadCSV parses a CSV upload with a header row.
func ReadCSV(r io.Reader, semester string) (*Upload, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return FromRows(rows, semester)
}

// ReadXLSX parses the first sheet of an Excel workbook.
func ReadXLSX(path, semester string) (*Upload, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return FromRows(rows, semester)
}

// FromRows validates the header, keeps rows whose Target mentions a teacher,
// and carries unknown columns through as extras.
func FromRows(rows [][]string, semester string) (*Upload, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("upload is empty")
	}

	header := make([]string, len(rows[0]))
	index := make(map[string]int, len(header))
	for i, h := range rows[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		index[h] = i
	}
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			return nil, &MissingColumnError{Column: col}
		}
	}

	known := map[string]bool{semesterColumn: true}
	for _, c := range RequiredColumns {
		known[c] = true
	}
	u := &Upload{Semester: semester}
	for _, h := range header {
		if h != "" && !known[h] {
			u.ExtraColumns = append(u.ExtraColumns, h)
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
		if !IsTeacherTarget(get(row, "Target")) {
			continue
		}
		rec := feedback.Record{
			FacultyName: strings.TrimSpace(get(row, "FacultyName")),
			Course:      strings.TrimSpace(get(row, "Course")),
			Class:       strings.TrimSpace(get(row, "Class")),
			Comments:    foldLineEndings(get(row, "Comments")),
			Target:      get(row, "Target"),
			Semester:    get(row, semesterColumn),
		}
		if rec.Semester == "" {
			rec.Semester = semester
		}
		if len(u.ExtraColumns) > 0 {
			rec.Extra = make(map[string]string, len(u.ExtraColumns))
			for _, col := range u.ExtraColumns {
				rec.Extra[col] = foldLineEndings(get(row, col))
			}
		}
		u.Records = append(u.Records, rec)
	}
	return u, nil
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// foldLineEndings turns CRLF and lone CR into LF. The CSV cache reads every
// embedded line break back as LF, so cells are stored that way from the start.
func foldLineEndings(s string) string {
	return lineEndings.Replace(s)
}

// IsTeacherTarget reports whether a Target value refers to the teacher.
func IsTeacherTarget(target string) bool {
	return strings.Contains(strings.ToLower(target), "teacher")
}

// Teachers returns the sorted distinct faculty names.
func (u *Upload) Teachers() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range u.Records {
		if r.FacultyName == "" || seen[r.FacultyName] {
			continue
		}
		seen[r.FacultyName] = true
		names = append(names, r.FacultyName)
	}
	sort.Strings(names)
	return names
}

// ForTeacher builds the unannotated table for one teacher.
func (u *Upload) ForTeacher(teacher string, aspects []string) *feedback.Table {
	var records []feedback.Record
	for _, r := range u.Records {
		if r.FacultyName == teacher {
			records = append(records, r)
		}
	}
	t := feedback.NewTable(u.Semester, teacher, aspects, records)
	t.ExtraColumns = append([]string(nil), u.ExtraColumns...)
	return t
}
