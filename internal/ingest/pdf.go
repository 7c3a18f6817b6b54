package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
)

// ReadPDF extracts feedback rows from an evaluation-report PDF.
func ReadPDF(path, semester string) (*Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	text, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extracting pdf text: %w", err)
	}
	return ParsePDFText(text, semester)
}

// ParsePDFText scans report text line by line. "Teacher Name:", "Course
// Title:" and "Class:" headers set the context for the comment lines that
// follow; lines mentioning "for teacher" or "for course" become rows.
func ParsePDFText(r io.Reader, semester string) (*Upload, error) {
	u := &Upload{Semester: semester}
	var faculty, course, class string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		switch {
		case strings.HasPrefix(lower, "teacher name:"):
			faculty = headerValue(line)
		case strings.HasPrefix(lower, "course title:"):
			course = headerValue(line)
		case strings.HasPrefix(lower, "class:"):
			class = headerValue(line)
		case strings.Contains(lower, "comments for teacher and course"):
			continue
		case strings.Contains(lower, "for teacher"), strings.Contains(lower, "for course"):
			target := "Course"
			if strings.Contains(lower, "for teacher") {
				target = "Teacher"
			}
			if !IsTeacherTarget(target) {
				continue
			}
			u.Records = append(u.Records, feedback.Record{
				FacultyName: faculty,
				Course:      course,
				Class:       class,
				Comments:    line,
				Target:      target,
				Semester:    semester,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return u, nil
}

func headerValue(line string) string {
	_, v, _ := strings.Cut(line, ":")
	return strings.TrimSpace(strings.TrimLeft(v, ":"))
}
