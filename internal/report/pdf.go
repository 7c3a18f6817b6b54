package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

type rgb struct{ r, g, b int }

var (
	black        = rgb{0, 0, 0}
	positiveInk  = rgb{0, 128, 0}
	negativeInk  = rgb{255, 0, 0}
	otherInk     = rgb{255, 165, 0}
	commentShade = rgb{240, 240, 240}
)

func polarityInk(polarity string) rgb {
	switch strings.ToLower(strings.TrimSpace(polarity)) {
	case "positive":
		return positiveInk
	case "negative":
		return negativeInk
	default:
		return otherInk
	}
}

// WritePDF renders the summary to path, creating parent directories.
func WritePDF(s *Summary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}

	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetAutoPageBreak(true, 15)

	doc.AddPage()
	writeOverview(doc, tr, s)
	for _, a := range s.Aspects {
		doc.AddPage()
		writeAspect(doc, tr, s, a)
	}

	if err := doc.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}

func writeOverview(doc *fpdf.Fpdf, tr func(string) string, s *Summary) {
	doc.SetFont("Arial", "B", 11)
	doc.CellFormat(0, 10, tr("Teacher: "+s.Teacher), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 10, tr("Course: "+s.Course), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 10, tr("Class: "+s.Class), "", 1, "L", false, 0, "")
	doc.CellFormat(0, 10, tr("Semester: "+s.Semester), "", 1, "L", false, 0, "")
	doc.Ln(5)

	doc.SetFont("Arial", "B", 10)
	doc.CellFormat(0, 10, fmt.Sprintf("Total Respondents: %d", s.TotalRespondents), "", 1, "L", false, 0, "")
	doc.Ln(5)

	widths := []float64{60, 30, 30, 30, 30}
	headers := []string{"Aspect", "Discussed", "Positive", "Neutral", "Negative"}
	doc.SetFillColor(commentShade.r, commentShade.g, commentShade.b)
	for i, h := range headers {
		doc.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	doc.Ln(-1)

	doc.SetFont("Arial", "", 10)
	for _, a := range s.Aspects {
		doc.CellFormat(widths[0], 8, tr(a.Aspect), "1", 0, "L", false, 0, "")
		doc.CellFormat(widths[1], 8, fmt.Sprintf("%d", a.Discussed), "1", 0, "C", false, 0, "")
		for i, sc := range a.Sentiments {
			ink := polarityInk(sc.Label)
			if sc.Label == "Neutral" {
				ink = black
			}
			doc.SetTextColor(ink.r, ink.g, ink.b)
			doc.CellFormat(widths[2+i], 8, fmt.Sprintf("%d (%.1f%%)", sc.Count, sc.Percentage), "1", 0, "C", false, 0, "")
		}
		doc.SetTextColor(black.r, black.g, black.b)
		doc.Ln(-1)
	}
}

func writeAspect(doc *fpdf.Fpdf, tr func(string) string, s *Summary, a AspectSummary) {
	doc.SetFont("Arial", "B", 16)
	doc.CellFormat(0, 10, tr(a.Aspect), "", 1, "C", false, 0, "")
	doc.Ln(5)

	doc.SetFont("Arial", "", 11)
	info := fmt.Sprintf("%d students discussed this aspect out of %d total respondents.", a.Discussed, s.TotalRespondents)
	doc.CellFormat(0, 10, info, "", 1, "C", false, 0, "")
	doc.Ln(5)

	if len(a.TopTerms) > 0 {
		var words []string
		for _, tc := range a.TopTerms {
			words = append(words, fmt.Sprintf("%s (%d)", tc.Word, tc.Count))
		}
		doc.SetFont("Arial", "I", 10)
		doc.MultiCell(0, 5, tr("Top terms: "+strings.Join(words, ", ")), "", "L", false)
		doc.Ln(5)
	}

	for _, r := range a.Records {
		res := r.Aspects[a.Aspect]
		ink := polarityInk(res.Polarity)
		for _, seg := range Segments(r.Comments, res.Terms) {
			if seg.Highlight {
				doc.SetFont("Arial", "B", 10)
				doc.SetTextColor(ink.r, ink.g, ink.b)
			} else {
				doc.SetFont("Arial", "", 10)
				doc.SetTextColor(black.r, black.g, black.b)
			}
			doc.Write(5, tr(seg.Text))
		}
		doc.SetTextColor(black.r, black.g, black.b)
		doc.Ln(8)
	}
}
