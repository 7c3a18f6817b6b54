package report

import (
	"fmt"
	"strings"
)

// Markdown renders a summary for the browse server.
func Markdown(s *Summary) string {
	var sections []string

	header := fmt.Sprintf("# Feedback Report for %s\n\n**Semester:** %s | **Course:** %s | **Class:** %s\n\n**Total Respondents:** %d",
		escape(s.Teacher), escape(s.Semester), escape(s.Course), escape(s.Class), s.TotalRespondents)
	sections = append(sections, header)

	rows := []string{
		"| Aspect | Discussed | Positive | Neutral | Negative |",
		"|---|---|---|---|---|",
	}
	for _, a := range s.Aspects {
		cells := []string{escape(a.Aspect), fmt.Sprintf("%d", a.Discussed)}
		for _, sc := range a.Sentiments {
			cells = append(cells, fmt.Sprintf("%d (%.1f%%)", sc.Count, sc.Percentage))
		}
		rows = append(rows, "| "+strings.Join(cells, " | ")+" |")
	}
	sections = append(sections, strings.Join(rows, "\n"))

	for _, a := range s.Aspects {
		section := fmt.Sprintf("## %s\n\n%d students discussed this aspect out of %d total respondents.",
			escape(a.Aspect), a.Discussed, s.TotalRespondents)
		if len(a.TopTerms) > 0 {
			var words []string
			for _, tc := range a.TopTerms {
				words = append(words, fmt.Sprintf("%s (%d)", escape(tc.Word), tc.Count))
			}
			section += "\n\n**Top terms:** " + strings.Join(words, ", ")
		}
		if len(a.Records) > 0 {
			var items []string
			for _, r := range a.Records {
				res := r.Aspects[a.Aspect]
				items = append(items, fmt.Sprintf("- %s _(%s)_", highlightMarkdown(r.Comments, res.Terms), escape(res.Polarity)))
			}
			section += "\n\n" + strings.Join(items, "\n")
		}
		sections = append(sections, section)
	}

	return strings.Join(sections, "\n\n---\n\n")
}

func highlightMarkdown(comment, terms string) string {
	var b strings.Builder
	for _, seg := range Segments(comment, terms) {
		text := escape(seg.Text)
		if seg.Highlight && strings.TrimSpace(text) != "" {
			b.WriteString("**" + text + "**")
			continue
		}
		b.WriteString(text)
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "|", `\|`,
	"[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "#", `\#`,
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
