package absa

import (
	"strings"

	"github.com/TobiSchelling/FeedbackLens/internal/feedback"
)

// Normalize reduces one aspect of a parsed reply to a (terms, polarity) pair.
// ok is false when the reply does not mention the aspect; the caller then
// leaves the row's fields untouched.
func Normalize(aspect string, resp *Response) (terms, polarity string, ok bool) {
	v, found := resp.Lookup(aspect)
	if !found {
		return "", "", false
	}
	terms, polarity = normalizeValue(v, resp)
	return terms, polarity, true
}

func normalizeValue(v AspectValue, resp *Response) (string, string) {
	switch v.Shape {
	case ShapeObject:
		return joinTerms(v.Terms), polarityOr(v.Polarity, v.HasPolarity)
	case ShapeList, ShapeScalar:
		return joinTerms(v.Terms), polarityOr(resp.Polarity, resp.HasPolarity)
	default:
		return feedback.NoTerms, feedback.Neutral
	}
}

func joinTerms(t Terms) string {
	switch t.Kind {
	case TermsList:
		if len(t.List) == 0 {
			return feedback.NoTerms
		}
		return strings.Join(t.List, ",")
	case TermsText:
		return t.Text
	default:
		return feedback.NoTerms
	}
}

func polarityOr(p string, ok bool) string {
	if !ok || p == "" {
		return feedback.Neutral
	}
	return p
}

// verifyTerms keeps only the comma-separated terms that occur in the comment,
// ignoring case. It returns NoTerms when nothing survives.
func verifyTerms(terms, comment string) string {
	if terms == feedback.NoTerms {
		return terms
	}
	lowered := strings.ToLower(comment)
	var kept []string
	for _, term := range strings.Split(terms, ",") {
		t := strings.TrimSpace(term)
		if t == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(t)) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return feedback.NoTerms
	}
	return strings.Join(kept, ",")
}
