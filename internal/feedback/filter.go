package feedback

import (
	"strings"
	"unicode"
)

// MinCommentChars is the shortest trimmed comment worth annotating.
// Shorter comments ("ok", "good!") carry no aspect content.
const MinCommentChars = 8

var boilerplate = map[string]struct{}{
	"na":         {},
	"n/a":        {},
	"nocomments": {},
	"nocomment":  {},
	"noany":      {},
	"none":       {},
}

// Filter decides which comments are sent for annotation.
type Filter struct {
	MinChars int
}

// NewFilter returns a filter with the given minimum; values below 1 use MinCommentChars.
func NewFilter(minChars int) Filter {
	if minChars < 1 {
		minChars = MinCommentChars
	}
	return Filter{MinChars: minChars}
}

// ShouldSkip reports whether a comment is blank, punctuation only, too short,
// or a boilerplate non-answer. It never panics.
func (f Filter) ShouldSkip(comment string) bool {
	trimmed := strings.TrimSpace(comment)
	if trimmed == "" {
		return true
	}
	if isPunctuationOnly(trimmed) {
		return true
	}
	min := f.MinChars
	if min < 1 {
		min = MinCommentChars
	}
	if len([]rune(trimmed)) < min {
		return true
	}
	key := strings.ToLower(trimmed)
	key = strings.ReplaceAll(key, ".", "")
	key = strings.ReplaceAll(key, " ", "")
	_, ok := boilerplate[key]
	return ok
}

func isPunctuationOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}
