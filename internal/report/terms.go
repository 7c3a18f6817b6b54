package report

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// DefaultTopTerms is how many words each aspect lists.
const DefaultTopTerms = 10

// TermCount is a word and how often it appears in an aspect's terms.
type TermCount struct {
	Word  string
	Count int
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'’]*`)

// English stopwords, without negations so "not helpful" keeps its sense.
var baseStopwords = strings.Fields(`
a about above after again against all also am an and any are aren't as at
be because been before being below between both but by
can com could couldn't did do does doing down during
each else ever few for from further get had hadn't has hasn't have haven't having
he he'd he'll he's her here here's hers herself him himself his how how's http
i i'd i'll i'm i've if in into is isn't it it's its itself just k
let's like me more most mustn't my myself nor of off on once only or other otherwise
ought our ours ourselves out over own r same shall shan't she she'd she'll she's
should shouldn't since so some such than that that's the their theirs them themselves
then there there's these they they'd they'll they're they've this those through to
too under until up very was wasn't we we'd we'll we're we've were weren't what what's
when when's where where's which while who who's whom why why's with would wouldn't www
you you'd you'll you're you've your yours yourself yourselves`)

var domainStopwords = strings.Fields(`
teacher ma'am sir miss mr mam mrs teaches student teach classroom good us mentioned
course subject class students teaching semester faculty professor experience
knowledge behavior pedagogy`)

var stopwords = func() map[string]bool {
	m := make(map[string]bool, len(baseStopwords)+len(domainStopwords))
	for _, w := range baseStopwords {
		m[w] = true
	}
	for _, w := range domainStopwords {
		m[w] = true
	}
	return m
}()

// IsStopword reports whether a lower-cased word is excluded from term counts.
func IsStopword(word string) bool { return stopwords[word] }

// Words splits extracted terms into lower-cased content words.
func Words(text string) []string {
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		w = strings.ReplaceAll(w, "’", "'")
		w = strings.TrimSuffix(w, "'s")
		w = strings.TrimRight(w, "'")
		if w == "" || stopwords[w] || isNumber(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// TopTerms counts words across the given terms and returns the n most
// frequent, ties broken alphabetically.
func TopTerms(terms []string, n int) []TermCount {
	counts := make(map[string]int)
	for _, t := range terms {
		for _, w := range Words(t) {
			counts[w]++
		}
	}
	out := make([]TermCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, TermCount{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
