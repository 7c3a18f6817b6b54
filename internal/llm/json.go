package llm

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	pythonNone    = regexp.MustCompile(`([:\[,]\s*)None(\s*[,}\]])`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// CleanJSON salvages a JSON object from an LLM reply. It strips code fences,
// rewrites Python None to null, drops trailing commas, keeps the text between
// the first '{' and the last '}', and falls back to a repair pass. The second
// return is false when no object could be recovered.
func CleanJSON(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	text = stripCodeFences(text)
	text = replaceAllStable(pythonNone, text, "${1}null${2}")
	text = trailingComma.ReplaceAllString(text, "$1")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	text = text[start : end+1]

	if json.Valid([]byte(text)) {
		return text, true
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		log.Printf("Failed to repair LLM response as JSON: %v", err)
		return "", false
	}
	repaired = strings.TrimSpace(repaired)
	if !strings.HasPrefix(repaired, "{") || !json.Valid([]byte(repaired)) {
		return "", false
	}
	return repaired, true
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			endIdx = i
			break
		}
	}
	if endIdx <= 1 {
		return strings.Trim(text, "`")
	}
	return strings.Join(lines[1:endIdx], "\n")
}

// replaceAllStable repeats a replacement until the text stops changing, so
// adjacent matches that share a delimiter are all rewritten.
func replaceAllStable(re *regexp.Regexp, text, repl string) string {
	for i := 0; i < 16; i++ {
		next := re.ReplaceAllString(text, repl)
		if next == text {
			return next
		}
		text = next
	}
	return text
}
