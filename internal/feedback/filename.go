package feedback

import (
	"regexp"
	"strings"
)

var unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\s]+`)

// SanitizeFilename replaces runs of whitespace and characters that are not
// allowed in file names with a single underscore.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
}
