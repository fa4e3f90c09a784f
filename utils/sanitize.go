package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	unsafeInput = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	nonSlug     = regexp.MustCompile(`[^a-z0-9\-_]+`)
	dashes      = regexp.MustCompile(`-{2,}`)
)

// SanitizeInput strips control characters and trims the input. Newlines and tabs are kept.
func SanitizeInput(input string) string {
	return strings.TrimSpace(unsafeInput.ReplaceAllString(input, ""))
}

// FormatProjectName turns a title into a lowercase directory name.
func FormatProjectName(name string) string {
	formatted := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	formatted = dashes.ReplaceAllString(formatted, "-")
	formatted = strings.Trim(formatted, "-_")

	if len(formatted) > 0 && strings.IndexAny(formatted[0:1], "0123456789") == 0 {
		formatted = "app-" + formatted
	}
	if formatted == "" {
		formatted = "conjure-app"
	}
	return formatted
}

// TruncateString shortens s to maxLength runes, ending with an ellipsis when cut.
func TruncateString(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string([]rune(s)[:maxLength])
	}
	return string([]rune(s)[:maxLength-3]) + "..."
}

// FirstLine returns the first non-empty line of s.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
