package slug

import (
	"strings"
	"unicode"
)

const maxLen = 64

// Make lowercases input and collapses every run of characters outside
// [a-z0-9] into one hyphen. An empty result becomes "untitled".
func Make(input string) string {
	b := strings.Builder{}
	pendingDash := false
	for _, r := range strings.ToLower(input) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	s := b.String()
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	if s == "" {
		return "untitled"
	}
	return s
}
