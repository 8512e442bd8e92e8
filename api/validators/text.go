package validators

import (
	"strings"
	"unicode"
)

// MaxNoteRunes bounds free-text notes on change requests and reviews.
const MaxNoteRunes = 1000

// Note trims s, drops control characters other than newlines and cuts it to
// MaxNoteRunes runes without splitting a character.
func Note(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	runes := []rune(cleaned)
	if len(runes) > MaxNoteRunes {
		cleaned = strings.TrimSpace(string(runes[:MaxNoteRunes]))
	}
	return cleaned
}
