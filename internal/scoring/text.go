package scoring

import "strings"

// MaxTextLength is the default rune budget handed to a scorer.
const MaxTextLength = 512

// Truncate collapses whitespace and keeps at most max leading runes.
// A non-positive max means MaxTextLength.
func Truncate(text string, max int) string {
	if max <= 0 {
		max = MaxTextLength
	}

	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max]))
}
