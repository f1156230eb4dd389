package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `_*[]()~>#+-=|{}.!\` + "`"

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var mdV2Lookup = func() [256]bool {
	var m [256]bool
	for i := range len(mdV2SpecialChars) {
		m[mdV2SpecialChars[i]] = true
	}
	return m
}()

func EscapeV2(input string) string {
	charsToEscape := 0

	for i := range len(input) {
		if mdV2Lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if mdV2Lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

// SplitEscapedV2 escapes input and cuts it into parts of at most limit
// characters each, preferring to cut after a newline. Escape sequences are
// never split.
func SplitEscapedV2(input string, limit int) []string {
	if input == "" || limit < 2 {
		return nil
	}

	var (
		parts     []string
		current   strings.Builder
		curLen    int
		lastBreak = -1
	)

	flush := func(upTo int) {
		s := current.String()
		if upTo < 0 || upTo > len(s) {
			upTo = len(s)
		}

		parts = append(parts, s[:upTo])
		rest := s[upTo:]

		current.Reset()
		current.WriteString(rest)
		curLen = utf8.RuneCountInString(rest)
		lastBreak = -1
	}

	for _, r := range input {
		var piece string
		if r < utf8.RuneSelf && mdV2Lookup[byte(r)] {
			piece = "\\" + string(r)
		} else {
			piece = string(r)
		}

		pieceLen := utf8.RuneCountInString(piece)
		if curLen+pieceLen > limit {
			flush(lastBreak)
		}
		if curLen+pieceLen > limit {
			flush(-1)
		}

		current.WriteString(piece)
		curLen += pieceLen

		if r == '\n' {
			lastBreak = current.Len()
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// Truncate cuts input to at most limit characters, ending with an ellipsis
// when something was dropped.
func Truncate(input string, limit int) string {
	if limit <= 0 {
		return ""
	}

	if utf8.RuneCountInString(input) <= limit {
		return input
	}

	runes := []rune(input)
	if limit == 1 {
		return "…"
	}

	return string(runes[:limit-1]) + "…"
}
