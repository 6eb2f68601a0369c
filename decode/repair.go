package decode

import (
	"regexp"
	"strings"
)

const (
	fence = "```"

	// trimSet is stripped from the end of text before structural closers
	// are appended.
	trimSet = ", \t\r\n"
)

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// stripFence removes a leading ``` marker with its optional language tag
// and a trailing ``` marker.
func stripFence(text string) (string, bool) {
	if !strings.HasPrefix(text, fence) {
		return text, false
	}
	rest := text[len(fence):]
	rest = rest[tagLen(rest):]
	rest = strings.TrimSuffix(strings.TrimRightFunc(rest, isSpace), fence)
	return strings.TrimSpace(rest), true
}

// tagLen returns the length of a language tag such as "json" or "json5".
// A run of tag characters only counts as a tag when whitespace follows it,
// so bodies like ```null``` survive. A leading "json" is always a tag.
func tagLen(s string) int {
	n := 0
	for n < len(s) && isTagChar(s[n]) {
		n++
	}
	if n > 0 && n < len(s) && isSpace(rune(s[n])) {
		return n
	}
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		return 4
	}
	return 0
}

func isTagChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-', c == '+':
		return true
	}
	return false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// removeTrailingCommas deletes commas followed by optional whitespace and a
// closer, repeating until none remain.
func removeTrailingCommas(text string) (string, bool) {
	changed := false
	for trailingComma.MatchString(text) {
		text = trailingComma.ReplaceAllString(text, "$1")
		changed = true
	}
	return text, changed
}

// balance counts unmatched openers. Negative values mean surplus closers.
func balance(text string) (brackets, braces int) {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[':
			brackets++
		case ']':
			brackets--
		case '{':
			braces++
		case '}':
			braces--
		}
	}
	return brackets, braces
}

// hasOpenString reports an odd number of quote characters once escaped
// quotes are discounted.
func hasOpenString(text string) bool {
	return strings.Count(strings.ReplaceAll(text, `\"`, ""), `"`)%2 == 1
}

// closeString terminates an open string literal unless the text already
// ends with an unescaped quote.
func closeString(text string) string {
	text = strings.TrimRightFunc(text, isSpace)
	if strings.HasSuffix(text, `"`) && !strings.HasSuffix(text, `\"`) {
		return text
	}
	return text + `"`
}

// closeStructure trims trailing delimiter noise and appends closers,
// brackets before braces.
func closeStructure(text string, brackets, braces int) string {
	text = strings.TrimRight(text, trimSet)
	var b strings.Builder
	b.Grow(len(text) + max(brackets, 0) + max(braces, 0))
	b.WriteString(text)
	for range max(brackets, 0) {
		b.WriteByte(']')
	}
	for range max(braces, 0) {
		b.WriteByte('}')
	}
	return b.String()
}

// canEndValue reports whether c can be the last significant byte of a
// prefix that closes into valid JSON: the end of a string, number,
// literal, or container, or an opener that closes empty.
func canEndValue(c byte) bool {
	switch {
	case c == '"', c == '}', c == ']', c == '{', c == '[':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == 'e', c == 'l': // true, false, null
		return true
	default:
		return false
	}
}
