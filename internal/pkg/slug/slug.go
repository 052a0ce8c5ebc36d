package slug

import (
	"fmt"
	"strings"
	"unicode"
)

// Make converts a display name into a lowercase kebab slug.
// Non-alphanumeric runs collapse into a single hyphen.
func Make(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// WithSuffix appends a numeric dedupe suffix: "go-talk" -> "go-talk-2".
func WithSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}
