package utils

import (
	"strings"
	"unicode"
)

// Ellipsis is appended to text shortened by Ellipsize.
const Ellipsis = "..."

// Ellipsize shortens s to at most maxChars characters including the
// trailing ellipsis. It prefers to cut at the last whitespace inside the
// budget so words stay whole. A non-positive maxChars returns s unchanged.
func Ellipsize(s string, maxChars int) string {
	runes := []rune(s)
	if maxChars <= 0 || len(runes) <= maxChars {
		return s
	}

	keep := maxChars - len(Ellipsis)
	if keep <= 0 {
		return string(runes[:maxChars])
	}

	cut := keep
	for i := keep; i > keep/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}

	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + Ellipsis
}
