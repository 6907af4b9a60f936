package qr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var nameSeparator = regexp.MustCompile(`(?i)\band\b|&`)

// Initials turns "Alice and Bob" into "A & B". A single name yields a single
// letter; empty segments are skipped.
func Initials(names string) string {
	var letters []string
	for _, part := range nameSeparator.Split(names, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(part)
		letters = append(letters, strings.ToUpper(string(r)))
	}
	return strings.Join(letters, " & ")
}
