// Package normalize provides utilities for normalizing and sanitizing data.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text returns s in Unicode NFC form with surrounding whitespace removed.
// Clients on different platforms submit the same visible text in different
// normal forms, and an un-normalized value would register as a change.
func Text(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// Code normalizes a short code (SKU, location code): NFC, trimmed, upper case,
// inner whitespace removed.
func Code(s string) string {
	s = Text(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// Email lower-cases and trims an email address.
func Email(s string) string {
	return strings.ToLower(Text(s))
}
