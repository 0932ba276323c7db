// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize canonicalizes free-text identifying fields into
// comparison keys. External sources disagree on casing, punctuation, and
// trailing subtitle text; these keys collapse such variants so the matcher
// can compare records cheaply. All functions are pure and idempotent.
package normalize

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// titleKeyLen caps the comparison key length. Truncation bounds the cost
// of pairwise comparison and tolerates subtitle drift between sources.
const titleKeyLen = 30

// Title converts an article title into its comparison key: letters only,
// whitespace removed, lowercased, truncated to 30 runes. Titles that
// differ only in case, punctuation, or surrounding whitespace map to the
// same key. Truncation counts runes, never splitting a multibyte letter.
func Title(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	key := []rune(b.String())
	if len(key) > titleKeyLen {
		key = key[:titleKeyLen]
	}
	return string(key)
}

// AuthorName converts an author name into its comparison key: alphanumeric
// characters and spaces only, lowercased, whitespace collapsed and trimmed.
// Unlike Title, word boundaries are preserved because Initials and LastName
// derive from them.
func AuthorName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Initials returns the first letter of each whitespace-delimited token of
// a normalized name. Used for candidate blocking.
func Initials(normalizedName string) string {
	var b strings.Builder
	for _, tok := range strings.Fields(normalizedName) {
		r, _ := utf8.DecodeRuneInString(tok)
		b.WriteRune(r)
	}
	return b.String()
}

// LastName returns the final whitespace-delimited token of a normalized
// name, or "" for empty names. Used for candidate blocking.
func LastName(normalizedName string) string {
	fields := strings.Fields(normalizedName)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// ContentID derives a deterministic 8-character identifier from a name,
// for records with no registry identifier of their own (institutions
// without a ROR/GRID id, registry articles without a DOI). The same name
// always yields the same id, which keeps re-runs idempotent without a
// persisted lookup table.
func ContentID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return fmt.Sprintf("%x", sum)[:8]
}
