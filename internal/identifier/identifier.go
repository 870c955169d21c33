// Package identifier turns scraped episode labels into stable,
// filesystem-safe episode identifiers.
package identifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Normalize derives an episode identifier from a raw catalog label.
//
// Brackets are dropped, runs of whitespace and hyphens become a single
// hyphen, diacritics on Latin letters (accents, cedilla, tilde) are folded to
// the base letter, and the result is lowercased. Combining marks on letters
// of other scripts are kept. The function is pure and idempotent; it never fails
// and does not reject empty results.
//
//	Normalize("[Anime] Episódio 01") == "anime-episodio-01"
func Normalize(label string) string {
	s := stripBrackets(label)
	s = foldAccents(s)
	s = hyphenate(s)
	return lower.String(s)
}

func stripBrackets(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '[' || r == ']' {
			return -1
		}
		return r
	}, s)
}

// foldAccents decomposes the text and drops the combining marks that follow
// a Latin letter, so Á, Ã, É, Ç and ñ collapse onto a, a, e, c and n
// regardless of case.
func foldAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	latinBase := false
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if latinBase {
				continue
			}
		} else {
			latinBase = unicode.Is(unicode.Latin, r)
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// hyphenate replaces every whitespace run with a hyphen and collapses
// consecutive hyphens.
func hyphenate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		if r == '-' || unicode.IsSpace(r) {
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
			continue
		}
		b.WriteRune(r)
		lastHyphen = false
	}
	return b.String()
}
