// Package textnorm canonicalizes script text for matching. PDF text
// extraction is lossy: ligatures survive as single glyphs, typographic
// quotes differ from the report's straight quotes, and line wraps leave
// soft hyphens in the middle of words. Both the note classifier and the
// phrase locator funnel text through this package before comparing it.
package textnorm

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ligatures maps the standard Latin ligature glyphs to their letter
// sequences. Expansion happens after lowercasing, so only the lowercase
// forms are listed.
var ligatures = map[rune]string{
	'ﬀ': "ff",
	'ﬁ': "fi",
	'ﬂ': "fl",
	'ﬃ': "ffi",
	'ﬄ': "ffl",
}

// quotes maps typographic quote glyphs to their straight equivalents.
var quotes = map[rune]rune{
	'‘': '\'', // left single
	'’': '\'', // right single
	'‚': '\'', // low single
	'‛': '\'', // reversed single
	'“': '"',  // left double
	'”': '"',  // right double
	'„': '"',  // low double
	'‟': '"',  // reversed double
}

func isHyphen(r rune) bool {
	switch r {
	case '-', '\u00ad', '\u2010', '\u2011': // ascii, soft hyphen, hyphen, non-breaking hyphen
		return true
	}
	return false
}

// Normalize canonicalizes s for equality and substring checks. Rules are
// applied in order: lowercase, expand ligatures, straighten quotes, drop a
// hyphen that is immediately followed by a letter (the soft-hyphen line
// wrap heuristic) and turn any other hyphen into a space, turn every other
// non-alphanumeric character except apostrophes and double quotes into a
// space, collapse whitespace runs, trim. Empty or all-punctuation input
// yields the empty string.
func Normalize(s string) string {
	out, _ := NormalizeIndexed(s)
	return out
}

// NormalizeIndexed is Normalize with provenance: the second return value
// maps each rune of the normalized string back to the rune offset in s
// that produced it. Multi-rune expansions (ligatures) map every emitted
// rune to the source glyph's offset; a collapsed whitespace run maps its
// single space to the offset of the run's first separator.
func NormalizeIndexed(s string) (string, []int) {
	src := []rune(s)
	out := make([]rune, 0, len(src))
	idx := make([]int, 0, len(src))

	// pendingSpace defers separator emission so runs collapse to one
	// space and leading separators vanish.
	pendingSpace := false
	spaceIdx := 0

	emit := func(r rune, i int) {
		if pendingSpace && len(out) > 0 {
			out = append(out, ' ')
			idx = append(idx, spaceIdx)
		}
		pendingSpace = false
		out = append(out, r)
		idx = append(idx, i)
	}
	sep := func(i int) {
		if !pendingSpace {
			spaceIdx = i
			pendingSpace = true
		}
	}

	for i := 0; i < len(src); i++ {
		r := unicode.ToLower(src[i])
		if exp, ok := ligatures[r]; ok {
			for _, e := range exp {
				emit(e, i)
			}
			continue
		}
		if q, ok := quotes[r]; ok {
			r = q
		}
		switch {
		case isHyphen(r):
			if i+1 < len(src) && unicode.IsLetter(src[i+1]) {
				continue // wrapped word: join the halves
			}
			sep(i)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			emit(r, i)
		case r == '\'' || r == '"':
			emit(r, i)
		default:
			sep(i)
		}
	}
	return string(out), idx
}

// Fold reduces s to bare lowercase alphanumerics for the aggressive match
// fallback. Unlike Normalize it emits no separators at all, so two words
// divided only by punctuation or irregular whitespace become adjacent.
// That merge is intentional and pinned by tests; see the locator.
func Fold(s string) string {
	out, _ := FoldIndexed(s)
	return out
}

// FoldIndexed is Fold with the same provenance contract as
// NormalizeIndexed. Accented letters are decomposed (NFD) and their
// combining marks dropped, so "café" folds to "cafe" with every output
// rune mapping to its source glyph.
func FoldIndexed(s string) (string, []int) {
	src := []rune(s)
	out := make([]rune, 0, len(src))
	idx := make([]int, 0, len(src))
	for i := 0; i < len(src); i++ {
		r := unicode.ToLower(src[i])
		if exp, ok := ligatures[r]; ok {
			for _, e := range exp {
				out = append(out, e)
				idx = append(idx, i)
			}
			continue
		}
		for _, d := range norm.NFD.String(string(r)) {
			if unicode.Is(unicode.Mn, d) {
				continue
			}
			if unicode.IsLetter(d) || unicode.IsDigit(d) {
				out = append(out, unicode.ToLower(d))
				idx = append(idx, i)
			}
		}
	}
	return string(out), idx
}

// Words splits s into its normalized words. Enclosing quote characters
// are trimmed from each word (report notes quote the words in question)
// but interior apostrophes survive.
func Words(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	var words []string
	for _, f := range splitSpaces(n) {
		w := trimQuotes(f)
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func splitSpaces(s string) []string {
	var fields []string
	start := -1
	rs := []rune(s)
	for i, r := range rs {
		if r == ' ' {
			if start >= 0 {
				fields = append(fields, string(rs[start:i]))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, string(rs[start:]))
	}
	return fields
}

func trimQuotes(s string) string {
	rs := []rune(s)
	for len(rs) > 0 && (rs[0] == '\'' || rs[0] == '"') {
		rs = rs[1:]
	}
	for len(rs) > 0 && (rs[len(rs)-1] == '\'' || rs[len(rs)-1] == '"') {
		rs = rs[:len(rs)-1]
	}
	return string(rs)
}
