// Package classify turns free-text QC remarks into structured correction
// records. Remarks arrive in a handful of house dialects ("A S/B B",
// "Missing: X", "Inserted: X", ...) tried in priority order with
// first-match-wins semantics; anything unrecognized passes through
// verbatim rather than failing the row.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/qcpack/qcpack/textnorm"
)

// CorrectionType governs which sub-phrase of the context gets marked and
// with what shape.
type CorrectionType int

const (
	// Misread: the narrator read something other than the script text.
	Misread CorrectionType = iota
	// Missing: script text was skipped and must be read.
	Missing
	// Inserted: the narrator added words absent from the script.
	Inserted
)

func (t CorrectionType) String() string {
	switch t {
	case Missing:
		return "missing"
	case Inserted:
		return "inserted"
	default:
		return "misread"
	}
}

// Result is the classified form of one raw remark.
type Result struct {
	// FormattedNote is the human-readable fix description, including any
	// role prefix (MR:/MW:/ML:).
	FormattedNote string
	// WordsForEmphasis are the literal words to circle within the located
	// context; empty means emphasize the whole context.
	WordsForEmphasis []string
	// Type is the correction type the note resolved to.
	Type CorrectionType
	// SearchableContext is the raw context with blank-run placeholder
	// glyphs collapsed to spaces, ready for the locator.
	SearchableContext string
}

var (
	roleRE = regexp.MustCompile(`(?i)^\s*(MR|MW|ML)\s*:\s*`)

	// Blank-run glyphs used in source scripts to denote elided text:
	// underscore runs, box-drawing rules, horizontal-bar and em-dash runs.
	placeholderRE = regexp.MustCompile(`_{2,}|[\x{2500}-\x{257F}]{1,}|[\x{2014}\x{2015}]{2,}`)

	sbRE       = regexp.MustCompile(`(?i)^(.+?)\s+s/b\s+(.+)$`)
	soundsRE   = regexp.MustCompile(`(?i)^(.+?)\s+sounds\s+like\s+(.+)$`)
	readAsRE   = regexp.MustCompile(`(?i)^(.+?)\s+read\s+as\s+(.+)$`)
	missingRE  = regexp.MustCompile(`(?i)^(?:omitted\s+line\s*:|missing\s*:|omitted\s*:?)\s*(.+)$`)
	insertedRE = regexp.MustCompile(`(?i)^inserted\s*:?\s+(.+)$`)
)

// CollapseContext prepares a raw context cell for searching: placeholder
// glyph runs become spaces, whitespace runs collapse, case is preserved.
func CollapseContext(raw string) string {
	s := placeholderRE.ReplaceAllString(raw, " ")
	return strings.Join(strings.Fields(s), " ")
}

// rule pairs a note pattern with its interpretation. Rules are evaluated
// in order; the first whose pattern matches wins.
type rule struct {
	re    *regexp.Regexp
	apply func(m []string, rawContext string) (note string, words []string, typ CorrectionType)
}

var rules = []rule{
	{sbRE, func(m []string, _ string) (string, []string, CorrectionType) {
		// The corrected reading B is what the script shows; mark it.
		return fmt.Sprintf("%q should be %q.", clean(m[1]), clean(m[2])),
			textnorm.Words(m[2]), Misread
	}},
	{soundsRE, func(m []string, _ string) (string, []string, CorrectionType) {
		return fmt.Sprintf("%q was misheard as %q.", clean(m[1]), clean(m[2])),
			textnorm.Words(m[1]), Misread
	}},
	{readAsRE, func(m []string, _ string) (string, []string, CorrectionType) {
		// A is the script word; B is the misreading.
		return fmt.Sprintf("%q was read as %q.", clean(m[1]), clean(m[2])),
			textnorm.Words(m[1]), Misread
	}},
	{missingRE, func(m []string, _ string) (string, []string, CorrectionType) {
		return fmt.Sprintf("%q is missing and should be read.", clean(m[1])),
			textnorm.Words(m[1]), Missing
	}},
	{insertedRE, func(m []string, rawContext string) (string, []string, CorrectionType) {
		return fmt.Sprintf("%q was inserted and should be omitted.", clean(m[1])),
			boundaryWords(rawContext, m[1]), Inserted
	}},
}

// Classify parses one raw remark against its raw context cell. It is pure
// and total: an unrecognized note format degrades to verbatim pass-through.
func Classify(rawNote, rawContext string, audibleMode bool) Result {
	note := strings.TrimSpace(rawNote)
	role := ""
	if m := roleRE.FindStringSubmatch(note); m != nil {
		role = strings.ToUpper(m[1])
		note = strings.TrimSpace(note[len(m[0]):])
	}

	res := Result{
		FormattedNote:     note,
		Type:              Misread,
		SearchableContext: CollapseContext(rawContext),
	}
	var phraseWords int
	for _, r := range rules {
		m := r.re.FindStringSubmatch(note)
		if m == nil {
			continue
		}
		var formatted string
		formatted, res.WordsForEmphasis, res.Type = r.apply(m, rawContext)
		res.FormattedNote = formatted
		if res.Type == Missing {
			phraseWords = len(res.WordsForEmphasis)
		} else if res.Type == Inserted {
			phraseWords = len(textnorm.Words(m[len(m)-1]))
		}
		break
	}

	if role == "" && audibleMode {
		role = rolePrefix(res.Type, phraseWords)
	}
	if role != "" {
		res.FormattedNote = role + ": " + res.FormattedNote
	}
	return res
}

// rolePrefix picks the audible-mode role tag: MR for misreads, MW for a
// single inserted/omitted word, ML for two or more.
func rolePrefix(typ CorrectionType, phraseWords int) string {
	switch typ {
	case Missing, Inserted:
		if phraseWords >= 2 {
			return "ML"
		}
		return "MW"
	default:
		return "MR"
	}
}

// clean trims whitespace and enclosing quotes from a captured fragment so
// formatted notes quote uniformly.
func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`+"‘’“”")
	return strings.TrimSpace(s)
}

// boundaryWords returns the two words flanking the point where the
// inserted phrase does not belong. A blank-run placeholder in the raw
// context marks that point explicitly; failing that, the inserted phrase
// itself is searched for in the context. Either side may be absent when
// the insertion sits at the context edge.
func boundaryWords(rawContext, inserted string) []string {
	if loc := placeholderRE.FindStringIndex(rawContext); loc != nil {
		return flank(rawContext[:loc[0]], rawContext[loc[1]:])
	}
	normCtx, idx := textnorm.NormalizeIndexed(rawContext)
	normIns := textnorm.Normalize(inserted)
	if normIns != "" {
		if pos := strings.Index(normCtx, normIns); pos >= 0 {
			runeStart := len([]rune(normCtx[:pos]))
			runeEnd := runeStart + len([]rune(normIns))
			src := []rune(rawContext)
			before := string(src[:idx[runeStart]])
			after := ""
			if runeEnd-1 < len(idx) && idx[runeEnd-1]+1 < len(src) {
				after = string(src[idx[runeEnd-1]+1:])
			}
			return flank(before, after)
		}
	}
	return nil
}

func flank(before, after string) []string {
	var words []string
	if bw := textnorm.Words(before); len(bw) > 0 {
		words = append(words, bw[len(bw)-1])
	}
	if aw := textnorm.Words(after); len(aw) > 0 {
		words = append(words, aw[0])
	}
	return words
}
