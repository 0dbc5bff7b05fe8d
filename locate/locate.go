// Package locate finds a correction's context phrase inside a page's
// positioned text. Matching is heuristic and layered: a strict pass over
// normalized text, then an aggressive pass over bare alphanumerics, each
// tried against the page alone and then bridged with its neighbors, and
// finally an optional AI suggestion that is only trusted if it quotes the
// page verbatim.
package locate

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/qcpack/qcpack/observability"
	"github.com/qcpack/qcpack/pagetext"
	"github.com/qcpack/qcpack/textnorm"
)

// Span marks a fractional sub-range of one run: Start and End are
// fractions in [0,1] of the run's character length. Multiplying by the
// run's pixel width assumes uniform character width within a run; a
// known, accepted approximation.
type Span struct {
	Run   int
	Start float64
	End   float64
}

// PageSpans groups the spans a match produced on one page.
type PageSpans struct {
	Page  int
	Spans []Span
}

// Location is a successful match, possibly split across two adjacent
// pages when the phrase bridges a page boundary.
type Location struct {
	Pages []PageSpans
}

// SpansOn returns the spans resolved to the given page, if any.
func (l Location) SpansOn(page int) []Span {
	for _, p := range l.Pages {
		if p.Page == page {
			return p.Spans
		}
	}
	return nil
}

// PageIndex pairs a page number with its text index.
type PageIndex struct {
	Page  int
	Index *pagetext.Index
}

// Suggester is the optional AI-assisted matching collaborator: given page
// text and a target phrase it returns a verbatim matching substring or
// nothing. Responses are never trusted blindly; see Locator.Locate.
type Suggester interface {
	Suggest(ctx context.Context, pageText, phrase string) (string, error)
}

// Locator runs the matching strategies. The zero value locates with
// bridging enabled and no AI fallback.
type Locator struct {
	DisableBridging bool
	Fallback        Suggester
	Log             observability.Logger
}

func (l *Locator) logger() observability.Logger {
	if l == nil || l.Log == nil {
		return observability.NopLogger{}
	}
	return l.Log
}

// Locate finds phrase on the primary page, falling back to primary+next
// and prev+primary pairings when bridging is enabled. next and prev may
// be nil. The boolean is false when every strategy missed; the correction
// then carries no visual mark but is still listed in its notes box.
func (l *Locator) Locate(ctx context.Context, phrase string, primary PageIndex, next, prev *PageIndex) (Location, bool) {
	pairings := [][]PageIndex{{primary}}
	if !l.DisableBridging {
		if next != nil {
			pairings = append(pairings, []PageIndex{primary, *next})
		}
		if prev != nil {
			pairings = append(pairings, []PageIndex{*prev, primary})
		}
	}

	for _, pages := range pairings {
		u := newUniverse(pages...)
		if spans, kind, ok := u.match(phrase); ok {
			l.logger().Debug("phrase located",
				observability.String("strategy", kind),
				observability.Int("page", primary.Page))
			return Location{Pages: spans}, true
		}
	}

	if l.Fallback != nil {
		if loc, ok := l.suggest(ctx, phrase, primary); ok {
			return loc, true
		}
	}
	return Location{}, false
}

// suggest consults the AI collaborator against the primary page only. The
// returned string must be a literal substring of the page corpus; any
// other response is treated as no-match.
func (l *Locator) suggest(ctx context.Context, phrase string, primary PageIndex) (Location, bool) {
	corpus := primary.Index.Corpus()
	if corpus == "" {
		return Location{}, false
	}
	sug, err := l.Fallback.Suggest(ctx, corpus, phrase)
	if err != nil {
		l.logger().Warn("suggestion failed", observability.Error("err", err))
		return Location{}, false
	}
	sug = strings.TrimSpace(sug)
	if sug == "" {
		return Location{}, false
	}
	pos := strings.Index(corpus, sug)
	if pos < 0 {
		// Hallucinated: not verbatim page text.
		l.logger().Warn("suggestion rejected",
			observability.Int("page", primary.Page),
			observability.String("suggestion", sug))
		return Location{}, false
	}
	u := newUniverse(primary)
	cs := utf8.RuneCountInString(corpus[:pos])
	ce := cs + utf8.RuneCountInString(sug) - 1
	l.logger().Debug("phrase located",
		observability.String("strategy", "suggested"),
		observability.Int("page", primary.Page))
	return Location{Pages: u.spans(cs, ce)}, true
}

// InRuns restricts the search universe to the given runs of one index,
// in the order supplied. Used to place emphasis words inside an already
// located context span.
func InRuns(phrase string, ix *pagetext.Index, runs []int) ([]Span, bool) {
	u := runUniverse(0, ix, runs)
	spans, _, ok := u.match(phrase)
	if !ok || len(spans) == 0 {
		return nil, false
	}
	return spans[0].Spans, true
}

// uref ties one corpus rune of a universe back to a page, run and char.
type uref struct {
	page   int
	run    int
	runLen int
	char   int
}

type universe struct {
	corpus []rune
	refs   []uref
	order  []int // page order of first appearance
}

func newUniverse(pages ...PageIndex) universe {
	var u universe
	for _, p := range pages {
		u.order = append(u.order, p.Page)
		for i := 0; i < p.Index.CorpusLen(); i++ {
			ref := p.Index.Ref(i)
			u.refs = append(u.refs, uref{
				page:   p.Page,
				run:    ref.Run,
				runLen: p.Index.RunLen(ref.Run),
				char:   ref.Char,
			})
		}
		u.corpus = append(u.corpus, []rune(p.Index.Corpus())...)
	}
	return u
}

func runUniverse(page int, ix *pagetext.Index, runs []int) universe {
	var u universe
	u.order = []int{page}
	for _, r := range runs {
		text := []rune(ix.Run(r).Text)
		for c := range text {
			u.refs = append(u.refs, uref{page: page, run: r, runLen: len(text), char: c})
		}
		u.corpus = append(u.corpus, text...)
	}
	return u
}

// match tries the strict strategy, then the aggressive one. The second
// return names the strategy that hit.
func (u universe) match(phrase string) ([]PageSpans, string, bool) {
	corpus := string(u.corpus)

	normC, normIdx := textnorm.NormalizeIndexed(corpus)
	if normP := textnorm.Normalize(phrase); normP != "" {
		if cs, ce, ok := findRange(normC, normP, normIdx); ok {
			return u.spans(cs, ce), "strict", true
		}
	}

	// Aggressive: strip both sides to bare alphanumerics. This can merge
	// two genuinely distinct words across a removed space; that boundary
	// behavior is pinned by tests and deliberately preserved.
	foldC, foldIdx := textnorm.FoldIndexed(corpus)
	if foldP := textnorm.Fold(phrase); foldP != "" {
		if cs, ce, ok := findRange(foldC, foldP, foldIdx); ok {
			return u.spans(cs, ce), "aggressive", true
		}
	}
	return nil, "", false
}

// findRange searches needle in haystack and maps the byte match back to
// an inclusive rune range of the original corpus via idx.
func findRange(haystack, needle string, idx []int) (int, int, bool) {
	pos := strings.Index(haystack, needle)
	if pos < 0 {
		return 0, 0, false
	}
	rs := utf8.RuneCountInString(haystack[:pos])
	re := rs + utf8.RuneCountInString(needle) - 1
	if re >= len(idx) {
		return 0, 0, false
	}
	return idx[rs], idx[re], true
}

// spans groups an inclusive corpus rune range into per-run fractional
// spans, min start / max end per run, split per owning page.
func (u universe) spans(cs, ce int) []PageSpans {
	type key struct {
		page, run int
	}
	type ext struct {
		min, max, runLen int
	}
	acc := make(map[key]*ext)
	for i := cs; i <= ce && i < len(u.refs); i++ {
		r := u.refs[i]
		k := key{r.page, r.run}
		e, ok := acc[k]
		if !ok {
			e = &ext{min: r.char, max: r.char, runLen: r.runLen}
			acc[k] = e
		}
		if r.char < e.min {
			e.min = r.char
		}
		if r.char > e.max {
			e.max = r.char
		}
	}

	var out []PageSpans
	for _, page := range u.order {
		var spans []Span
		// Runs in ascending index order for deterministic drawing.
		maxRun := -1
		for k := range acc {
			if k.page == page && k.run > maxRun {
				maxRun = k.run
			}
		}
		for run := 0; run <= maxRun; run++ {
			e, ok := acc[key{page, run}]
			if !ok {
				continue
			}
			n := float64(e.runLen)
			if n == 0 {
				continue
			}
			spans = append(spans, Span{
				Run:   run,
				Start: float64(e.min) / n,
				End:   float64(e.max+1) / n,
			})
		}
		if len(spans) > 0 {
			out = append(out, PageSpans{Page: page, Spans: spans})
		}
	}
	return out
}
