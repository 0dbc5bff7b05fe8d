// Package annotate computes the drawable regions for a located
// correction: the underline span covering the whole context and the
// emphasis spans covering the specific words at fault. Geometry stays
// fractional (per-run) here; the assembler converts to page coordinates.
package annotate

import (
	"strings"

	"github.com/qcpack/qcpack/classify"
	"github.com/qcpack/qcpack/locate"
	"github.com/qcpack/qcpack/pagetext"
	"github.com/qcpack/qcpack/report"
)

// minSpanFrac is the smallest fractional width a mark may collapse to, so
// a drawn mark is never zero-length.
const minSpanFrac = 0.02

// Plan is the drawable output for one correction. Underline always covers
// the located context; Emphasis may be empty when the emphasis words
// could not be pinned down, in which case only the underline is drawn.
type Plan struct {
	Underline []locate.PageSpans
	Emphasis  []locate.PageSpans
}

// IndexFunc resolves the text index of a page the location touched.
type IndexFunc func(page int) *pagetext.Index

// BuildPlan turns a correction and its located context into draw regions.
//
// Emphasis search is restricted to the runs the context resolved to: for
// Inserted corrections with two boundary words each word is located
// independently and both must be found; otherwise the emphasis words are
// joined and located as one phrase. Empty emphasis words mean the whole
// context is the emphasis.
func BuildPlan(c report.Correction, loc locate.Location, ix IndexFunc) Plan {
	plan := Plan{Underline: clampPages(loc.Pages)}
	words := c.WordsForEmphasis

	if len(words) == 0 {
		plan.Emphasis = clampPages(loc.Pages)
		return plan
	}

	if c.Type == classify.Inserted && len(words) == 2 {
		var emphasis []locate.PageSpans
		for _, w := range words {
			ps, ok := findInContext(w, loc, ix)
			if !ok {
				return plan // either boundary missing: underline only
			}
			emphasis = mergePages(emphasis, ps)
		}
		plan.Emphasis = clampPages(emphasis)
		return plan
	}

	phrase := strings.Join(words, " ")
	if ps, ok := findInContext(phrase, loc, ix); ok {
		plan.Emphasis = clampPages([]locate.PageSpans{ps})
	}
	return plan
}

// findInContext locates phrase within the context runs of each page the
// location touched, first page that hits wins.
func findInContext(phrase string, loc locate.Location, ix IndexFunc) (locate.PageSpans, bool) {
	for _, pg := range loc.Pages {
		index := ix(pg.Page)
		if index == nil {
			continue
		}
		runs := make([]int, 0, len(pg.Spans))
		for _, s := range pg.Spans {
			runs = append(runs, s.Run)
		}
		if spans, ok := locate.InRuns(phrase, index, runs); ok {
			return locate.PageSpans{Page: pg.Page, Spans: spans}, true
		}
	}
	return locate.PageSpans{}, false
}

func mergePages(acc []locate.PageSpans, ps locate.PageSpans) []locate.PageSpans {
	for i := range acc {
		if acc[i].Page == ps.Page {
			acc[i].Spans = append(acc[i].Spans, ps.Spans...)
			return acc
		}
	}
	return append(acc, ps)
}

func clampPages(pages []locate.PageSpans) []locate.PageSpans {
	out := make([]locate.PageSpans, 0, len(pages))
	for _, pg := range pages {
		spans := make([]locate.Span, 0, len(pg.Spans))
		for _, s := range pg.Spans {
			spans = append(spans, clampSpan(s))
		}
		out = append(out, locate.PageSpans{Page: pg.Page, Spans: spans})
	}
	return out
}

// clampSpan forces a span into [0,1] with its end no earlier than its
// start, widening exact collapses to the minimum visible width.
func clampSpan(s locate.Span) locate.Span {
	if s.Start < 0 {
		s.Start = 0
	}
	if s.Start > 1 {
		s.Start = 1
	}
	if s.End < 0 {
		s.End = 0
	}
	if s.End > 1 {
		s.End = 1
	}
	if s.End < s.Start {
		s.End = s.Start
	}
	if s.End == s.Start {
		s.End = s.Start + minSpanFrac
		if s.End > 1 {
			s.End = 1
			s.Start = 1 - minSpanFrac
		}
	}
	return s
}
