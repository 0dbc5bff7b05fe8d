// Package pack assembles the final QC pack: it resolves each correction
// to a script page, locates and plans its marks, draws them through the
// output sink, renders the per-page notes box, and emits only the touched
// pages. Location failure degrades to an unmarked notes entry; only sink
// output errors are fatal.
package pack

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/qcpack/qcpack/annotate"
	"github.com/qcpack/qcpack/locate"
	"github.com/qcpack/qcpack/observability"
	"github.com/qcpack/qcpack/pagetext"
	"github.com/qcpack/qcpack/report"
)

// Sink is the drawing/output side of the script PDF. Coordinates are PDF
// user space: points, origin bottom-left. Implemented by pdfdoc.Annotator.
type Sink interface {
	PageSize(page int) (w, h float64)
	DrawLine(page int, x1, y1, x2, y2, width float64)
	DrawEllipse(page int, cx, cy, rx, ry, width float64)
	FillRect(page int, x, y, w, h, gray float64)
	DrawText(page int, x, y, size float64, s string)
	Output(pages []int) ([]byte, error)
}

// Style holds the drawing knobs. Zero values take defaults.
type Style struct {
	UnderlineWidth float64
	EmphasisWidth  float64
	NotesFontSize  float64
	NotesBoxGray   float64
}

func (s Style) withDefaults() Style {
	if s.UnderlineWidth == 0 {
		s.UnderlineWidth = 1.2
	}
	if s.EmphasisWidth == 0 {
		s.EmphasisWidth = 1.2
	}
	if s.NotesFontSize == 0 {
		s.NotesFontSize = 9
	}
	if s.NotesBoxGray == 0 {
		s.NotesBoxGray = 0.92
	}
	return s
}

const (
	notesMargin   = 36.0
	notesPad      = 8.0
	lineSpacing   = 1.35
	underlineDrop = 2.0
	ellipsePadX   = 2.0
)

// Result summarizes one assembled pack.
type Result struct {
	RunID     string
	Output    []byte
	PageCount int
	Pages     []PageSummary
}

// PageSummary reports what one included page carries.
type PageSummary struct {
	Page        int
	Corrections int
	Located     int
	Unlocated   int
}

// Assembler drives pack generation over an injected text source and
// drawing sink.
type Assembler struct {
	Source      pagetext.Source
	Sink        Sink
	Locator     *locate.Locator
	PageOffset  int
	Style       Style
	Diagnostics *observability.Collector
	Log         observability.Logger
}

func (a *Assembler) logger() observability.Logger {
	if a.Log == nil {
		return observability.NopLogger{}
	}
	return a.Log
}

type entry struct {
	corr    report.Correction
	plan    annotate.Plan
	located bool
}

// Assemble buckets the corrections by resolved page, draws every plan,
// renders the notes boxes and emits the touched pages sorted ascending.
// A correction whose phrase is never located still appears, unmarked, in
// its nominal page's notes box. Zero corrections in range yield an empty
// Result with no output bytes.
func (a *Assembler) Assemble(ctx context.Context, corrections []report.Correction) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	log := a.logger().With(observability.String("run", res.RunID))
	style := a.Style.withDefaults()

	locator := a.Locator
	if locator == nil {
		locator = &locate.Locator{}
	}

	indexes := make(map[int]*pagetext.Index)
	indexFor := func(page int) *pagetext.Index {
		if page < 1 || page > a.Source.NumPages() {
			return nil
		}
		if ix, ok := indexes[page]; ok {
			return ix
		}
		runs, err := a.Source.PageRuns(page)
		if err != nil {
			log.Warn("page text extraction failed",
				observability.Int("page", page),
				observability.Error("err", err))
			runs = nil
		}
		ix := pagetext.NewIndex(runs)
		indexes[page] = ix
		return ix
	}

	buckets := make(map[int][]entry)
	for _, c := range corrections {
		resolved := c.Page + a.PageOffset
		if resolved < 1 || resolved > a.Source.NumPages() {
			a.Diagnostics.Report(observability.Diagnostic{
				Kind:    observability.KindPageOutOfRange,
				Message: fmt.Sprintf("correction %s resolves to page %d", c.ID, resolved),
				Fields: []observability.Field{
					observability.String("id", c.ID),
					observability.Int("page", resolved),
				},
			})
			continue
		}

		primary := locate.PageIndex{Page: resolved, Index: indexFor(resolved)}
		var next, prev *locate.PageIndex
		if ix := indexFor(resolved + 1); ix != nil {
			next = &locate.PageIndex{Page: resolved + 1, Index: ix}
		}
		if ix := indexFor(resolved - 1); ix != nil {
			prev = &locate.PageIndex{Page: resolved - 1, Index: ix}
		}

		loc, ok := locator.Locate(ctx, c.ContextPhrase, primary, next, prev)
		if !ok {
			a.Diagnostics.Report(observability.Diagnostic{
				Kind:    observability.KindPhraseNotLocated,
				Message: fmt.Sprintf("correction %s: %q", c.ID, c.ContextPhrase),
				Fields: []observability.Field{
					observability.String("id", c.ID),
					observability.Int("page", resolved),
				},
			})
			buckets[resolved] = append(buckets[resolved], entry{corr: c})
			continue
		}

		plan := annotate.BuildPlan(c, loc, indexFor)
		for _, pg := range plan.Underline {
			buckets[pg.Page] = append(buckets[pg.Page], entry{corr: c, plan: plan, located: true})
		}
	}

	if len(buckets) == 0 {
		log.Info("empty pack", observability.String("metric", observability.MetricPagesIncluded))
		return res, nil
	}

	pages := make([]int, 0, len(buckets))
	for p := range buckets {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, page := range pages {
		entries := buckets[page]
		sum := PageSummary{Page: page, Corrections: len(entries)}
		for _, e := range entries {
			if e.located {
				sum.Located++
				a.drawPlan(page, e.plan, indexFor(page), style)
			} else {
				sum.Unlocated++
			}
		}
		a.drawNotesBox(page, entries, style)
		res.Pages = append(res.Pages, sum)
	}

	out, err := a.Sink.Output(pages)
	if err != nil {
		return nil, fmt.Errorf("pack: render output: %w", err)
	}
	res.Output = out
	res.PageCount = len(pages)
	log.Info("pack assembled",
		observability.String("metric", observability.MetricPagesIncluded),
		observability.Int("pages", res.PageCount))
	return res, nil
}

// drawPlan renders the spans the plan resolved to this page: a line under
// each underline span and an ellipse around each emphasis span.
func (a *Assembler) drawPlan(page int, plan annotate.Plan, ix *pagetext.Index, style Style) {
	if ix == nil {
		return
	}
	for _, s := range spansOn(plan.Underline, page) {
		x1, x2, run := spanGeometry(ix, s)
		y := run.Y - underlineDrop
		a.Sink.DrawLine(page, x1, y, x2, y, style.UnderlineWidth)
	}
	for _, s := range spansOn(plan.Emphasis, page) {
		x1, x2, run := spanGeometry(ix, s)
		cx := (x1 + x2) / 2
		cy := run.Y + run.H*0.35
		rx := (x2-x1)/2 + ellipsePadX
		ry := run.H * 0.75
		a.Sink.DrawEllipse(page, cx, cy, rx, ry, style.EmphasisWidth)
	}
}

func spansOn(pages []locate.PageSpans, page int) []locate.Span {
	for _, pg := range pages {
		if pg.Page == page {
			return pg.Spans
		}
	}
	return nil
}

// spanGeometry converts a fractional span into page x coordinates using
// the run's uniform-character-width approximation.
func spanGeometry(ix *pagetext.Index, s locate.Span) (x1, x2 float64, run pagetext.Run) {
	run = ix.Run(s.Run)
	x1 = run.X + s.Start*run.W
	x2 = run.X + s.End*run.W
	return x1, x2, run
}

// drawNotesBox renders the page-bottom band listing every correction's
// formatted note. Identical notes collapse into one block with their
// track/timestamp suffixes joined.
func (a *Assembler) drawNotesBox(page int, entries []entry, style Style) {
	pageW, _ := a.Sink.PageSize(page)
	if pageW == 0 {
		return
	}
	lines := noteLines(entries, maxNoteChars(pageW, style.NotesFontSize))
	if len(lines) == 0 {
		return
	}

	lineH := style.NotesFontSize * lineSpacing
	boxH := float64(len(lines))*lineH + 2*notesPad
	boxX := notesMargin
	boxY := notesMargin
	boxW := pageW - 2*notesMargin

	a.Sink.FillRect(page, boxX, boxY, boxW, boxH, style.NotesBoxGray)
	a.Sink.DrawLine(page, boxX, boxY+boxH, boxX+boxW, boxY+boxH, 0.8)

	y := boxY + boxH - notesPad - style.NotesFontSize
	for _, line := range lines {
		a.Sink.DrawText(page, boxX+notesPad, y, style.NotesFontSize, line)
		y -= lineH
	}
}

// noteLines groups duplicate notes in first-appearance order and wraps
// each display block to the given width.
func noteLines(entries []entry, maxChars int) []string {
	type group struct {
		note     string
		suffixes []string
	}
	var groups []*group
	byNote := make(map[string]*group)
	for _, e := range entries {
		note := strings.TrimSpace(e.corr.Notes)
		if note == "" {
			continue
		}
		g, ok := byNote[note]
		if !ok {
			g = &group{note: note}
			byNote[note] = g
			groups = append(groups, g)
		}
		if sfx := provenance(e.corr); sfx != "" {
			g.suffixes = append(g.suffixes, sfx)
		}
	}

	var lines []string
	for _, g := range groups {
		block := g.note
		if len(g.suffixes) > 0 {
			block += "  (" + strings.Join(g.suffixes, "; ") + ")"
		}
		lines = append(lines, wrap("- "+block, maxChars)...)
	}
	return lines
}

// provenance formats a correction's track/timestamp suffix, empty when it
// has neither.
func provenance(c report.Correction) string {
	switch {
	case c.Track != "" && c.Timestamp != "":
		return "TRK " + c.Track + " @ " + c.Timestamp
	case c.Track != "":
		return "TRK " + c.Track
	case c.Timestamp != "":
		return c.Timestamp
	}
	return ""
}

func maxNoteChars(pageW, fontSize float64) int {
	usable := pageW - 2*(notesMargin+notesPad)
	// Helvetica averages roughly half the point size per glyph.
	n := int(usable / (fontSize * 0.5))
	if n < 16 {
		n = 16
	}
	return n
}

// wrap greedily word-wraps s; continuation lines are indented to clear
// the bullet.
func wrap(s string, maxChars int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	indent := "  "
	for _, w := range words[1:] {
		if len(cur)+1+len(w) > maxChars {
			lines = append(lines, cur)
			cur = indent + w
			continue
		}
		cur += " " + w
	}
	return append(lines, cur)
}
