// Package pdfdoc implements the two PDF collaborators the core engines
// depend on: a positioned-text source backed by github.com/ledongthuc/pdf
// and an annotating output sink backed by github.com/pdfcpu/pdfcpu. The
// engines themselves never touch PDF bytes.
package pdfdoc

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ledongthuc/pdf"

	"github.com/qcpack/qcpack/pagetext"
)

const (
	// defaultFontSize stands in when the extractor reports no size.
	defaultFontSize = 12.0
	// runBreakGap, in multiples of the font size, is the horizontal gap
	// beyond which adjacent glyphs start a new run.
	runBreakGap = 1.0
	// spaceGap, in multiples of the font size, is the gap beyond which a
	// space is inserted between glyphs of the same run.
	spaceGap = 0.25
)

// Document is a read-only view of the script PDF's positioned text.
// Implements pagetext.Source.
type Document struct {
	reader *pdf.Reader
}

// Load parses the document from memory.
func Load(data []byte) (*Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: parse document: %w", err)
	}
	return &Document{reader: r}, nil
}

func (d *Document) NumPages() int { return d.reader.NumPage() }

// PageRuns extracts the glyph fragments of a 1-based page and groups them
// into positioned runs. Order is whatever grouping produces; the caller's
// index imposes reading order.
func (d *Document) PageRuns(page int) ([]pagetext.Run, error) {
	if page < 1 || page > d.reader.NumPage() {
		return nil, fmt.Errorf("pdfdoc: page %d out of range", page)
	}
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, fmt.Errorf("pdfdoc: page %d has no content", page)
	}
	return groupGlyphs(p.Content().Text), nil
}

// groupGlyphs merges glyph-level fragments into runs: same baseline band,
// left to right, splitting on large horizontal gaps and inserting spaces
// on word-sized ones.
func groupGlyphs(texts []pdf.Text) []pagetext.Run {
	if len(texts) == 0 {
		return nil
	}
	frags := append([]pdf.Text(nil), texts...)
	sort.SliceStable(frags, func(i, j int) bool {
		dy := frags[i].Y - frags[j].Y
		if dy > pagetext.BaselineTolerance {
			return true
		}
		if dy < -pagetext.BaselineTolerance {
			return false
		}
		return frags[i].X < frags[j].X
	})

	var runs []pagetext.Run
	var cur *pagetext.Run
	var lastEnd float64
	var lastSize float64

	flush := func() {
		if cur != nil && cur.Text != "" {
			runs = append(runs, *cur)
		}
		cur = nil
	}

	for _, f := range frags {
		size := f.FontSize
		if size <= 0 {
			size = defaultFontSize
		}
		if cur != nil {
			gap := f.X - lastEnd
			sameLine := f.Y >= cur.Y-pagetext.BaselineTolerance && f.Y <= cur.Y+pagetext.BaselineTolerance
			if !sameLine || gap > runBreakGap*lastSize || gap < -lastSize {
				flush()
			}
		}
		if cur == nil {
			cur = &pagetext.Run{X: f.X, Y: f.Y, H: size}
			lastEnd = f.X
		} else if f.X-lastEnd > spaceGap*lastSize {
			cur.Text += " "
		}
		cur.Text += f.S
		if end := f.X + f.W; end > lastEnd {
			lastEnd = end
		}
		if end := lastEnd - cur.X; end > cur.W {
			cur.W = end
		}
		if size > cur.H {
			cur.H = size
		}
		lastSize = size
	}
	flush()
	return runs
}
