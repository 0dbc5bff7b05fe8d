// Package pagetext models a page's positioned text and builds the
// searchable index the locator works against. Runs arrive from the PDF
// text source in glyph order, which is not reading order; the index
// imposes top-to-bottom, left-to-right order before building its corpus.
package pagetext

import "sort"

// Run is one contiguous piece of text as laid out on a page, in document
// coordinates (origin bottom-left, y up). Immutable.
type Run struct {
	Text string
	X    float64
	Y    float64 // baseline
	W    float64
	H    float64
}

// Source supplies pages of positioned runs. Implemented by the PDF
// reading collaborator.
type Source interface {
	NumPages() int
	// PageRuns returns the runs of a 1-based page in extraction order.
	PageRuns(page int) ([]Run, error)
}

// BaselineTolerance is the band, in layout units, within which two
// baselines count as the same line.
const BaselineTolerance = 5.0

// Index is a page's runs in reading order plus a searchable corpus: the
// concatenated run text and a parallel map from each corpus rune back to
// its (run, offset-within-run). Built once per page and reused for every
// correction touching that page. Read-only after construction.
type Index struct {
	runs   []Run
	corpus []rune
	refs   []Ref
}

// Ref locates one corpus rune inside a specific run.
type Ref struct {
	Run  int
	Char int // rune offset within the run's text
}

// NewIndex sorts runs into reading order and builds the corpus arena.
// Run text is concatenated without separators: a line-wrap hyphen at a
// run boundary must stay adjacent to the following run's first letter so
// normalization can join the wrapped word.
func NewIndex(runs []Run) *Index {
	ordered := append([]Run(nil), runs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		dy := a.Y - b.Y
		if dy > BaselineTolerance {
			return true
		}
		if dy < -BaselineTolerance {
			return false
		}
		return a.X < b.X
	})

	ix := &Index{runs: ordered}
	for ri, r := range ordered {
		for ci, ch := range []rune(r.Text) {
			ix.corpus = append(ix.corpus, ch)
			ix.refs = append(ix.refs, Ref{Run: ri, Char: ci})
		}
	}
	return ix
}

// RunCount returns the number of runs in reading order.
func (ix *Index) RunCount() int { return len(ix.runs) }

// Run returns the i-th run in reading order.
func (ix *Index) Run(i int) Run { return ix.runs[i] }

// RunLen returns the rune length of the i-th run.
func (ix *Index) RunLen(i int) int { return len([]rune(ix.runs[i].Text)) }

// Corpus returns the concatenated run text.
func (ix *Index) Corpus() string { return string(ix.corpus) }

// CorpusLen returns the corpus length in runes.
func (ix *Index) CorpusLen() int { return len(ix.corpus) }

// Ref maps a corpus rune offset back to its run.
func (ix *Index) Ref(i int) Ref { return ix.refs[i] }
