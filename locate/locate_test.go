package locate

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/qcpack/qcpack/pagetext"
	"github.com/qcpack/qcpack/textnorm"
)

func pageOf(texts ...string) PageIndex {
	var runs []pagetext.Run
	y := 700.0
	for _, t := range texts {
		runs = append(runs, pagetext.Run{Text: t, X: 72, Y: y, W: float64(len(t)) * 6, H: 11})
		y -= 14
	}
	return PageIndex{Page: 1, Index: pagetext.NewIndex(runs)}
}

// reconstruct pulls the matched text back out of the runs via the
// fractional spans.
func reconstruct(ix *pagetext.Index, spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		rs := []rune(ix.Run(s.Run).Text)
		n := float64(len(rs))
		start := int(math.Round(s.Start * n))
		end := int(math.Round(s.End * n))
		b.WriteString(string(rs[start:end]))
	}
	return b.String()
}

func TestLocateStrictRoundTrip(t *testing.T) {
	p := pageOf("the quick brown fox ", "jumps over the lazy dog")
	var l Locator
	loc, ok := l.Locate(context.Background(), "quick brown fox", p, nil, nil)
	if !ok {
		t.Fatal("phrase not located")
	}
	if len(loc.Pages) != 1 || loc.Pages[0].Page != 1 {
		t.Fatalf("pages = %+v", loc.Pages)
	}
	got := reconstruct(p.Index, loc.Pages[0].Spans)
	if textnorm.Normalize(got) != textnorm.Normalize("quick brown fox") {
		t.Fatalf("reconstructed %q", got)
	}
}

func TestLocateAcrossWrappedWord(t *testing.T) {
	// A mid-word line wrap leaves "exam-" on one run and "ple text" on
	// the next; the soft-hyphen rule joins them before matching.
	p := pageOf("exam-", "ple text here")
	var l Locator
	loc, ok := l.Locate(context.Background(), "example text", p, nil, nil)
	if !ok {
		t.Fatal("wrapped word not located")
	}
	spans := loc.Pages[0].Spans
	if len(spans) != 2 {
		t.Fatalf("spans = %+v, want both runs", spans)
	}
	if spans[0].Run != 0 || spans[1].Run != 1 {
		t.Fatalf("runs = %d, %d", spans[0].Run, spans[1].Run)
	}
}

func TestLocateAggressive(t *testing.T) {
	// Dots defeat the strict normalizer (they become separators) but not
	// the aggressive one.
	p := pageOf("the d.o.g ran home")
	var l Locator
	loc, ok := l.Locate(context.Background(), "the dog ran", p, nil, nil)
	if !ok {
		t.Fatal("aggressive match missed")
	}
	if len(loc.Pages[0].Spans) != 1 {
		t.Fatalf("spans = %+v", loc.Pages[0].Spans)
	}
}

func TestAggressiveMergesAcrossRemovedSpace(t *testing.T) {
	// Stripping all non-alphanumerics merges adjacent words: "red coat"
	// finds "redcoat". Deliberate, documented boundary behavior.
	p := pageOf("the redcoat army marched")
	var l Locator
	if _, ok := l.Locate(context.Background(), "red coat", p, nil, nil); !ok {
		t.Fatal("merge behavior changed: aggressive match should hit")
	}
}

func TestLocateBridging(t *testing.T) {
	primary := PageIndex{Page: 4, Index: pagetext.NewIndex([]pagetext.Run{
		{Text: "and so we reached the end of ", X: 72, Y: 100, W: 170, H: 11},
	})}
	next := PageIndex{Page: 5, Index: pagetext.NewIndex([]pagetext.Run{
		{Text: "the beginning of winter", X: 72, Y: 700, W: 140, H: 11},
	})}
	var l Locator
	loc, ok := l.Locate(context.Background(), "the end of the beginning", primary, &next, nil)
	if !ok {
		t.Fatal("bridged phrase not located")
	}
	if len(loc.Pages) != 2 {
		t.Fatalf("pages = %+v, want marks on both pages", loc.Pages)
	}
	if loc.Pages[0].Page != 4 || loc.Pages[1].Page != 5 {
		t.Fatalf("pages = %d, %d", loc.Pages[0].Page, loc.Pages[1].Page)
	}
	// No duplicated marks: each page carries exactly its own share.
	if len(loc.SpansOn(4)) != 1 || len(loc.SpansOn(5)) != 1 {
		t.Fatalf("span split = %+v", loc.Pages)
	}
	if s := loc.SpansOn(5)[0]; s.Start != 0 {
		t.Fatalf("next-page span should start at the run head: %+v", s)
	}
}

func TestLocateBridgingDisabled(t *testing.T) {
	primary := pageOf("nothing relevant here")
	next := pageOf("the target phrase lives here")
	next.Page = 2
	l := Locator{DisableBridging: true}
	if _, ok := l.Locate(context.Background(), "target phrase", primary, &next, nil); ok {
		t.Fatal("bridging should be off")
	}
}

func TestLocateNotFound(t *testing.T) {
	p := pageOf("completely unrelated content")
	var l Locator
	if _, ok := l.Locate(context.Background(), "the missing phrase", p, nil, nil); ok {
		t.Fatal("expected not found")
	}
	if _, ok := l.Locate(context.Background(), "", p, nil, nil); ok {
		t.Fatal("empty phrase must not match")
	}
}

func TestInRuns(t *testing.T) {
	ix := pagetext.NewIndex([]pagetext.Run{
		{Text: "alpha beta ", X: 72, Y: 700, W: 66, H: 11},
		{Text: "gamma delta", X: 72, Y: 686, W: 66, H: 11},
		{Text: "beta again", X: 72, Y: 672, W: 60, H: 11},
	})
	// Restricting to run 2 skips the earlier "beta".
	spans, ok := InRuns("beta", ix, []int{2})
	if !ok {
		t.Fatal("restricted search missed")
	}
	if len(spans) != 1 || spans[0].Run != 2 || spans[0].Start != 0 {
		t.Fatalf("spans = %+v", spans)
	}
}

type fakeSuggester struct {
	out string
	err error
}

func (f fakeSuggester) Suggest(context.Context, string, string) (string, error) {
	return f.out, f.err
}

func TestSuggesterFallback(t *testing.T) {
	p := pageOf("its colour had faded badly")

	// A verbatim substring is accepted.
	l := Locator{Fallback: fakeSuggester{out: "colour had faded"}}
	loc, ok := l.Locate(context.Background(), "color had faided", p, nil, nil)
	if !ok {
		t.Fatal("verbatim suggestion rejected")
	}
	if got := reconstruct(p.Index, loc.Pages[0].Spans); !strings.Contains(got, "colour") {
		t.Fatalf("reconstructed %q", got)
	}

	// Anything not literally on the page is a hallucination: no match.
	l = Locator{Fallback: fakeSuggester{out: "color had faded"}}
	if _, ok := l.Locate(context.Background(), "color had faided", p, nil, nil); ok {
		t.Fatal("hallucinated suggestion accepted")
	}

	// Errors degrade to not-found.
	l = Locator{Fallback: fakeSuggester{err: errors.New("quota")}}
	if _, ok := l.Locate(context.Background(), "color had faided", p, nil, nil); ok {
		t.Fatal("error should mean not found")
	}
}
