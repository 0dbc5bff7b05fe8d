package pagetext

import "testing"

func TestReadingOrder(t *testing.T) {
	// Supplied out of order: second line first, then the first line's two
	// runs right-to-left.
	runs := []Run{
		{Text: "second line", X: 72, Y: 688, W: 100, H: 11},
		{Text: "world", X: 150, Y: 700, W: 50, H: 11},
		{Text: "hello ", X: 72, Y: 702, W: 60, H: 11}, // same band as "world"
	}
	ix := NewIndex(runs)
	if ix.RunCount() != 3 {
		t.Fatalf("RunCount = %d", ix.RunCount())
	}
	if got := ix.Corpus(); got != "hello worldsecond line" {
		t.Fatalf("corpus = %q", got)
	}
	if ix.Run(0).Text != "hello " || ix.Run(1).Text != "world" {
		t.Fatalf("line order wrong: %q then %q", ix.Run(0).Text, ix.Run(1).Text)
	}
}

func TestRefs(t *testing.T) {
	ix := NewIndex([]Run{
		{Text: "ab", X: 0, Y: 100, W: 20, H: 10},
		{Text: "cd", X: 30, Y: 100, W: 20, H: 10},
	})
	if ix.CorpusLen() != 4 {
		t.Fatalf("CorpusLen = %d", ix.CorpusLen())
	}
	want := []Ref{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for i, w := range want {
		if got := ix.Ref(i); got != w {
			t.Fatalf("Ref(%d) = %+v, want %+v", i, got, w)
		}
	}
	if ix.RunLen(1) != 2 {
		t.Fatalf("RunLen = %d", ix.RunLen(1))
	}
}

func TestEmptyIndex(t *testing.T) {
	ix := NewIndex(nil)
	if ix.CorpusLen() != 0 || ix.RunCount() != 0 {
		t.Fatalf("empty index not empty: %d runes, %d runs", ix.CorpusLen(), ix.RunCount())
	}
}
