package pdfdoc

import (
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
)

func glyph(s string, x, y, w, size float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: size}
}

func TestGroupGlyphsWordsAndRuns(t *testing.T) {
	// "the dog" with a word gap, then a column far to the right.
	texts := []pdf.Text{
		glyph("t", 72, 700, 5, 11),
		glyph("h", 77, 700, 5, 11),
		glyph("e", 82, 700, 5, 11),
		glyph("d", 92, 700, 5, 11),
		glyph("o", 97, 700, 5, 11),
		glyph("g", 102, 700, 5, 11),
		glyph("7", 400, 700, 6, 11),
	}
	runs := groupGlyphs(texts)
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2: %+v", len(runs), runs)
	}
	if runs[0].Text != "the dog" {
		t.Fatalf("run text = %q, want %q", runs[0].Text, "the dog")
	}
	if runs[0].X != 72 || runs[0].Y != 700 {
		t.Fatalf("run position = (%v, %v)", runs[0].X, runs[0].Y)
	}
	if runs[0].W < 35 {
		t.Fatalf("run width = %v, want to span the glyphs", runs[0].W)
	}
	if runs[1].Text != "7" {
		t.Fatalf("second run = %q", runs[1].Text)
	}
}

func TestGroupGlyphsBaselineBand(t *testing.T) {
	// Slight baseline jitter stays one run; a real line break does not.
	texts := []pdf.Text{
		glyph("a", 72, 700, 5, 11),
		glyph("b", 77, 702, 5, 11),
		glyph("c", 72, 680, 5, 11),
	}
	runs := groupGlyphs(texts)
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2: %+v", len(runs), runs)
	}
	if runs[0].Text != "ab" || runs[1].Text != "c" {
		t.Fatalf("runs = %q, %q", runs[0].Text, runs[1].Text)
	}
}

func TestGroupGlyphsReadingOrder(t *testing.T) {
	// Fragments arrive out of order; grouping sorts top-down then
	// left-right before merging.
	texts := []pdf.Text{
		glyph("low", 72, 650, 15, 11),
		glyph("high", 72, 700, 20, 11),
	}
	runs := groupGlyphs(texts)
	if len(runs) != 2 || runs[0].Text != "high" || runs[1].Text != "low" {
		t.Fatalf("runs = %+v", runs)
	}
}

func TestGroupGlyphsEmpty(t *testing.T) {
	if runs := groupGlyphs(nil); runs != nil {
		t.Fatalf("runs = %+v, want nil", runs)
	}
}

func TestContentOps(t *testing.T) {
	var b contentBuf
	b.line(10, 20, 110, 20, 1.5)
	b.ellipse(50, 50, 30, 10, 1)
	b.fillRect(0, 0, 200, 60, 0.9)
	b.text(12, 14, 9, "note (one)")
	ops := b.String()

	for _, want := range []string{
		"10.00 20.00 m 110.00 20.00 l S",
		" c S Q",
		"0.90 g 0.00 0.00 200.00 60.00 re f",
		"/" + fontResName + " 9.00 Tf 12.00 14.00 Td (note \\(one\\)) Tj",
	} {
		if !strings.Contains(ops, want) {
			t.Fatalf("ops missing %q:\n%s", want, ops)
		}
	}
	if got := strings.Count(ops, "q "); got != strings.Count(ops, " Q\n") {
		t.Fatalf("unbalanced q/Q in:\n%s", ops)
	}
}

func TestEscapeText(t *testing.T) {
	if got := escapeText(`a\b(c)d` + "\n"); got != `a\\b\(c\)d\n` {
		t.Fatalf("escapeText = %q", got)
	}
}
