package textnorm

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"ligature and curly quotes", "ﬁnd “quotes’s”", `find "quotes's"`},
		{"lowercase", "The DOG Ran", "the dog ran"},
		{"wrapped word joins", "exam-ple", "example"},
		{"soft hyphen joins", "exam­ple", "example"},
		{"dangling hyphen separates", "well - known", "well known"},
		{"punctuation to space", "stop. go! now?", "stop go now"},
		{"whitespace collapse", "  a \t b\n\nc  ", "a b c"},
		{"apostrophe kept", "don't", "don't"},
		{"empty", "", ""},
		{"all punctuation", "..., !!??", ""},
		{"double ligature", "oﬃce traﬃc", "office traffic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIndexed(t *testing.T) {
	in := "Exam-ple  ﬁx"
	got, idx := NormalizeIndexed(in)
	if got != "example fix" {
		t.Fatalf("normalized = %q", got)
	}
	if len(idx) != len([]rune(got)) {
		t.Fatalf("index length %d, want %d", len(idx), len([]rune(got)))
	}
	src := []rune(in)
	// Every mapped offset must point inside the source.
	for i, off := range idx {
		if off < 0 || off >= len(src) {
			t.Fatalf("index[%d] = %d out of range", i, off)
		}
	}
	// 'p' of "ple" comes from source offset 5 (after the dropped hyphen).
	if src[idx[4]] != 'p' {
		t.Fatalf("offset for 'p' maps to %q", src[idx[4]])
	}
	// Both runes of the expanded ligature map to the glyph itself.
	rs := []rune(got)
	fi := -1
	for i, r := range rs {
		if r == 'f' && i+1 < len(rs) && rs[i+1] == 'i' {
			fi = i
		}
	}
	if fi < 0 {
		t.Fatalf("expanded ligature not found in %q", got)
	}
	if idx[fi] != idx[fi+1] || src[idx[fi]] != 'ﬁ' {
		t.Fatalf("ligature runes map to offsets %d,%d (%q)", idx[fi], idx[fi+1], src[idx[fi]])
	}
}

func TestFold(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The dog, ran!", "thedogran"},
		{"café", "cafe"},
		{"ﬁx-up", "fixup"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Fold(tc.in); got != tc.want {
			t.Fatalf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFoldIndexed(t *testing.T) {
	in := "a-b c"
	got, idx := FoldIndexed(in)
	if got != "abc" {
		t.Fatalf("folded = %q", got)
	}
	want := []int{0, 2, 4}
	if !reflect.DeepEqual(idx, want) {
		t.Fatalf("index = %v, want %v", idx, want)
	}
}

func TestWords(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`"the dog ran"`, []string{"the", "dog", "ran"}},
		{"Don't  stop", []string{"don't", "stop"}},
		{"", nil},
		{`"..."`, nil},
	}
	for _, tc := range cases {
		if got := Words(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Words(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
