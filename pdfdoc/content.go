package pdfdoc

import (
	"bytes"
	"fmt"
	"strings"
)

// kappa is the cubic Bézier approximation constant for a quarter circle.
const kappa = 0.5523

// contentBuf accumulates raw page content-stream operators. Every
// primitive wraps itself in q/Q so graphics state never leaks between
// marks.
type contentBuf struct {
	bytes.Buffer
}

func (b *contentBuf) line(x1, y1, x2, y2, width float64) {
	fmt.Fprintf(b, "q %.2f w 0 0 0 RG %.2f %.2f m %.2f %.2f l S Q\n",
		width, x1, y1, x2, y2)
}

func (b *contentBuf) ellipse(cx, cy, rx, ry, width float64) {
	kx, ky := kappa*rx, kappa*ry
	fmt.Fprintf(b, "q %.2f w 0 0 0 RG %.2f %.2f m ", width, cx+rx, cy)
	fmt.Fprintf(b, "%.2f %.2f %.2f %.2f %.2f %.2f c ", cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	fmt.Fprintf(b, "%.2f %.2f %.2f %.2f %.2f %.2f c ", cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	fmt.Fprintf(b, "%.2f %.2f %.2f %.2f %.2f %.2f c ", cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	fmt.Fprintf(b, "%.2f %.2f %.2f %.2f %.2f %.2f c S Q\n", cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
}

func (b *contentBuf) fillRect(x, y, w, h, gray float64) {
	fmt.Fprintf(b, "q %.2f g %.2f %.2f %.2f %.2f re f Q\n", gray, x, y, w, h)
}

func (b *contentBuf) text(x, y, size float64, s string) {
	fmt.Fprintf(b, "q BT /%s %.2f Tf %.2f %.2f Td (%s) Tj ET Q\n",
		fontResName, size, x, y, escapeText(s))
}

// escapeText makes a string safe for a PDF literal string: backslash,
// parens, and line breaks need escaping.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '(':
			b.WriteString(`\(`)
		case ')':
			b.WriteString(`\)`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
