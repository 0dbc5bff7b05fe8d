package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// fontResName is the resource name our text operators select. The font
// itself is plain Helvetica, registered on every annotated page.
const fontResName = "QCF1"

// Annotator buffers drawing primitives against the pages of a loaded
// document and renders the selected pages into a fresh PDF. Coordinates
// are PDF user space: points, origin bottom-left.
type Annotator struct {
	ctx     *model.Context
	conf    *model.Configuration
	dims    []types.Dim
	pages   map[int]*contentBuf
	fontRef *types.IndirectRef
}

// NewAnnotator parses the document the marks will be drawn onto.
func NewAnnotator(data []byte) (*Annotator, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: read document: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("pdfdoc: validate document: %w", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: page dimensions: %w", err)
	}
	return &Annotator{
		ctx:   ctx,
		conf:  conf,
		dims:  dims,
		pages: make(map[int]*contentBuf),
	}, nil
}

// PageCount reports the number of pages in the loaded document.
func (a *Annotator) PageCount() int { return a.ctx.PageCount }

// PageSize returns the width and height, in points, of a 1-based page.
func (a *Annotator) PageSize(page int) (w, h float64) {
	if page < 1 || page > len(a.dims) {
		return 0, 0
	}
	d := a.dims[page-1]
	return d.Width, d.Height
}

func (a *Annotator) buf(page int) *contentBuf {
	if page < 1 || page > a.ctx.PageCount {
		return nil
	}
	b, ok := a.pages[page]
	if !ok {
		b = &contentBuf{}
		a.pages[page] = b
	}
	return b
}

// DrawLine strokes a line segment. Draw calls against pages outside the
// document are dropped; the planner decides what is in range.
func (a *Annotator) DrawLine(page int, x1, y1, x2, y2, width float64) {
	if b := a.buf(page); b != nil {
		b.line(x1, y1, x2, y2, width)
	}
}

// DrawEllipse strokes an axis-aligned ellipse centered at (cx, cy).
func (a *Annotator) DrawEllipse(page int, cx, cy, rx, ry, width float64) {
	if b := a.buf(page); b != nil {
		b.ellipse(cx, cy, rx, ry, width)
	}
}

// FillRect fills a rectangle with a gray level (0 black, 1 white).
func (a *Annotator) FillRect(page int, x, y, w, h, gray float64) {
	if b := a.buf(page); b != nil {
		b.fillRect(x, y, w, h, gray)
	}
}

// DrawText places a single line of Helvetica text with its baseline at
// (x, y).
func (a *Annotator) DrawText(page int, x, y, size float64, s string) {
	if b := a.buf(page); b != nil {
		b.text(x, y, size, s)
	}
}

// Output applies the buffered marks and renders only the selected pages,
// in the given order-insensitive 1-based selection, as a standalone PDF.
func (a *Annotator) Output(pages []int) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.New("pdfdoc: empty page selection")
	}
	for page, b := range a.pages {
		if err := a.applyContent(page, b.Bytes()); err != nil {
			return nil, err
		}
	}

	var full bytes.Buffer
	if err := api.WriteContext(a.ctx, &full); err != nil {
		return nil, fmt.Errorf("pdfdoc: write document: %w", err)
	}

	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	var out bytes.Buffer
	if err := api.Trim(bytes.NewReader(full.Bytes()), &out, sel, a.conf); err != nil {
		return nil, fmt.Errorf("pdfdoc: select pages: %w", err)
	}
	return out.Bytes(), nil
}

// applyContent appends the buffered operators to a page's content chain.
// A leading "q" stream and a balancing "Q" before our operators isolate
// the marks from whatever graphics state the page's own streams leave
// behind.
func (a *Annotator) applyContent(page int, ops []byte) error {
	d, _, inh, err := a.ctx.PageDict(page, false)
	if err != nil {
		return fmt.Errorf("pdfdoc: page %d dict: %w", page, err)
	}
	if d == nil {
		return fmt.Errorf("pdfdoc: page %d has no dict", page)
	}
	if err := a.ensureFont(d, inh); err != nil {
		return err
	}

	preRef, err := a.newContentStream([]byte("q\n"))
	if err != nil {
		return err
	}
	postRef, err := a.newContentStream(append([]byte("Q\n"), ops...))
	if err != nil {
		return err
	}

	obj, found := d.Find("Contents")
	switch o := obj.(type) {
	case types.Array:
		chain := append(types.Array{*preRef}, o...)
		d["Contents"] = append(chain, *postRef)
	default:
		if !found {
			d["Contents"] = types.Array{*preRef, *postRef}
		} else {
			d["Contents"] = types.Array{*preRef, obj, *postRef}
		}
	}
	return nil
}

func (a *Annotator) newContentStream(buf []byte) (*types.IndirectRef, error) {
	sd, err := a.ctx.NewStreamDictForBuf(buf)
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: content stream: %w", err)
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("pdfdoc: encode content stream: %w", err)
	}
	ir, err := a.ctx.IndRefForNewObject(*sd)
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: register content stream: %w", err)
	}
	return ir, nil
}

// ensureFont registers the Helvetica resource under fontResName on the
// page, materializing inherited resources onto the page dict first so
// nothing else loses its fonts.
func (a *Annotator) ensureFont(d types.Dict, inh *model.InheritedPageAttrs) error {
	if a.fontRef == nil {
		fd := types.Dict{
			"Type":     types.Name("Font"),
			"Subtype":  types.Name("Type1"),
			"BaseFont": types.Name("Helvetica"),
		}
		ir, err := a.ctx.IndRefForNewObject(fd)
		if err != nil {
			return fmt.Errorf("pdfdoc: register font: %w", err)
		}
		a.fontRef = ir
	}

	var res types.Dict
	if o, found := d.Find("Resources"); found {
		rd, err := a.ctx.DereferenceDict(o)
		if err != nil {
			return fmt.Errorf("pdfdoc: page resources: %w", err)
		}
		res = rd
	}
	if res == nil && inh != nil && inh.Resources != nil {
		res = inh.Resources
		d["Resources"] = res
	}
	if res == nil {
		res = types.Dict{}
		d["Resources"] = res
	}

	if o, found := res.Find("Font"); found {
		fd, err := a.ctx.DereferenceDict(o)
		if err != nil {
			return fmt.Errorf("pdfdoc: font resources: %w", err)
		}
		if fd != nil {
			fd[fontResName] = *a.fontRef
			return nil
		}
	}
	res["Font"] = types.Dict{fontResName: *a.fontRef}
	return nil
}
