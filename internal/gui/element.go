// Package gui is a small declarative element tree rendered one scanline at
// a time. Parents own their children; sizes are negotiated once by Resize
// and only read while rendering.
package gui

import (
	"image"

	"epdgui/internal/font"
	"epdgui/internal/raster"
	"epdgui/internal/render"
)

// Element is a node of the tree.
type Element interface {
	// Resize offers the element a size budget.
	Resize(size image.Point)
	// MinSize is the smallest size the element renders without loss.
	MinSize() image.Point
	// Size is the size settled by the last Resize.
	Size() image.Point
	// RenderRow draws local row y into clip with the element's left edge at
	// column x.
	RenderRow(row *render.Row, clip render.Clip, y, x int)
}

// Fill is a solid block of one color.
type Fill struct {
	Color render.Color
	size  image.Point
}

// NewFill returns a Fill of color c.
func NewFill(c render.Color) *Fill {
	return &Fill{Color: c}
}

func (f *Fill) Resize(size image.Point) { f.size = size }
func (f *Fill) MinSize() image.Point    { return image.Pt(1, 1) }
func (f *Fill) Size() image.Point       { return f.size }

func (f *Fill) RenderRow(row *render.Row, clip render.Clip, _ int, x int) {
	row.Fill(clip, x, x+f.size.X, f.Color)
}

// Text is a single line of text. Its size is the text extent and does not
// follow Resize.
type Text struct {
	text string
	font *font.Font
	size image.Point
}

// NewText measures text in f.
func NewText(text string, f *font.Font) *Text {
	w, h := f.TextSize(text)
	return &Text{text: text, font: f, size: image.Pt(w, h)}
}

func (t *Text) Resize(image.Point)   {}
func (t *Text) MinSize() image.Point { return t.size }
func (t *Text) Size() image.Point    { return t.size }
func (t *Text) String() string       { return t.text }

func (t *Text) RenderRow(row *render.Row, clip render.Clip, y, x int) {
	t.font.RenderRow(row, clip, t.text, y, x)
}

// Image shows a raster at its own size.
type Image struct {
	raster raster.Raster
}

// NewImage wraps r.
func NewImage(r raster.Raster) *Image {
	return &Image{raster: r}
}

func (i *Image) Resize(image.Point) {}

func (i *Image) MinSize() image.Point {
	w, h := i.raster.Bounds()
	return image.Pt(w, h)
}

func (i *Image) Size() image.Point { return i.MinSize() }

func (i *Image) RenderRow(row *render.Row, clip render.Clip, y, x int) {
	i.raster.RenderRowTransparent(row, clip, y, x)
}
