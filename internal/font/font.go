// Package font lays out text as run-length encoded glyph overlays.
package font

import (
	"epdgui/internal/raster"
	"epdgui/internal/render"
)

// Glyph is the immutable image and metrics of one character.
type Glyph struct {
	Image *raster.RLEImage
	// Left is the horizontal offset of the image from the pen position.
	Left int
	// Top is the distance from the image's first row to the baseline.
	Top     int
	Advance int
}

// Font is a set of glyphs plus the lookup that maps characters onto them.
// Fonts are built once and shared read-only.
type Font struct {
	Ascender  int
	Descender int
	Glyphs    []Glyph
	// Index returns the glyph index for r, or false when the font has none.
	Index func(r rune) (int, bool)
}

// Height is the line height.
func (f *Font) Height() int {
	return f.Ascender + f.Descender
}

func (f *Font) glyph(r rune) (*Glyph, bool) {
	i, ok := f.Index(r)
	if !ok || i < 0 || i >= len(f.Glyphs) {
		return nil, false
	}
	return &f.Glyphs[i], true
}

// TextSize returns the advance width and line height of text. Characters
// without a glyph are skipped.
func (f *Font) TextSize(text string) (width, height int) {
	for _, r := range text {
		if g, ok := f.glyph(r); ok {
			width += g.Advance
		}
	}
	return width, f.Height()
}

// RenderRow draws line y of text starting at column x. The text background
// is opaque, so the whole clip is painted white first.
func (f *Font) RenderRow(row *render.Row, clip render.Clip, text string, y, x int) {
	row.Fill(clip, clip.Left, clip.Right, render.White)
	if y < 1 || y > f.Height() {
		return
	}
	pos := x
	// Glyphs outside the clip are still walked; the overlay clips them.
	for _, r := range text {
		g, ok := f.glyph(r)
		if !ok {
			continue
		}
		g.Image.RenderRowTransparent(row, clip, y-f.Ascender+g.Top, pos+g.Left)
		pos += g.Advance
	}
}
