package gui

import (
	"fmt"
	"image"

	"epdgui/internal/hal"
	"epdgui/internal/render"
)

// Layout is the root of a tree sized to a whole panel.
type Layout struct {
	root Element
	size image.Point
}

// NewLayout resizes root to size once; the tree is not resized again.
func NewLayout(size image.Point, root Element) *Layout {
	root.Resize(size)
	return &Layout{root: root, size: size}
}

// Size is the layout size in pixels.
func (l *Layout) Size() image.Point { return l.size }

// Root returns the root element.
func (l *Layout) Root() Element { return l.root }

// RenderRowInto renders row y into buf, starting from a white row.
func (l *Layout) RenderRowInto(buf []byte, clip render.Clip, y int) *render.Row {
	row := render.NewRow(buf, l.size.X)
	row.Clear(render.White)
	l.root.RenderRow(row, clip.Clip(0, l.size.X), y, 0)
	return row
}

// Render sends every row, top to bottom, to d. The frame must already be
// started; buf is reused for each row.
func (l *Layout) Render(d hal.Display, buf []byte) error {
	if ds := d.Size(); ds != l.size {
		return fmt.Errorf("gui: layout is %v but display is %v", l.size, ds)
	}
	full := render.Clip{Left: 0, Right: l.size.X}
	for y := 0; y < l.size.Y; y++ {
		row := l.RenderRowInto(buf, full, y)
		if err := d.DrawRow(row.Bytes()); err != nil {
			return fmt.Errorf("gui: draw row %d: %w", y, err)
		}
	}
	return nil
}

// RenderPartial sends the rows of rect to d. rect is clamped to the layout
// and its columns are widened to whole bytes, matching the window a panel
// actually rewrites. The partial frame must already be started.
func (l *Layout) RenderPartial(d hal.PartialDisplay, rect image.Rectangle, buf []byte) error {
	rect = rect.Intersect(image.Rectangle{Max: l.size})
	clip := render.Clip{Left: rect.Min.X &^ 7, Right: (rect.Max.X + 7) &^ 7}.Clip(0, l.size.X)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := l.RenderRowInto(buf, clip, y)
		if err := d.DrawPartialRow(row.Bytes()); err != nil {
			return fmt.Errorf("gui: draw partial row %d: %w", y, err)
		}
	}
	return nil
}
