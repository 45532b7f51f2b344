package gui

import (
	"image"

	"epdgui/internal/render"
)

// Alignment positions a child along one axis of its box.
type Alignment uint8

const (
	Start Alignment = iota
	Center
	End
)

func (a Alignment) offset(box, child int) int {
	switch a {
	case Center:
		return (box - child) / 2
	case End:
		return box - child
	default:
		return 0
	}
}

// Align draws its child at the child's minimum size inside the box it is
// given.
type Align struct {
	Horizontal, Vertical Alignment

	child Element
	size  image.Point
}

// NewAlign wraps child.
func NewAlign(h, v Alignment, child Element) *Align {
	return &Align{Horizontal: h, Vertical: v, child: child}
}

func (a *Align) Resize(size image.Point) {
	a.size = size
	a.child.Resize(a.child.MinSize())
}

func (a *Align) MinSize() image.Point { return a.child.MinSize() }
func (a *Align) Size() image.Point    { return a.size }

// childOffset is the child's top-left corner relative to the box.
func (a *Align) childOffset() image.Point {
	cs := a.child.Size()
	return image.Pt(
		a.Horizontal.offset(a.size.X, cs.X),
		a.Vertical.offset(a.size.Y, cs.Y),
	)
}

func (a *Align) RenderRow(row *render.Row, clip render.Clip, y, x int) {
	off := a.childOffset()
	cs := a.child.Size()

	cy := y - off.Y
	if y < 0 || y >= a.size.Y || cy < 0 || cy >= cs.Y {
		return
	}
	cx := x + off.X
	clip = clip.Clip(x, x+a.size.X).Clip(cx, cx+cs.X)
	if clip.Empty() {
		return
	}
	a.child.RenderRow(row, clip, cy, cx)
}
