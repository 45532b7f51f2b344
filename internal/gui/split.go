package gui

import (
	"image"

	"epdgui/internal/render"
)

// expand selects which side of a split absorbs the space left over by the
// anchored side.
type expand uint8

const (
	expandFirst expand = iota
	expandSecond
)

// extents returns the extents of the first and second child when total is
// shared with an anchored side of at pixels.
func (e expand) extents(total, at int) (first, second int) {
	if e == expandFirst {
		return total - at, at
	}
	return at, total - at
}

// HSplit places two elements side by side.
type HSplit struct {
	mode        expand
	at          int
	left, right Element
	size        image.Point
}

// ExpandLeft anchors right at width at; left takes the rest.
func ExpandLeft(at int, left, right Element) *HSplit {
	return &HSplit{mode: expandFirst, at: at, left: left, right: right}
}

// ExpandRight anchors left at width at; right takes the rest.
func ExpandRight(at int, left, right Element) *HSplit {
	return &HSplit{mode: expandSecond, at: at, left: left, right: right}
}

func (s *HSplit) Resize(size image.Point) {
	s.size = image.Pt(max(size.X, s.MinSize().X), size.Y)
	lw, rw := s.mode.extents(s.size.X, s.at)
	s.left.Resize(image.Pt(lw, s.size.Y))
	s.right.Resize(image.Pt(rw, s.size.Y))
}

func (s *HSplit) MinSize() image.Point {
	l, r := s.left.MinSize(), s.right.MinSize()
	w := s.at + r.X
	if s.mode == expandFirst {
		w = l.X + s.at
	}
	return image.Pt(w, max(l.Y, r.Y))
}

func (s *HSplit) Size() image.Point { return s.size }

func (s *HSplit) RenderRow(row *render.Row, clip render.Clip, y, x int) {
	clip = clip.Clip(x, x+s.size.X)
	split, _ := s.mode.extents(s.size.X, s.at)

	if c := clip.Clip(x, x+split); !c.Empty() {
		s.left.RenderRow(row, c, y, x)
	}
	if c := clip.Clip(x+split, x+s.size.X); !c.Empty() {
		s.right.RenderRow(row, c, y, x+split)
	}
}

// VSplit stacks two elements.
type VSplit struct {
	mode        expand
	at          int
	top, bottom Element
	size        image.Point
}

// ExpandTop anchors bottom at height at; top takes the rest.
func ExpandTop(at int, top, bottom Element) *VSplit {
	return &VSplit{mode: expandFirst, at: at, top: top, bottom: bottom}
}

// ExpandBottom anchors top at height at; bottom takes the rest.
func ExpandBottom(at int, top, bottom Element) *VSplit {
	return &VSplit{mode: expandSecond, at: at, top: top, bottom: bottom}
}

func (s *VSplit) Resize(size image.Point) {
	s.size = image.Pt(size.X, max(size.Y, s.MinSize().Y))
	th, bh := s.mode.extents(s.size.Y, s.at)
	s.top.Resize(image.Pt(s.size.X, th))
	s.bottom.Resize(image.Pt(s.size.X, bh))
}

func (s *VSplit) MinSize() image.Point {
	t, b := s.top.MinSize(), s.bottom.MinSize()
	h := s.at + b.Y
	if s.mode == expandFirst {
		h = t.Y + s.at
	}
	return image.Pt(max(t.X, b.X), h)
}

func (s *VSplit) Size() image.Point { return s.size }

func (s *VSplit) RenderRow(row *render.Row, clip render.Clip, y, x int) {
	if y < 0 || y >= s.size.Y {
		return
	}
	clip = clip.Clip(x, x+s.size.X)
	if clip.Empty() {
		return
	}
	split, _ := s.mode.extents(s.size.Y, s.at)
	if y < split {
		s.top.RenderRow(row, clip, y, x)
	} else {
		s.bottom.RenderRow(row, clip, y-split, x)
	}
}

// Stack stacks rows of the given height from the top down; the last
// element takes whatever height remains.
func Stack(rowHeight int, rows ...Element) Element {
	switch len(rows) {
	case 0:
		return NewFill(render.White)
	case 1:
		return rows[0]
	}
	return ExpandBottom(rowHeight, rows[0], Stack(rowHeight, rows[1:]...))
}
