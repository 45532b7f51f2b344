// Package board composes the agenda screen out of gui elements.
package board

import (
	"fmt"
	"image"

	"epdgui/internal/font"
	"epdgui/internal/gui"
	"epdgui/internal/raster"
	"epdgui/internal/render"
)

const (
	margin     = 4
	ruleHeight = 2
)

// Content is what the board shows.
type Content struct {
	Title string
	Date  string
	Lines []string

	// Status is the footer text (battery, fetch problems); empty hides it.
	Status string
	// Logo is drawn at the right of the footer when set.
	Logo raster.Raster
}

// Board builds element trees for one font and line height.
type Board struct {
	Font *font.Font
	// RowHeight is the agenda line pitch; 0 uses the font height plus 2.
	RowHeight int
}

func (b *Board) rowHeight() int {
	if b.RowHeight > 0 {
		return b.RowHeight
	}
	return b.Font.Height() + 2
}

// HeaderHeight is the height of the title bar above the rule.
func (b *Board) HeaderHeight() int { return b.Font.Height() + margin }

// Build returns the tree for c laid out for size: header (title left, date
// right), a black rule, the agenda lines and a footer. Lines that do not fit
// are replaced by a "+N more" line.
func (b *Board) Build(size image.Point, c Content) gui.Element {
	header := gui.ExpandLeft(b.textWidth(c.Date)+margin,
		b.line(c.Title),
		gui.NewAlign(gui.Start, gui.Center, b.text(c.Date)),
	)

	footerHeight := b.Font.Height()
	var logo gui.Element = gui.NewFill(render.White)
	logoWidth := 0
	if c.Logo != nil {
		img := gui.NewImage(c.Logo)
		footerHeight = max(footerHeight, img.MinSize().Y)
		logoWidth = img.MinSize().X + margin
		logo = gui.NewAlign(gui.Start, gui.Center, img)
	}
	footerHeight += margin
	footer := gui.ExpandLeft(logoWidth, b.line(c.Status), logo)

	bodyHeight := size.Y - b.HeaderHeight() - ruleHeight - footerHeight
	// One spare row keeps the filler below the last line.
	body := b.body(c.Lines, (bodyHeight-1)/b.rowHeight())

	return gui.ExpandBottom(b.HeaderHeight(), header,
		gui.ExpandBottom(ruleHeight, gui.NewFill(render.Black),
			gui.ExpandTop(footerHeight, body, footer)))
}

func (b *Board) body(lines []string, capacity int) gui.Element {
	if len(lines) == 0 {
		return gui.NewAlign(gui.Center, gui.Center, b.text("No upcoming events"))
	}
	lines = fit(lines, capacity)
	rows := make([]gui.Element, 0, len(lines)+1)
	for _, l := range lines {
		rows = append(rows, b.line(l))
	}
	// Absorbs the space below the last line.
	rows = append(rows, gui.NewFill(render.White))
	return gui.Stack(b.rowHeight(), rows...)
}

// fit truncates lines to capacity, replacing the tail with a "+N more" line.
func fit(lines []string, capacity int) []string {
	capacity = max(capacity, 1)
	if len(lines) <= capacity {
		return lines
	}
	more := len(lines) - capacity + 1
	return append(lines[:capacity-1:capacity-1], fmt.Sprintf("+%d more", more))
}

// line is left aligned, vertically centered text behind a margin.
func (b *Board) line(s string) gui.Element {
	return gui.ExpandRight(margin, gui.NewFill(render.White), gui.NewAlign(gui.Start, gui.Center, b.text(s)))
}

func (b *Board) text(s string) gui.Element {
	return gui.NewText(s, b.Font)
}

func (b *Board) textWidth(s string) int {
	w, _ := b.Font.TextSize(s)
	return w
}
