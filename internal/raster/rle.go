// Package raster holds the immutable images the element tree overlays onto
// a row: run-length encoded images (glyphs, logos) and raw bitmaps.
package raster

import (
	"fmt"

	"epdgui/internal/render"
)

// MaxRunLength is the longest run a packed run can carry.
const MaxRunLength = 0x7fff

const runColorBit = 0x8000

// Raster is an image that can be overlaid transparently onto a row.
type Raster interface {
	Bounds() (width, height int)
	RenderRowTransparent(row *render.Row, clip render.Clip, y, x int)
}

// Run is one decoded span of a row.
type Run struct {
	Length int
	// Black runs are drawn, the others are skipped.
	Black bool
}

// PackRun packs r as 15 bits of length plus the color flag in bit 15.
func PackRun(r Run) uint16 {
	v := uint16(r.Length) & MaxRunLength
	if r.Black {
		v |= runColorBit
	}
	return v
}

// UnpackRun is the inverse of PackRun.
func UnpackRun(v uint16) Run {
	return Run{Length: int(v & MaxRunLength), Black: v&runColorBit != 0}
}

// RLEImage is a run-length encoded monochrome image. Row y is
// Runs[Offsets[y]:Offsets[y+1]].
type RLEImage struct {
	Width, Height int
	Offsets       []uint32
	Runs          []uint16
}

// Bounds implements Raster.
func (img *RLEImage) Bounds() (int, int) {
	return img.Width, img.Height
}

// Validate checks the offset table and that every row spans the width.
func (img *RLEImage) Validate() error {
	if len(img.Offsets) != img.Height+1 {
		return fmt.Errorf("raster: expected %d offsets, got %d", img.Height+1, len(img.Offsets))
	}
	if img.Offsets[0] != 0 {
		return fmt.Errorf("raster: first offset is %d, expected 0", img.Offsets[0])
	}
	for y := 0; y < img.Height; y++ {
		start, end := img.Offsets[y], img.Offsets[y+1]
		if end < start {
			return fmt.Errorf("raster: offsets decrease at row %d", y)
		}
		if int(end) > len(img.Runs) {
			return fmt.Errorf("raster: row %d ends at %d past %d runs", y, end, len(img.Runs))
		}
		sum := 0
		for _, v := range img.Runs[start:end] {
			sum += int(v & MaxRunLength)
		}
		if sum != img.Width {
			return fmt.Errorf("raster: row %d spans %d pixels, expected %d", y, sum, img.Width)
		}
	}
	if int(img.Offsets[img.Height]) != len(img.Runs) {
		return fmt.Errorf("raster: last offset %d does not match %d runs", img.Offsets[img.Height], len(img.Runs))
	}
	return nil
}

func (img *RLEImage) row(y int) []uint16 {
	return img.Runs[img.Offsets[y]:img.Offsets[y+1]]
}

// RowRuns decodes row y. It returns nil for rows outside the image.
func (img *RLEImage) RowRuns(y int) []Run {
	if y < 0 || y >= img.Height {
		return nil
	}
	packed := img.row(y)
	runs := make([]Run, len(packed))
	for i, v := range packed {
		runs[i] = UnpackRun(v)
	}
	return runs
}

// RenderRowTransparent draws row y with its left edge at column x. Only
// black runs touch the row; the background shows through everywhere else.
func (img *RLEImage) RenderRowTransparent(row *render.Row, clip render.Clip, y, x int) {
	if y < 0 || y >= img.Height {
		return
	}
	pos := x
	for _, v := range img.row(y) {
		length := int(v & MaxRunLength)
		if v&runColorBit != 0 {
			row.Fill(clip, pos, pos+length, render.Black)
		}
		pos += length
	}
}
