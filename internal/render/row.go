// Package render composes one 1bpp scanline at a time.
//
// Packing rule, shared by every writer in this module and by the panel's
// black/white plane:
//
//	byteIndex = x >> 3
//	mask      = 0x80 >> (x & 7)   (leftmost pixel is the MSB)
//	bit set   = White, bit clear = Black
package render

import "fmt"

// Color is a monochrome pixel value.
type Color uint8

const (
	Black Color = iota
	White
)

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// Clip is a half-open column interval [Left, Right). Left >= Right is a
// valid empty clip.
type Clip struct {
	Left, Right int
}

// Clip intersects c with [left, right).
func (c Clip) Clip(left, right int) Clip {
	return Clip{Left: max(c.Left, left), Right: min(c.Right, right)}
}

// Empty reports whether the clip covers no column.
func (c Clip) Empty() bool {
	return c.Left >= c.Right
}

// Row is a scanline buffer. It does not own the bytes; the caller keeps the
// buffer for exactly one render pass.
type Row struct {
	buf   []byte
	width int
}

// BytesPerRow is the buffer size needed for width pixels.
func BytesPerRow(width int) int {
	return (width + 7) / 8
}

// NewRow wraps buf for a row of width pixels. A buffer that cannot hold the
// row is a caller bug and panics.
func NewRow(buf []byte, width int) *Row {
	if width < 0 || len(buf) < BytesPerRow(width) {
		panic(fmt.Sprintf("render: row buffer of %d bytes is too short for %d pixels", len(buf), width))
	}
	return &Row{buf: buf, width: width}
}

// Width is the row width in pixels.
func (r *Row) Width() int { return r.width }

// Bytes returns the packed row.
func (r *Row) Bytes() []byte { return r.buf[:BytesPerRow(r.width)] }

// Full is the clip covering the whole row.
func (r *Row) Full() Clip { return Clip{Left: 0, Right: r.width} }

// Clear sets every byte of the row to c.
func (r *Row) Clear(c Color) {
	var v byte
	if c == White {
		v = 0xff
	}
	b := r.Bytes()
	for i := range b {
		b[i] = v
	}
}

// At returns the color of column x, which must be inside the row.
func (r *Row) At(x int) Color {
	if r.buf[x>>3]&(0x80>>(x&7)) != 0 {
		return White
	}
	return Black
}

// Fill paints [left, right) ∩ clip with c. Columns outside the row are
// ignored.
func (r *Row) Fill(clip Clip, left, right int, c Color) {
	span := clip.Clip(left, right).Clip(0, r.width)
	if span.Empty() {
		return
	}

	first := span.Left >> 3
	last := (span.Right - 1) >> 3
	leftMask := byte(0xff) >> (span.Left & 7)
	rightMask := byte(0xff) << (7 - ((span.Right - 1) & 7))

	if first == last {
		r.apply(first, leftMask&rightMask, c)
		return
	}

	r.apply(first, leftMask, c)
	var full byte
	if c == White {
		full = 0xff
	}
	for i := first + 1; i < last; i++ {
		r.buf[i] = full
	}
	r.apply(last, rightMask, c)
}

func (r *Row) apply(i int, mask byte, c Color) {
	if c == White {
		r.buf[i] |= mask
	} else {
		r.buf[i] &^= mask
	}
}

// RenderBitmap overlays a packed MSB-first bitmap row onto [left, right).
// Set bits draw Black; clear bits leave the row untouched.
func (r *Row) RenderBitmap(clip Clip, left, right int, bits []byte) {
	span := clip.Clip(left, right).Clip(0, r.width)
	for x := span.Left; x < span.Right; x++ {
		i := x - left
		if i>>3 >= len(bits) {
			return
		}
		if bits[i>>3]&(0x80>>(i&7)) != 0 {
			r.buf[x>>3] &^= 0x80 >> (x & 7)
		}
	}
}
