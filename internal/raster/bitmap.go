package raster

import "epdgui/internal/render"

// BitmapImage is a packed MSB-first 1bpp image; set bits are black.
type BitmapImage struct {
	Width, Height int
	// Stride is the number of bytes per row.
	Stride int
	Data   []byte
}

// Bounds implements Raster.
func (img *BitmapImage) Bounds() (int, int) {
	return img.Width, img.Height
}

// RenderRowTransparent blits row y with its left edge at column x.
func (img *BitmapImage) RenderRowTransparent(row *render.Row, clip render.Clip, y, x int) {
	if y < 0 || y >= img.Height {
		return
	}
	start := y * img.Stride
	row.RenderBitmap(clip, x, x+img.Width, img.Data[start:start+img.Stride])
}
