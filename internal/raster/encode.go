package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Encode run-length encodes a width×height image whose pixel (x, y) is
// black when black(x, y) is true. Equal neighbours are merged and runs
// longer than MaxRunLength are split.
func Encode(width, height int, black func(x, y int) bool) *RLEImage {
	img := &RLEImage{
		Width:   width,
		Height:  height,
		Offsets: make([]uint32, 0, height+1),
	}
	img.Offsets = append(img.Offsets, 0)
	for y := 0; y < height; y++ {
		x := 0
		for x < width {
			b := black(x, y)
			n := 1
			for x+n < width && n < MaxRunLength && black(x+n, y) == b {
				n++
			}
			img.Runs = append(img.Runs, PackRun(Run{Length: n, Black: b}))
			x += n
		}
		img.Offsets = append(img.Offsets, uint32(len(img.Runs)))
	}
	return img
}

// EncodeRuns packs decoded runs back into their stored form.
func EncodeRuns(runs []Run) []uint16 {
	out := make([]uint16, len(runs))
	for i, r := range runs {
		out[i] = PackRun(r)
	}
	return out
}

// EncodeImage converts src to an RLEImage. Transparent pixels (alpha < 128)
// are background, opaque pixels darker than mid-gray are black.
func EncodeImage(src image.Image) *RLEImage {
	b := src.Bounds()
	return Encode(b.Dx(), b.Dy(), func(x, y int) bool {
		return isInk(src.At(b.Min.X+x, b.Min.Y+y))
	})
}

func isInk(c color.Color) bool {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A < 128 {
		return false
	}
	// Luma (perceptual brightness).
	y := 0.299*float64(n.R) + 0.587*float64(n.G) + 0.114*float64(n.B)
	return y < 128
}

// LoadImage decodes a PNG, GIF or JPEG file into an RLEImage.
func LoadImage(path string) (*RLEImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("raster: decode %s: %w", path, err)
	}
	return EncodeImage(src), nil
}
