package font

import (
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/golang/freetype/truetype"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"epdgui/internal/raster"
)

// ASCII is the printable ASCII range.
var ASCII = func() []rune {
	rs := make([]rune, 0, 0x7f-0x20)
	for r := rune(0x20); r < 0x7f; r++ {
		rs = append(rs, r)
	}
	return rs
}()

// FromFace rasterizes runes from face into a Font. Runes the face cannot
// draw are left out and render as nothing.
func FromFace(face xfont.Face, runes []rune) *Font {
	m := face.Metrics()
	f := &Font{
		Ascender:  m.Ascent.Ceil(),
		Descender: m.Descent.Ceil(),
	}
	index := make(map[rune]int, len(runes))

	for _, r := range runes {
		if _, dup := index[r]; dup {
			continue
		}
		if _, ok := face.GlyphAdvance(r); !ok {
			continue
		}
		dr, mask, maskp, advance, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		index[r] = len(f.Glyphs)
		f.Glyphs = append(f.Glyphs, Glyph{
			Image:   encodeMask(dr, mask, maskp),
			Left:    dr.Min.X,
			Top:     -dr.Min.Y,
			Advance: advance.Round(),
		})
	}

	f.Index = func(r rune) (int, bool) {
		i, ok := index[r]
		return i, ok
	}
	return f
}

func encodeMask(dr image.Rectangle, mask image.Image, maskp image.Point) *raster.RLEImage {
	if mask == nil {
		return raster.Encode(0, 0, nil)
	}
	return raster.Encode(dr.Dx(), dr.Dy(), func(x, y int) bool {
		_, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA()
		return a >= 0x8000
	})
}

var (
	basicOnce sync.Once
	basic     *Font
)

// Basic returns the built-in 7x13 font covering printable ASCII. It is
// built on first use and shared afterwards.
func Basic() *Font {
	basicOnce.Do(func() {
		basic = FromFace(basicfont.Face7x13, ASCII)
	})
	return basic
}

// LoadTrueType rasterizes a TrueType font file at size points (72 DPI, so
// points equal pixels) for the given runes.
func LoadTrueType(path string, size float64, runes []rune) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("font: parse %s: %w", path, err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	defer face.Close()
	return FromFace(face, runes), nil
}
