package font

import (
	"bytes"
	"testing"

	"epdgui/internal/raster"
	"epdgui/internal/render"
)

// testFont has a single glyph 'A' drawn from a 6x3 arrow:
//
//	..##..
//	.####.
//	######
func testFont() *Font {
	arrow := raster.Encode(6, 3, func(x, y int) bool {
		return x >= 2-y && x < 4+y
	})
	return &Font{
		Ascender:  10,
		Descender: 4,
		Glyphs:    []Glyph{{Image: arrow, Left: 1, Top: 2, Advance: 8}},
		Index: func(r rune) (int, bool) {
			if r == 'A' {
				return 0, true
			}
			return 0, false
		},
	}
}

func TestTextSize(t *testing.T) {
	f := testFont()
	tests := []struct {
		text string
		w, h int
	}{
		{"", 0, 14},
		{"A", 8, 14},
		{"AxA", 16, 14},
		{"xyz", 0, 14},
	}
	for _, tt := range tests {
		w, h := f.TextSize(tt.text)
		if w != tt.w || h != tt.h {
			t.Errorf("TextSize(%q) = %d,%d, expected %d,%d", tt.text, w, h, tt.w, tt.h)
		}
	}
}

func TestRenderRowBackgroundOutsideLine(t *testing.T) {
	f := testFont()
	for _, y := range []int{-3, 0, 15, 20} {
		buf := make([]byte, 4)
		row := render.NewRow(buf, 32)
		f.RenderRow(row, row.Full(), "AAAA", y, 0)
		if !bytes.Equal(buf, []byte{0xff, 0xff, 0xff, 0xff}) {
			t.Fatalf("y=%d: expected white row, got % x", y, buf)
		}
	}
}

func TestRenderRowGlyphs(t *testing.T) {
	f := testFont()
	buf := make([]byte, 3)
	row := render.NewRow(buf, 24)
	// y=8 maps to arrow row 0 (8 - 10 + 2).
	f.RenderRow(row, row.Full(), "AxA", 8, 0)

	var black []int
	for x := 0; x < 24; x++ {
		if row.At(x) == render.Black {
			black = append(black, x)
		}
	}
	want := []int{3, 4, 11, 12}
	if len(black) != len(want) {
		t.Fatalf("expected black columns %v, got %v", want, black)
	}
	for i := range want {
		if black[i] != want[i] {
			t.Fatalf("expected black columns %v, got %v", want, black)
		}
	}
}

func TestRenderRowRespectsClip(t *testing.T) {
	f := testFont()
	buf := []byte{0x00, 0x00, 0x00}
	row := render.NewRow(buf, 24)
	f.RenderRow(row, render.Clip{Left: 8, Right: 16}, "AA", 10, 0)

	if buf[0] != 0x00 || buf[2] != 0x00 {
		t.Fatalf("pixels outside the clip changed: % x", buf)
	}
	// Row 2 of the second glyph covers columns 9..14.
	if buf[1] != 0x81 {
		t.Fatalf("expected 0x81 inside the clip, got %#02x", buf[1])
	}
}

func TestBasicFont(t *testing.T) {
	f := Basic()
	if f != Basic() {
		t.Fatal("Basic should return the shared font")
	}
	if len(f.Glyphs) != len(ASCII) {
		t.Fatalf("expected %d glyphs, got %d", len(ASCII), len(f.Glyphs))
	}
	if w, h := f.TextSize("Hi"); w != 14 || h != 13 {
		t.Fatalf("TextSize(Hi) = %d,%d", w, h)
	}
	for _, g := range f.Glyphs {
		if err := g.Image.Validate(); err != nil {
			t.Fatal(err)
		}
	}

	inked := false
	for y := 1; y <= f.Height(); y++ {
		buf := make([]byte, 1)
		row := render.NewRow(buf, 8)
		f.RenderRow(row, row.Full(), "H", y, 0)
		if buf[0] != 0xff {
			inked = true
		}
	}
	if !inked {
		t.Fatal("expected 'H' to draw some pixels")
	}
}
