package board

import (
	"fmt"
	"image"
	"testing"

	"epdgui/internal/font"
	"epdgui/internal/gui"
	"epdgui/internal/raster"
	"epdgui/internal/render"
)

var panel = image.Pt(400, 300)

func layout(c Content) (*gui.Layout, *Board) {
	b := &Board{Font: font.Basic()}
	return gui.NewLayout(panel, b.Build(panel, c)), b
}

func inked(l *gui.Layout, y, from, to int) bool {
	buf := make([]byte, render.BytesPerRow(panel.X))
	row := l.RenderRowInto(buf, render.Clip{Left: 0, Right: panel.X}, y)
	for x := from; x < to; x++ {
		if row.At(x) == render.Black {
			return true
		}
	}
	return false
}

func inkedRows(l *gui.Layout, y0, y1, from, to int) bool {
	for y := y0; y < y1; y++ {
		if inked(l, y, from, to) {
			return true
		}
	}
	return false
}

func TestBuildFitsPanel(t *testing.T) {
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = fmt.Sprintf("Tue 01/07 09:%02d   Event %d", i, i)
	}
	l, _ := layout(Content{Title: "Agenda", Date: "Tue 2025-01-07", Lines: lines, Status: "87%"})
	if got := l.Root().Size(); got != panel {
		t.Fatalf("tree grew beyond the panel: %v", got)
	}
}

func TestBuildHeaderAndRule(t *testing.T) {
	l, b := layout(Content{Title: "Agenda", Date: "Tue 2025-01-07"})
	hh := b.HeaderHeight()

	if !inkedRows(l, 0, hh, 4, 46) {
		t.Fatal("expected the title at the left of the header")
	}
	if !inkedRows(l, 0, hh, 298, 396) {
		t.Fatal("expected the date at the right of the header")
	}
	if inkedRows(l, 0, hh, 50, 290) {
		t.Fatal("expected blank space between title and date")
	}

	buf := make([]byte, render.BytesPerRow(panel.X))
	for y := hh; y < hh+ruleHeight; y++ {
		row := l.RenderRowInto(buf, render.Clip{Left: 0, Right: panel.X}, y)
		for i, v := range row.Bytes() {
			if v != 0x00 {
				t.Fatalf("rule row %d byte %d: expected black, got %#02x", y, i, v)
			}
		}
	}
}

func TestBuildEmptyAgenda(t *testing.T) {
	l, b := layout(Content{Title: "Agenda"})
	top := b.HeaderHeight() + ruleHeight
	if !inkedRows(l, top, 283, 130, 270) {
		t.Fatal("expected a centered placeholder")
	}
}

func TestBuildFooterLogo(t *testing.T) {
	logo := raster.Encode(10, 10, func(int, int) bool { return true })
	l, _ := layout(Content{Title: "Agenda", Status: "87%", Logo: logo})

	if !inked(l, 290, 386, 396) {
		t.Fatal("expected the logo at the right of the footer")
	}
	if !inkedRows(l, 283, 300, 4, 30) {
		t.Fatal("expected the status text at the left of the footer")
	}
}

func TestFit(t *testing.T) {
	lines := []string{"a", "b", "c", "d", "e"}
	tests := []struct {
		capacity int
		want     []string
	}{
		{10, []string{"a", "b", "c", "d", "e"}},
		{5, []string{"a", "b", "c", "d", "e"}},
		{3, []string{"a", "b", "+3 more"}},
		{0, []string{"+5 more"}},
	}
	for _, tt := range tests {
		got := fit(lines, tt.capacity)
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("fit(%d) = %v, want %v", tt.capacity, got, tt.want)
		}
	}
	if lines[2] != "c" {
		t.Fatal("fit must not modify its input")
	}
}
