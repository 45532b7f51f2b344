package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
)

// Capture is a frame sink that keeps the last frame as an image instead of
// driving a panel. It serves hosts without a panel and the HTTP preview.
type Capture struct {
	size image.Point

	mu     sync.Mutex
	frame  *image.Gray // last complete frame, never modified once published
	cur    *image.Gray
	window image.Rectangle
	y      int
	frames int
}

// NewCapture returns a Capture of the given size.
func NewCapture(size image.Point) *Capture {
	return &Capture{size: size}
}

func (c *Capture) Size() image.Point { return c.size }

func (c *Capture) StartFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = image.NewGray(image.Rectangle{Max: c.size})
	c.window = c.cur.Rect
	c.y = 0
	return nil
}

func (c *Capture) DrawRow(row []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawRow(row)
}

func (c *Capture) EndFrame() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publish()
}

// StartPartial starts a window update on top of the last frame.
func (c *Capture) StartPartial(r image.Rectangle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = image.NewGray(image.Rectangle{Max: c.size})
	if c.frame != nil {
		copy(c.cur.Pix, c.frame.Pix)
	} else {
		for i := range c.cur.Pix {
			c.cur.Pix[i] = 0xff
		}
	}
	c.window = r.Intersect(c.cur.Rect)
	c.y = c.window.Min.Y
	return nil
}

func (c *Capture) DrawPartialRow(row []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawRow(row)
}

func (c *Capture) EndPartial() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publish()
}

func (c *Capture) drawRow(row []byte) error {
	if c.cur == nil {
		return errors.New("app: capture row outside a frame")
	}
	if c.y >= c.window.Max.Y {
		return fmt.Errorf("app: capture row %d past the frame end", c.y)
	}
	if len(row)*8 < c.size.X {
		panic(fmt.Sprintf("app: capture row of %d bytes for width %d", len(row), c.size.X))
	}
	for x := c.window.Min.X; x < c.window.Max.X; x++ {
		// MSB first, a set bit is white.
		v := uint8(0x00)
		if row[x>>3]&(0x80>>(x&7)) != 0 {
			v = 0xff
		}
		c.cur.SetGray(x, c.y, color.Gray{Y: v})
	}
	c.y++
	return nil
}

func (c *Capture) publish() error {
	if c.cur == nil {
		return errors.New("app: capture frame was not started")
	}
	if c.y != c.window.Max.Y {
		return fmt.Errorf("app: capture frame ended after %d of %d rows", c.y-c.window.Min.Y, c.window.Dy())
	}
	c.frame, c.cur = c.cur, nil
	c.frames++
	return nil
}

// Frame returns the last complete frame, or nil before the first one.
func (c *Capture) Frame() *image.Gray {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Frames is the number of frames published so far.
func (c *Capture) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// WritePNG encodes the last frame.
func (c *Capture) WritePNG(w io.Writer) error {
	f := c.Frame()
	if f == nil {
		return errors.New("app: no frame captured yet")
	}
	return png.Encode(w, f)
}
