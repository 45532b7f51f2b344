// Package hal declares the hardware capabilities the panel driver consumes
// and the frame sink contracts it exposes to the renderer.
//
// The consumed contracts are shaped after periph.io so that a spi.Conn and a
// gpio.PinIO can be handed to the driver without adapters. Everything is
// poll-driven: operations that would have to wait return ErrWouldBlock and
// are expected to be called again later.
package hal

import (
	"errors"
	"image"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// ErrWouldBlock is returned by poll-driven operations that are not ready yet.
// It is not a failure; the caller must retry.
var ErrWouldBlock = errors.New("hal: operation would block")

// Bus is a full-duplex byte bus. Tx writes w and reads len(r) bytes at the
// same time; r may be nil.
type Bus interface {
	Tx(w, r []byte) error
}

// OutputPin drives a digital line.
type OutputPin interface {
	Out(l gpio.Level) error
}

// InputPin samples a digital line.
type InputPin interface {
	Read() gpio.Level
}

// CountDown is a one-shot timer expiring after one period of the requested
// frequency.
type CountDown interface {
	// Start (re)arms the timer.
	Start(f physic.Frequency)

	// Wait returns nil once the timer expired and ErrWouldBlock before that.
	Wait() error
}

// Display is the frame sink a renderer feeds one 1bpp row at a time.
type Display interface {
	// Size is the panel size in pixels.
	Size() image.Point

	// StartFrame returns ErrWouldBlock while the panel is still busy.
	StartFrame() error

	// DrawRow sends one full row in raster order.
	DrawRow(row []byte) error

	// EndFrame finishes the frame and triggers the refresh.
	EndFrame() error
}

// PartialRefresher is implemented by displays able to update a window.
type PartialRefresher interface {
	StartPartial(r image.Rectangle) error
	DrawPartialRow(row []byte) error
	EndPartial() error
}

// PartialDisplay is a Display with partial refresh support.
type PartialDisplay interface {
	Display
	PartialRefresher
}

// Initializer is implemented by displays that need a poll-driven bring-up
// before the first frame.
type Initializer interface {
	Init() error
}
