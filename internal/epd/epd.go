// Package epd drives a GDEW042Z15 4.2" e-paper panel (400x300, UC8176
// class controller) over SPI with separate busy, reset, data/command and
// chip select lines.
//
// The driver never waits for the panel: bring-up and frame start return
// hal.ErrWouldBlock while the busy line is low and must be called again.
// The only blocking calls are the fixed settle delays of the frame
// sequence (2ms, 10ms).
package epd

import (
	"errors"
	"fmt"
	"image"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"epdgui/internal/hal"
	appLog "epdgui/internal/log"
)

// Panel geometry.
const (
	Width       = 400
	Height      = 300
	BytesPerRow = Width / 8
	PlaneSize   = BytesPerRow * Height
)

// Settle delays, expressed as timer frequencies.
const (
	resetPeriod  = 10 * physic.Hertz  // 100ms
	settlePeriod = 500 * physic.Hertz // 2ms
	gracePeriod  = 100 * physic.Hertz // 10ms
)

// redPlaneByte fills the unused second color plane.
const redPlaneByte = 0xff

var (
	// ErrCommunication matches every *BusError.
	ErrCommunication = errors.New("epd: communication fault")

	// ErrNotInitialized is returned by frame operations before Init
	// completed.
	ErrNotInitialized = errors.New("epd: panel is not initialized")
)

// BusError reports a failed bus exchange or control line update. After a
// BusError the command/data framing is no longer trustworthy; the caller
// should Reset the driver and run Init again.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("epd: %s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

func (e *BusError) Is(target error) bool { return target == ErrCommunication }

// InitState is the bring-up progress of the panel.
type InitState uint8

const (
	Uninitialized InitState = iota
	Resetting1
	Resetting2
	Resetting3
	Initialized
)

func (s InitState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Resetting1:
		return "resetting1"
	case Resetting2:
		return "resetting2"
	case Resetting3:
		return "resetting3"
	case Initialized:
		return "initialized"
	default:
		return fmt.Sprintf("InitState(%d)", uint8(s))
	}
}

// Driver is a GDEW042Z15 panel. It is not safe for concurrent use.
type Driver struct {
	bus   hal.Bus
	busy  hal.InputPin
	reset hal.OutputPin
	dc    hal.OutputPin
	cs    hal.OutputPin
	timer hal.CountDown

	state InitState
	// transitions counts init state changes; only tests read it.
	transitions int

	// window is the byte aligned partial refresh window; partialOut is set
	// while the controller is still in partial mode after EndPartial.
	window     image.Rectangle
	partialOut bool

	tx, rx [1]byte
}

// New returns a driver in the Uninitialized state. Reset, data/command and
// chip select are driven high.
func New(bus hal.Bus, busy hal.InputPin, reset, dc, cs hal.OutputPin, timer hal.CountDown) (*Driver, error) {
	d := &Driver{
		bus:   bus,
		busy:  busy,
		reset: reset,
		dc:    dc,
		cs:    cs,
		timer: timer,
	}
	for _, p := range []struct {
		name string
		pin  hal.OutputPin
	}{{"reset", reset}, {"data/command", dc}, {"chip select", cs}} {
		if err := p.pin.Out(gpio.High); err != nil {
			return nil, &BusError{Op: "set " + p.name + " high", Err: err}
		}
	}
	return d, nil
}

// Size implements hal.Display.
func (d *Driver) Size() image.Point {
	return image.Pt(Width, Height)
}

// State returns the bring-up state.
func (d *Driver) State() InitState {
	return d.state
}

// Reset forces the bring-up sequence back to the start. It is the only way
// to abandon a sequence in progress.
func (d *Driver) Reset() {
	d.state = Uninitialized
	d.partialOut = false
}

// Init advances the bring-up sequence as far as it can without waiting. It
// returns nil once the panel is initialized and hal.ErrWouldBlock while it
// waits for the busy line or the reset timer.
func (d *Driver) Init() error {
	for range Initialized {
		if d.state == Initialized {
			return nil
		}
		if err := d.step(); err != nil {
			return err
		}
	}
	return nil
}

// step performs at most one state transition.
func (d *Driver) step() error {
	switch d.state {
	case Uninitialized:
		if d.isBusy() {
			return hal.ErrWouldBlock
		}
		if err := d.setPin(d.reset, "reset", gpio.Low); err != nil {
			return err
		}
		d.timer.Start(resetPeriod)
		d.advance(Resetting1)

	case Resetting1:
		if err := d.timer.Wait(); err != nil {
			return err
		}
		if err := d.setPin(d.reset, "reset", gpio.High); err != nil {
			return err
		}
		d.timer.Start(resetPeriod)
		d.advance(Resetting2)

	case Resetting2:
		if err := d.timer.Wait(); err != nil {
			return err
		}
		if err := d.command(BoosterSoftStart, 0x17, 0x17, 0x17); err != nil {
			return err
		}
		if err := d.command(PowerOn); err != nil {
			return err
		}
		d.advance(Resetting3)

	case Resetting3:
		if d.isBusy() {
			return hal.ErrWouldBlock
		}
		if err := d.command(PanelSetting, 0x0f); err != nil {
			return err
		}
		d.advance(Initialized)
	}
	return nil
}

func (d *Driver) advance(next InitState) {
	appLog.Debug("epd init transition", "from", d.state, "to", next)
	d.state = next
	d.transitions++
}

// isBusy reports whether the panel is still processing; busy is active low.
func (d *Driver) isBusy() bool {
	return d.busy.Read() == gpio.Low
}

// ready is the common guard of operations that issue a new command sequence.
func (d *Driver) ready() error {
	if d.state != Initialized {
		return ErrNotInitialized
	}
	if d.isBusy() {
		return hal.ErrWouldBlock
	}
	if d.partialOut {
		if err := d.command(PartialOut); err != nil {
			return err
		}
		d.partialOut = false
	}
	return nil
}

// StartFrame implements hal.Display.
func (d *Driver) StartFrame() error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.command(DataStartTransmission1); err != nil {
		return err
	}
	d.delay(settlePeriod)
	return nil
}

// DrawRow implements hal.Display. row must hold at least BytesPerRow bytes;
// a shorter row is a caller bug and panics.
func (d *Driver) DrawRow(row []byte) error {
	mustFullRow(row)
	return d.data(row[:BytesPerRow]...)
}

// EndFrame implements hal.Display. It sends the mandatory second plane,
// triggers the refresh and blocks for a short grace period so the busy line
// is asserted before the next StartFrame polls it.
func (d *Driver) EndFrame() error {
	if err := d.sendRedPlane(PlaneSize); err != nil {
		return err
	}
	if err := d.command(DisplayRefresh); err != nil {
		return err
	}
	d.delay(gracePeriod)
	appLog.Info("epd refresh started", "mode", "full")
	return nil
}

func (d *Driver) sendRedPlane(n int) error {
	d.delay(settlePeriod)
	if err := d.command(DataStartTransmission2); err != nil {
		return err
	}
	d.delay(settlePeriod)
	for i := 0; i < n; i++ {
		if err := d.data(redPlaneByte); err != nil {
			return err
		}
	}
	d.delay(settlePeriod)
	return nil
}

// StartPartial implements hal.PartialRefresher. The window is widened to
// whole bytes horizontally and clamped to the panel.
func (d *Driver) StartPartial(r image.Rectangle) error {
	r = r.Intersect(image.Rect(0, 0, Width, Height))
	if r.Empty() {
		return fmt.Errorf("epd: partial window %v is outside the panel", r)
	}
	if err := d.ready(); err != nil {
		return err
	}
	r.Min.X &^= 7
	r.Max.X = (r.Max.X + 7) &^ 7

	hrst, hred := r.Min.X, r.Max.X-1
	vrst, vred := r.Min.Y, r.Max.Y-1
	if err := d.command(PartialIn); err != nil {
		return err
	}
	if err := d.command(PartialWindow,
		byte(hrst>>8), byte(hrst&0xf8),
		byte(hred>>8), byte(hred&0xf8)|0x07,
		byte(vrst>>8), byte(vrst),
		byte(vred>>8), byte(vred),
		0x01, // scan inside and outside the window
	); err != nil {
		return err
	}
	if err := d.command(DataStartTransmission1); err != nil {
		return err
	}
	d.window = r
	d.delay(settlePeriod)
	return nil
}

// DrawPartialRow implements hal.PartialRefresher. row is a full panel row;
// only the window's columns are sent.
func (d *Driver) DrawPartialRow(row []byte) error {
	mustFullRow(row)
	return d.data(row[d.window.Min.X/8 : d.window.Max.X/8]...)
}

// EndPartial implements hal.PartialRefresher. The controller leaves partial
// mode on the next command sequence, once the refresh has finished.
func (d *Driver) EndPartial() error {
	if err := d.sendRedPlane(d.window.Dx() / 8 * d.window.Dy()); err != nil {
		return err
	}
	if err := d.command(DisplayRefresh); err != nil {
		return err
	}
	d.partialOut = true
	d.delay(gracePeriod)
	appLog.Info("epd refresh started", "mode", "partial", "window", d.window)
	return nil
}

// Sleep powers the panel down into deep sleep. Only a reset wakes it, so
// the driver returns to Uninitialized.
func (d *Driver) Sleep() error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.command(PowerOff); err != nil {
		return err
	}
	if err := d.command(DeepSleep, 0xA5); err != nil {
		return err
	}
	d.state = Uninitialized
	appLog.Info("epd deep sleep")
	return nil
}

func mustFullRow(row []byte) {
	if len(row) < BytesPerRow {
		panic(fmt.Sprintf("epd: row of %d bytes, panel needs %d", len(row), BytesPerRow))
	}
}

func (d *Driver) delay(f physic.Frequency) {
	d.timer.Start(f)
	hal.Block(d.timer)
}

// command sends c followed by its parameter bytes.
func (d *Driver) command(c Command, params ...byte) error {
	if err := d.write(gpio.Low, byte(c)); err != nil {
		return fmt.Errorf("epd: command %s: %w", c, err)
	}
	if err := d.data(params...); err != nil {
		return fmt.Errorf("epd: command %s: %w", c, err)
	}
	return nil
}

func (d *Driver) data(bs ...byte) error {
	for _, b := range bs {
		if err := d.write(gpio.High, b); err != nil {
			return err
		}
	}
	return nil
}

// write exchanges a single byte. Chip select frames exactly one byte; the
// controller requires it to be released between bytes.
func (d *Driver) write(dc gpio.Level, b byte) error {
	if err := d.setPin(d.dc, "data/command", dc); err != nil {
		return err
	}
	if err := d.setPin(d.cs, "chip select", gpio.Low); err != nil {
		return err
	}
	d.tx[0] = b
	txErr := d.bus.Tx(d.tx[:], d.rx[:])
	csErr := d.setPin(d.cs, "chip select", gpio.High)
	if txErr != nil {
		return &BusError{Op: "spi exchange", Err: txErr}
	}
	return csErr
}

func (d *Driver) setPin(p hal.OutputPin, name string, l gpio.Level) error {
	if err := p.Out(l); err != nil {
		return &BusError{Op: fmt.Sprintf("set %s %s", name, l), Err: err}
	}
	return nil
}
