// Package battery reads the charge of a PiSugar-style UPS board.
package battery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"epdgui/internal/config"
)

// Status is the current battery status.
type Status struct {
	// Percent is the battery level in 0-100%.
	Percent int `json:"percent"`
	// VoltageMv is the battery voltage in millivolts, 0 if unknown.
	VoltageMv int `json:"voltage_mv"`
}

func (s Status) String() string {
	if s.VoltageMv == 0 {
		return fmt.Sprintf("%d%%", s.Percent)
	}
	return fmt.Sprintf("%d%% %.2fV", s.Percent, float64(s.VoltageMv)/1000)
}

// Reader obtains the battery status.
type Reader interface {
	Read(ctx context.Context) (Status, error)
}

// PiSugar registers.
const (
	regVoltageHigh = 0x22
	regVoltageLow  = 0x23
	regPercent     = 0x2A
)

// New returns the Reader selected by cfg, or nil when the battery is off.
func New(cfg config.BatteryConfig) Reader {
	switch cfg.Mode {
	case "i2c":
		return NewI2CReader(cfg.Bus, cfg.Addr)
	case "mock":
		return NewMockReader(rand.New(rand.NewSource(time.Now().UnixNano())))
	default:
		return nil
	}
}

// mockReader is used for development hosts without a UPS board.
type mockReader struct {
	rnd *rand.Rand
}

// NewMockReader returns a Reader reporting pseudo-random levels between 20%
// and 100%.
func NewMockReader(rnd *rand.Rand) Reader {
	return &mockReader{rnd: rnd}
}

func (m *mockReader) Read(_ context.Context) (Status, error) {
	return Status{Percent: 20 + m.rnd.Intn(81)}, nil
}

// i2cReader talks to the battery controller over I2C. The bus is opened for
// each read.
type i2cReader struct {
	busName string
	addr    uint16
}

// NewI2CReader returns an I2C-backed Reader. An empty busName selects the
// first bus (/dev/i2c-1 on a Raspberry Pi).
func NewI2CReader(busName string, addr uint16) Reader {
	return &i2cReader{busName: busName, addr: addr}
}

func (r *i2cReader) Read(ctx context.Context) (Status, error) {
	if runtime.GOOS != "linux" {
		return Status{}, errors.New("battery: i2c reader unavailable on this platform")
	}
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	if _, err := host.Init(); err != nil {
		return Status{}, fmt.Errorf("battery: host init: %w", err)
	}

	bus, err := i2creg.Open(r.busName)
	if err != nil {
		return Status{}, fmt.Errorf("battery: open i2c bus %q: %w", r.busName, err)
	}
	defer bus.Close()

	return readStatus(&i2c.Dev{Bus: bus, Addr: r.addr})
}

// registers is the register access readStatus needs; an *i2c.Dev is one.
type registers interface {
	Tx(w, r []byte) error
}

func readStatus(dev registers) (Status, error) {
	readReg := func(reg byte) (byte, error) {
		buf := []byte{0}
		if err := dev.Tx([]byte{reg}, buf); err != nil {
			return 0, fmt.Errorf("battery: read register %#02x: %w", reg, err)
		}
		return buf[0], nil
	}

	high, err := readReg(regVoltageHigh)
	if err != nil {
		return Status{}, err
	}
	low, err := readReg(regVoltageLow)
	if err != nil {
		return Status{}, err
	}
	pct, err := readReg(regPercent)
	if err != nil {
		return Status{}, err
	}

	return Status{
		Percent:   int(min(pct, 100)),
		VoltageMv: int(uint16(high)<<8 | uint16(low)),
	}, nil
}
