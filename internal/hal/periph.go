package hal

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// PeriphConfig names the SPI port and GPIO lines a panel is wired to.
type PeriphConfig struct {
	// SPIPort is the periph port name; "" selects the first port
	// (typically /dev/spidev0.0 on a Raspberry Pi).
	SPIPort string
	// SPIHz is the SPI clock frequency.
	SPIHz physic.Frequency

	Busy  string
	Reset string
	DC    string
	CS    string
}

// Periph bundles the periph.io handles a panel driver needs.
type Periph struct {
	Bus   spi.Conn
	Busy  gpio.PinIO
	Reset gpio.PinIO
	DC    gpio.PinIO
	CS    gpio.PinIO

	port spi.PortCloser
}

// OpenPeriph initializes periph.io, connects the SPI port in mode 0 with 8
// bit words and configures the control lines. Output lines start high,
// which is the inactive level for reset and chip select.
func OpenPeriph(cfg PeriphConfig) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hal: periph host init failed: %w", err)
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("hal: failed to open SPI port %q: %w", cfg.SPIPort, err)
	}

	hz := cfg.SPIHz
	if hz <= 0 {
		hz = 2 * physic.MegaHertz
	}
	conn, err := port.Connect(hz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("hal: failed to connect SPI: %w", err)
	}

	p := &Periph{Bus: conn, port: port}

	outputs := []struct {
		name string
		dst  *gpio.PinIO
	}{
		{cfg.Reset, &p.Reset},
		{cfg.DC, &p.DC},
		{cfg.CS, &p.CS},
	}
	for _, o := range outputs {
		pin, err := pinByName(o.name)
		if err != nil {
			_ = port.Close()
			return nil, err
		}
		if err := pin.Out(gpio.High); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("hal: gpio %s Out failed: %w", o.name, err)
		}
		*o.dst = pin
	}

	busy, err := pinByName(cfg.Busy)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("hal: gpio %s In failed: %w", cfg.Busy, err)
	}
	p.Busy = busy

	return p, nil
}

// Close releases the SPI port. periph.io pins need no explicit release.
func (p *Periph) Close() error {
	if p.port == nil {
		return nil
	}
	return p.port.Close()
}

func pinByName(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, fmt.Errorf("hal: gpio name is empty")
	}
	pin := gpioreg.ByName(name)
	if pin == nil || pin == gpio.INVALID {
		return nil, fmt.Errorf("hal: gpio %s not found", name)
	}
	return pin, nil
}
