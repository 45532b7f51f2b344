package battery

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"epdgui/internal/config"
)

type fakeRegisters map[byte]byte

func (f fakeRegisters) Tx(w, r []byte) error {
	v, ok := f[w[0]]
	if !ok {
		return errors.New("nack")
	}
	r[0] = v
	return nil
}

func TestReadStatus(t *testing.T) {
	st, err := readStatus(fakeRegisters{regVoltageHigh: 0x0f, regVoltageLow: 0xa0, regPercent: 87})
	if err != nil {
		t.Fatal(err)
	}
	if st.Percent != 87 || st.VoltageMv != 4000 {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.String() != "87% 4.00V" {
		t.Fatalf("unexpected string %q", st.String())
	}
}

func TestReadStatusClampsPercent(t *testing.T) {
	st, err := readStatus(fakeRegisters{regVoltageHigh: 0, regVoltageLow: 0, regPercent: 180})
	if err != nil {
		t.Fatal(err)
	}
	if st.Percent != 100 || st.String() != "100%" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestReadStatusError(t *testing.T) {
	if _, err := readStatus(fakeRegisters{regVoltageHigh: 1}); err == nil {
		t.Fatal("expected an error for a missing register")
	}
}

func TestMockReaderRange(t *testing.T) {
	r := NewMockReader(rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		st, err := r.Read(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if st.Percent < 20 || st.Percent > 100 {
			t.Fatalf("percent %d out of range", st.Percent)
		}
	}
}

func TestNew(t *testing.T) {
	if New(config.BatteryConfig{Mode: "off"}) != nil {
		t.Fatal("expected no reader when off")
	}
	if _, ok := New(config.BatteryConfig{Mode: "mock"}).(*mockReader); !ok {
		t.Fatal("expected a mock reader")
	}
	if _, ok := New(config.BatteryConfig{Mode: "i2c", Addr: 0x57}).(*i2cReader); !ok {
		t.Fatal("expected an i2c reader")
	}
}
