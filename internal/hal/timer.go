package hal

import (
	"context"
	"errors"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Timer is a CountDown backed by the wall clock.
type Timer struct {
	now      func() time.Time
	sleep    func(time.Duration)
	deadline time.Time
	armed    bool
}

// NewTimer returns a wall-clock CountDown.
func NewTimer() *Timer {
	return &Timer{now: time.Now, sleep: time.Sleep}
}

// Start arms the timer for one period of f. A zero frequency expires
// immediately.
func (t *Timer) Start(f physic.Frequency) {
	var period time.Duration
	if f > 0 {
		period = f.Period()
	}
	t.deadline = t.now().Add(period)
	t.armed = true
}

// Wait implements CountDown. An unarmed timer counts as expired.
func (t *Timer) Wait() error {
	if !t.armed {
		return nil
	}
	if t.now().Before(t.deadline) {
		return ErrWouldBlock
	}
	t.armed = false
	return nil
}

// block sleeps until the deadline instead of spinning.
func (t *Timer) block() {
	if !t.armed {
		return
	}
	if d := t.deadline.Sub(t.now()); d > 0 {
		t.sleep(d)
	}
	t.armed = false
}

// Block waits until c expires. Wall-clock timers sleep, anything else is
// polled.
func Block(c CountDown) {
	if t, ok := c.(*Timer); ok {
		t.block()
		return
	}
	for errors.Is(c.Wait(), ErrWouldBlock) {
	}
}

// Poll calls fn until it stops returning ErrWouldBlock, sleeping interval
// between attempts. It returns fn's final error, or ctx.Err() if the context
// ends first.
func Poll(ctx context.Context, interval time.Duration, fn func() error) error {
	for {
		err := fn()
		if !errors.Is(err, ErrWouldBlock) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
