// Package app wires content sources, the board and a frame sink into a
// refresh cycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"epdgui/internal/agenda"
	"epdgui/internal/battery"
	"epdgui/internal/board"
	"epdgui/internal/epd"
	"epdgui/internal/gui"
	"epdgui/internal/hal"
	appLog "epdgui/internal/log"
	"epdgui/internal/raster"
	"epdgui/internal/render"
)

// Status describes the last refresh.
type Status struct {
	Refreshes   int             `json:"refreshes"`
	LastRefresh time.Time       `json:"last_refresh"`
	Duration    string          `json:"duration,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Entries     int             `json:"entries"`
	Battery     *battery.Status `json:"battery,omitempty"`
}

// Refresher gathers content, builds the board and sends it to Display.
// Refreshes are serialized, so Display is never entered concurrently.
type Refresher struct {
	Display hal.Display
	// Preview, if set, receives a copy of every frame.
	Preview *Capture

	Board   *board.Board
	Agenda  *agenda.Agenda // optional
	Battery battery.Reader // optional

	Title      string
	DateFormat string
	Logo       raster.Raster
	Location   *time.Location

	// PollInterval is the retry interval while the display is busy.
	PollInterval time.Duration

	Now func() time.Time

	mu sync.Mutex

	statusMu sync.RWMutex
	status   Status
	entries  []agenda.Entry
}

// resetter is implemented by displays that can abandon a broken sequence.
type resetter interface {
	Reset()
}

// sleeper is implemented by displays with a low power mode.
type sleeper interface {
	Sleep() error
}

// Sleep waits for any refresh in progress, then puts the display to sleep
// if it supports it. No refresh may start while it runs.
func (r *Refresher) Sleep(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.Display.(sleeper)
	if !ok {
		return nil
	}
	if err := hal.Poll(ctx, r.PollInterval, d.Sleep); err != nil {
		return fmt.Errorf("app: sleep display: %w", err)
	}
	return nil
}

func (r *Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Refresh runs one cycle. Content problems (a failing feed, a missing
// battery) are shown on the board and recorded in the status; only display
// failures are returned.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.now()
	content, entries, bat, contentErr := r.gather(ctx, started)
	err := r.show(ctx, content)

	st := Status{
		LastRefresh: started,
		Duration:    r.now().Sub(started).Round(time.Millisecond).String(),
		Entries:     len(entries),
		Battery:     bat,
	}
	if all := errors.Join(err, contentErr); all != nil {
		st.LastError = all.Error()
	}

	r.statusMu.Lock()
	st.Refreshes = r.status.Refreshes + 1
	r.status = st
	r.entries = entries
	r.statusMu.Unlock()

	if err != nil {
		appLog.Error("refresh failed", err, "duration", st.Duration)
		return err
	}
	appLog.Info("refresh done", "entries", st.Entries, "duration", st.Duration)
	return nil
}

// Status returns the outcome of the last refresh.
func (r *Refresher) Status() Status {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return r.status
}

// Entries returns the agenda entries shown by the last refresh.
func (r *Refresher) Entries() []agenda.Entry {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return append([]agenda.Entry(nil), r.entries...)
}

func (r *Refresher) gather(ctx context.Context, now time.Time) (board.Content, []agenda.Entry, *battery.Status, error) {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	c := board.Content{
		Title: r.Title,
		Date:  now.In(loc).Format(r.DateFormat),
		Logo:  r.Logo,
	}

	var errs []error
	var entries []agenda.Entry
	if r.Agenda != nil {
		var err error
		entries, err = r.Agenda.Upcoming(ctx, now)
		if err != nil {
			errs = append(errs, err)
		}
		for _, e := range entries {
			c.Lines = append(c.Lines, agenda.Line(e))
		}
	}

	var status []string
	var bat *battery.Status
	if r.Battery != nil {
		st, err := r.Battery.Read(ctx)
		if err != nil {
			errs = append(errs, err)
			appLog.Warn("battery read failed", "reason", err)
			status = append(status, "battery ?")
		} else {
			bat = &st
			status = append(status, st.String())
		}
	}
	if len(errs) > 0 {
		status = append(status, "sync error")
	}
	c.Status = strings.Join(status, "  ")

	return c, entries, bat, errors.Join(errs...)
}

func (r *Refresher) show(ctx context.Context, c board.Content) error {
	size := r.Display.Size()
	layout := gui.NewLayout(size, r.Board.Build(size, c))
	buf := make([]byte, render.BytesPerRow(size.X))

	if r.Preview != nil && r.Preview.Size() == size {
		if err := r.frame(ctx, r.Preview, layout, buf); err != nil {
			return fmt.Errorf("app: preview: %w", err)
		}
	}
	if r.Preview == r.Display {
		return nil
	}

	if err := r.frame(ctx, r.Display, layout, buf); err != nil {
		if errors.Is(err, epd.ErrCommunication) {
			if d, ok := r.Display.(resetter); ok {
				appLog.Warn("display communication fault, resetting", "reason", err)
				d.Reset()
			}
		}
		return err
	}
	return nil
}

// frame drives one full frame: bring-up if needed, start, rows, end.
func (r *Refresher) frame(ctx context.Context, d hal.Display, layout *gui.Layout, buf []byte) error {
	if in, ok := d.(hal.Initializer); ok {
		if err := hal.Poll(ctx, r.PollInterval, in.Init); err != nil {
			return fmt.Errorf("app: init display: %w", err)
		}
	}
	if err := hal.Poll(ctx, r.PollInterval, d.StartFrame); err != nil {
		return fmt.Errorf("app: start frame: %w", err)
	}
	if err := layout.Render(d, buf); err != nil {
		return err
	}
	if err := d.EndFrame(); err != nil {
		return fmt.Errorf("app: end frame: %w", err)
	}
	return nil
}
