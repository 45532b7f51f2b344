// Package agenda fetches ICS subscriptions and turns them into a sorted list
// of upcoming entries for the board.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "epdgui/internal/log"
)

// Agenda collects the entries of a fixed set of sources.
type Agenda struct {
	Fetcher  *Fetcher
	Sources  []Source
	Location *time.Location
	Horizon  time.Duration
}

// Upcoming fetches, parses and expands every source for [now, now+Horizon).
// Sources that fail are skipped; their errors are joined into err while the
// entries of the remaining sources are still returned.
func (a *Agenda) Upcoming(ctx context.Context, now time.Time) ([]Entry, error) {
	loc := a.Location
	if loc == nil {
		loc = time.Local
	}
	results, errs := a.Fetcher.FetchAll(ctx, a.Sources)

	var events []Event
	for _, res := range results {
		evs, err := Parse(res.Source, res.Body, loc)
		if err != nil {
			errs = append(errs, err)
			appLog.Error("ics parse failed", err, "id", res.Source.ID)
			continue
		}
		events = append(events, evs...)
	}

	// Start of today, so that all-day entries of today are listed.
	now = now.In(loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	entries, _, err := Expand(events, ExpandConfig{
		Location:   loc,
		RangeStart: from,
		RangeEnd:   now.Add(a.Horizon),
	})
	if err != nil {
		return nil, err
	}

	// Drop timed entries already over.
	upcoming := entries[:0]
	for _, e := range entries {
		if e.AllDay || e.End.After(now) {
			upcoming = append(upcoming, e)
		}
	}
	appLog.Info("agenda collected", "sources", len(a.Sources), "events", len(events), "entries", len(upcoming))
	return upcoming, errors.Join(errs...)
}

// Line formats e as a single board line, e.g. "Tue 01/07 09:30 Standup" or
// "Tue 01/07 all-day Holiday".
func Line(e Entry) string {
	when := e.Start.Format("15:04")
	if e.AllDay {
		when = "all-day"
	}
	return fmt.Sprintf("%s %-7s %s", e.Start.Format("Mon 01/02"), when, e.Summary)
}
