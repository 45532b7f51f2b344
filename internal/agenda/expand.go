package agenda

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "epdgui/internal/log"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// Location is the zone entries are converted to. Nil means time.Local.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrences, inclusive.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single rule. Zero means 5000.
	MaxOccurrencesPerEvent int
}

// Entry is one concrete occurrence, ready to be listed on the board.
type Entry struct {
	SourceID string
	UID      string
	Summary  string
	Location string
	AllDay   bool
	Start    time.Time
	End      time.Time
}

// Expand turns events into the occurrences intersecting the configured
// range, sorted by start time. It applies RRULE, EXDATE and RECURRENCE-ID
// overrides. UIDs whose rule hit the cap are returned as truncated.
func Expand(events []Event, cfg ExpandConfig) (entries []Entry, truncated []string, err error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, nil, errors.New("agenda: range end is before range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID.
	var uids []string
	base := make(map[string][]Event)
	overrides := make(map[string][]Event)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, ok := base[ev.UID]; !ok {
			uids = append(uids, ev.UID)
		}
		base[ev.UID] = append(base[ev.UID], ev)
	}

	for _, uid := range uids {
		hitCap := false
		for _, ev := range base[uid] {
			occ, capped := expandEvent(ev, overrides[uid], cfg)
			hitCap = hitCap || capped
			entries = append(entries, occ...)
		}
		if hitCap {
			truncated = append(truncated, uid)
			appLog.Warn("ics occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	SortEntries(entries)
	return entries, truncated, nil
}

// SortEntries orders entries by start, all-day entries first on equal
// starts, then by summary.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		return a.Summary < b.Summary
	})
}

func expandEvent(ev Event, overrides []Event, cfg ExpandConfig) ([]Entry, bool) {
	if ev.RRule == "" {
		return expandSingle(ev, overrides, cfg), false
	}
	return expandRecurring(ev, overrides, cfg)
}

func expandSingle(ev Event, overrides []Event, cfg ExpandConfig) []Entry {
	if !overlaps(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	start, end := ev.Start, ev.End
	if o, ok := findOverride(overrides, start); ok {
		start, end, ev = o.Start, o.End, o
	}
	return []Entry{makeEntry(ev, start, end, cfg.Location)}
}

func expandRecurring(ev Event, overrides []Event, cfg ExpandConfig) ([]Entry, bool) {
	loc := ev.Start.Location()
	r, err := newRule(ev.RRule, ev.Start)
	if err != nil {
		appLog.Error("ics invalid RRULE", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil, false
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(loc))
	}

	// Start the window one event length early so that occurrences already
	// running at RangeStart are kept.
	dur := ev.End.Sub(ev.Start)
	times := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Entry, 0, len(times))
	for _, start := range times {
		var end time.Time
		if ev.AllDay {
			// All-day: [date 00:00, next day 00:00) in the event's zone.
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
			end = start.AddDate(0, 0, max(1, int(dur.Hours()/24)))
		} else {
			end = start.Add(dur)
		}

		occ := ev
		if o, ok := findOverride(overrides, start); ok {
			start, end, occ = o.Start, o.End, o
		}
		if !overlaps(start, end, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeEntry(occ, start, end, cfg.Location))
	}
	return out, hitCap
}

// newRule builds the rule from options so that defaults such as the
// weekday of a WEEKLY rule derive from dtstart.
func newRule(raw string, dtstart time.Time) (*rrule.RRule, error) {
	opt, err := rrule.StrToROptionInLocation(raw, dtstart.Location())
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtstart
	return rrule.NewRRule(*opt)
}

// findOverride returns the override whose RECURRENCE-ID is the instance
// starting at start.
func findOverride(overrides []Event, start time.Time) (Event, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

func makeEntry(ev Event, start, end time.Time, loc *time.Location) Entry {
	return Entry{
		SourceID: ev.Source.ID,
		UID:      ev.UID,
		Summary:  ev.Summary,
		Location: ev.Location,
		AllDay:   ev.AllDay,
		Start:    start.In(loc),
		End:      end.In(loc),
	}
}

// overlaps reports whether [aStart, aEnd] touches [bStart, bEnd]. An event
// ending exactly at bStart does not count.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(bStart) && !aStart.Equal(bStart) {
		return false
	}
	return !bEnd.Before(aStart)
}
