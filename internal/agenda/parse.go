package agenda

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "epdgui/internal/log"
)

// Event is a normalized VEVENT. Recurrences are not expanded yet.
type Event struct {
	Source Source

	UID string
	Seq int

	Summary  string
	Location string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule      string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, set on overrides only
}

// IsOverride reports whether ev replaces one instance of a recurring event.
func (ev Event) IsOverride() bool { return ev.Recurrence != nil }

// Parse decodes an ICS payload. Floating times and dates are interpreted in
// floating (time.Local if nil). Malformed events are logged and skipped.
func Parse(src Source, body []byte, floating *time.Location) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("agenda: empty ICS body")
	}
	if floating == nil {
		floating = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("agenda: parse %s: %w", src.ID, err)
	}

	var events []Event
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(src, ve, floating)
		if err != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "reason", err)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, floating *time.Location) (Event, error) {
	ev := Event{Source: src}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			ev.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}

	dtstart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtstart == nil {
		return ev, fmt.Errorf("event %s: missing DTSTART", ev.UID)
	}
	start, allDay, err := propTime(&dtstart.BaseProperty, floating)
	if err != nil {
		return ev, fmt.Errorf("event %s: DTSTART: %w", ev.UID, err)
	}
	ev.Start, ev.AllDay = start, allDay

	switch dtend := ve.GetProperty(ical.ComponentPropertyDtEnd); {
	case dtend != nil:
		end, _, err := propTime(&dtend.BaseProperty, floating)
		if err != nil {
			return ev, fmt.Errorf("event %s: DTEND: %w", ev.UID, err)
		}
		ev.End = end
	case allDay:
		ev.End = start.AddDate(0, 0, 1)
	default:
		ev.End = start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}

	// EXDATE may repeat and each may hold a comma separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := tzid(&p.BaseProperty, floating)
		for _, part := range strings.Split(p.Value, ",") {
			if t, _, err := parseTime(part, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		t, _, err := propTime(&p.BaseProperty, floating)
		if err != nil {
			return ev, fmt.Errorf("event %s: RECURRENCE-ID: %w", ev.UID, err)
		}
		ev.Recurrence = &t
	}

	return ev, nil
}

// propTime parses a DATE or DATE-TIME property honoring its TZID.
func propTime(p *ical.BaseProperty, floating *time.Location) (time.Time, bool, error) {
	t, allDay, err := parseTime(p.Value, tzid(p, floating))
	if err != nil {
		return t, false, err
	}
	if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		allDay = true
	}
	return t, allDay, nil
}

// tzid resolves the TZID parameter, falling back to floating for unknown
// zones.
func tzid(p *ical.BaseProperty, floating *time.Location) *time.Location {
	ids := p.ICalParameters["TZID"]
	if len(ids) == 0 || ids[0] == "" {
		return floating
	}
	loc, err := time.LoadLocation(strings.Trim(ids[0], `"`))
	if err != nil {
		appLog.Debug("ics unknown TZID", "tzid", ids[0])
		return floating
	}
	return loc
}

// parseTime parses the basic ICS forms: UTC date-time, local date-time and
// date. The bool reports a date-only value.
func parseTime(v string, loc *time.Location) (time.Time, bool, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, false, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		t, err := time.Parse("20060102T150405Z", v)
		return t, false, err
	case strings.Contains(v, "T"):
		t, err := time.ParseInLocation("20060102T150405", v, loc)
		return t, false, err
	default:
		t, err := time.ParseInLocation("20060102", v, loc)
		return t, true, err
	}
}
