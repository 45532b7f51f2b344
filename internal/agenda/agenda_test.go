package agenda

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"
)

const fixture = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//epdgui//test//EN
BEGIN:VEVENT
UID:standup@example.com
DTSTART;TZID=Europe/Berlin:20250106T093000
DTEND;TZID=Europe/Berlin:20250106T094500
RRULE:FREQ=DAILY;COUNT=5
EXDATE;TZID=Europe/Berlin:20250108T093000
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:standup@example.com
RECURRENCE-ID;TZID=Europe/Berlin:20250109T093000
DTSTART;TZID=Europe/Berlin:20250109T110000
DTEND;TZID=Europe/Berlin:20250109T111500
SUMMARY:Standup (moved)
END:VEVENT
BEGIN:VEVENT
UID:holiday@example.com
DTSTART;VALUE=DATE:20250107
DTEND;VALUE=DATE:20250108
SUMMARY:Holiday
END:VEVENT
BEGIN:VEVENT
UID:review@example.com
DTSTART:20250110T130000Z
DTEND:20250110T140000Z
SUMMARY:Review
END:VEVENT
BEGIN:VEVENT
SUMMARY:No UID
DTSTART:20250110T130000Z
END:VEVENT
END:VCALENDAR
`

func ics() []byte {
	return []byte(strings.ReplaceAll(fixture, "\n", "\r\n"))
}

func utc(day, hour, minute int) time.Time {
	return time.Date(2025, time.January, day, hour, minute, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	events, err := Parse(Source{ID: "test"}, ics(), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events (one without UID skipped), got %d", len(events))
	}

	standup := events[0]
	if standup.RRule != "FREQ=DAILY;COUNT=5" || standup.IsOverride() {
		t.Fatalf("unexpected base event %+v", standup)
	}
	if !standup.Start.Equal(utc(6, 8, 30)) || !standup.End.Equal(utc(6, 8, 45)) {
		t.Fatalf("TZID not honored: %v - %v", standup.Start, standup.End)
	}
	if len(standup.ExDates) != 1 || !standup.ExDates[0].Equal(utc(8, 8, 30)) {
		t.Fatalf("unexpected exdates %v", standup.ExDates)
	}

	moved := events[1]
	if !moved.IsOverride() || !moved.Recurrence.Equal(utc(9, 8, 30)) {
		t.Fatalf("unexpected override %+v", moved)
	}

	holiday := events[2]
	if !holiday.AllDay || !holiday.Start.Equal(utc(7, 0, 0)) || !holiday.End.Equal(utc(8, 0, 0)) {
		t.Fatalf("unexpected all-day event %+v", holiday)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(Source{ID: "empty"}, nil, time.UTC); err == nil {
		t.Fatal("expected an error for an empty body")
	}
}

func TestExpand(t *testing.T) {
	events, err := Parse(Source{ID: "test"}, ics(), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	entries, truncated, err := Expand(events, ExpandConfig{
		Location:   time.UTC,
		RangeStart: utc(6, 0, 0),
		RangeEnd:   utc(13, 0, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(truncated) != 0 {
		t.Fatalf("unexpected truncation %v", truncated)
	}

	want := []struct {
		summary string
		start   time.Time
	}{
		{"Standup", utc(6, 8, 30)},
		{"Holiday", utc(7, 0, 0)},
		{"Standup", utc(7, 8, 30)},
		{"Standup (moved)", utc(9, 10, 0)},
		{"Standup", utc(10, 8, 30)},
		{"Review", utc(10, 13, 0)},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(entries), entries)
	}
	for i, w := range want {
		if entries[i].Summary != w.summary || !entries[i].Start.Equal(w.start) {
			t.Errorf("entry %d: expected %s at %v, got %s at %v", i, w.summary, w.start, entries[i].Summary, entries[i].Start)
		}
	}
}

func TestExpandCap(t *testing.T) {
	ev := Event{
		UID:   "daily",
		Start: utc(1, 9, 0),
		End:   utc(1, 10, 0),
		RRule: "FREQ=DAILY",
	}
	entries, truncated, err := Expand([]Event{ev}, ExpandConfig{
		Location:               time.UTC,
		RangeStart:             utc(1, 0, 0),
		RangeEnd:               utc(31, 0, 0),
		MaxOccurrencesPerEvent: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 || len(truncated) != 1 || truncated[0] != "daily" {
		t.Fatalf("expected 3 capped entries, got %d (truncated %v)", len(entries), truncated)
	}
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	if _, _, err := Expand(nil, ExpandConfig{RangeStart: utc(2, 0, 0), RangeEnd: utc(1, 0, 0)}); err == nil {
		t.Fatal("expected an error")
	}
}

func TestFetcherRevalidates(t *testing.T) {
	var notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(ics())
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	src := Source{ID: "t", URL: srv.URL + "/private/cal.ics?token=secret"}

	first, err := f.FetchOne(context.Background(), src)
	if err != nil || first.FromCache {
		t.Fatalf("expected a fresh body, got %v (from cache %v)", err, first.FromCache)
	}
	second, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache || string(second.Body) != string(first.Body) || notModified.Load() != 1 {
		t.Fatalf("expected a revalidated cached body, got from cache %v after %d 304s", second.FromCache, notModified.Load())
	}
}

func TestFetcherFallsBackToCache(t *testing.T) {
	var broken atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if broken.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	cached := Source{ID: "cached", URL: srv.URL + "/a.ics"}
	if _, err := f.FetchOne(context.Background(), cached); err != nil {
		t.Fatal(err)
	}

	broken.Store(true)
	res, err := f.FetchOne(context.Background(), cached)
	if err != nil || !res.FromCache {
		t.Fatalf("expected the cached body, got %v", err)
	}

	results, errs := f.FetchAll(context.Background(), []Source{cached, {ID: "cold", URL: srv.URL + "/b.ics"}, {ID: "nourl"}})
	if len(results) != 1 || len(errs) != 2 {
		t.Fatalf("expected 1 result and 2 errors, got %d and %d", len(results), len(errs))
	}
}

func TestUpcoming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(ics())
	}))
	defer srv.Close()

	a := &Agenda{
		Fetcher:  NewFetcher(srv.Client()),
		Sources:  []Source{{ID: "cal", URL: srv.URL}},
		Location: time.UTC,
		Horizon:  72 * time.Hour,
	}
	entries, err := a.Upcoming(context.Background(), utc(7, 12, 0))
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Summary)
	}
	want := "Holiday,Standup (moved),Standup"
	if strings.Join(got, ",") != want {
		t.Fatalf("expected %s, got %v", want, got)
	}
}

func TestLine(t *testing.T) {
	tests := []struct {
		e    Entry
		want string
	}{
		{Entry{Summary: "Standup", Start: utc(7, 9, 30)}, "Tue 01/07 09:30   Standup"},
		{Entry{Summary: "Holiday", Start: utc(7, 0, 0), AllDay: true}, "Tue 01/07 all-day Holiday"},
	}
	for _, tt := range tests {
		if got := Line(tt.e); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://calendar.example.com/private/abc.ics?token=x"); got != "https://calendar.example.com/...(redacted)" {
		t.Fatalf("unexpected redaction %q", got)
	}
	if got := redactURL("not a url"); got != "ics://...(redacted)" {
		t.Fatalf("unexpected redaction %q", got)
	}
}
