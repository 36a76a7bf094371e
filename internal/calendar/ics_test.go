package calendar

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sheldonkwok/dialga/internal/event"
)

// fakeLosAngeles renders wall clocks at UTC-8, or UTC-7 between the 2025
// DST transition instants, so encoder tests don't depend on the host
// timezone database.
func fakeLosAngeles(t time.Time, zone string) (time.Time, error) {
	off := -8 * time.Hour
	u := t.UTC()
	start := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	if !u.Before(start) && u.Before(end) {
		off = -7 * time.Hour
	}
	w := u.Add(off)
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, time.UTC), nil
}

func testEncoder() *Encoder {
	return NewEncoderWithFormatter(event.Timezone, fakeLosAngeles)
}

var (
	// Feb 8 2025 10:00 AM PST = Feb 8 18:00 UTC (PST is UTC-8)
	feb8TenAM = time.Date(2025, 2, 8, 18, 0, 0, 0, time.UTC)
	// Feb 9 2025 8:00 PM PST = Feb 10 04:00 UTC
	feb9EightPM = time.Date(2025, 2, 10, 4, 0, 0, 0, time.UTC)
	// Jul 12 2025 2:00 PM PDT = Jul 12 21:00 UTC (PDT is UTC-7)
	jul12TwoPM = time.Date(2025, 7, 12, 21, 0, 0, 0, time.UTC)
	// Jul 13 2025 6:00 PM PDT = Jul 14 01:00 UTC
	jul13SixPM = time.Date(2025, 7, 14, 1, 0, 0, 0, time.UTC)
)

func makeEvent(mutate ...func(*event.Event)) *event.Event {
	start, end := feb8TenAM, feb9EightPM
	evt := &event.Event{
		Title: "Dynamax Max Battle Weekend",
		URL:   "https://pokemongo.com/en/post/dynamax-battle",
		Start: &start,
		End:   &end,
	}
	for _, m := range mutate {
		m(evt)
	}
	return evt
}

func encode(t *testing.T, events ...*event.Event) string {
	t.Helper()
	ics, err := testEncoder().Encode(events)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return ics
}

func TestEncodeWrapper(t *testing.T) {
	ics := encode(t)

	for _, marker := range []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Dialga//Pokemon GO Events//EN",
		"CALSCALE:GREGORIAN",
		"X-WR-CALNAME:Pokemon Go Events",
		"END:VCALENDAR",
	} {
		if !strings.Contains(ics, marker) {
			t.Errorf("missing %s", marker)
		}
	}
	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Error("empty input must produce no event blocks")
	}
}

func TestEncodeCRLF(t *testing.T) {
	ics := encode(t, makeEvent())

	if !strings.HasSuffix(ics, "\r\n") {
		t.Error("document must end with CRLF")
	}
	if regexp.MustCompile(`[^\r]\n`).MatchString(ics) {
		t.Error("found a bare LF")
	}
}

func TestEncodeStandardTime(t *testing.T) {
	ics := encode(t, makeEvent())

	for _, want := range []string{
		"BEGIN:VEVENT",
		"DTSTART;TZID=America/Los_Angeles:20250208T100000",
		"DTEND;TZID=America/Los_Angeles:20250209T200000",
		"SUMMARY:Dynamax Max Battle Weekend",
		"URL:https://pokemongo.com/en/post/dynamax-battle",
		"END:VEVENT",
	} {
		if !strings.Contains(ics, want) {
			t.Errorf("missing %s", want)
		}
	}
}

func TestEncodeDaylightTime(t *testing.T) {
	ics := encode(t, makeEvent(func(e *event.Event) {
		e.Title = "Shadow Raid Day"
		e.Start = &jul12TwoPM
		e.End = &jul13SixPM
	}))

	if !strings.Contains(ics, "DTSTART;TZID=America/Los_Angeles:20250712T140000") {
		t.Error("wrong DTSTART across the daylight boundary")
	}
	if !strings.Contains(ics, "DTEND;TZID=America/Los_Angeles:20250713T180000") {
		t.Error("wrong DTEND across the daylight boundary")
	}
}

func TestEncodeUID(t *testing.T) {
	ics := encode(t, makeEvent())

	if !strings.Contains(ics, "UID:20250208-dynamax-max-battle-weekend@dialga") {
		t.Error("UID not derived from local start date and title slug")
	}
}

func TestEncodeSkipsNilStart(t *testing.T) {
	ics := encode(t, makeEvent(func(e *event.Event) { e.Start = nil }))

	if strings.Contains(ics, "BEGIN:VEVENT") {
		t.Error("event with nil start must produce no event block")
	}
}

func TestEncodeEndFallsBackToStart(t *testing.T) {
	ics := encode(t, makeEvent(func(e *event.Event) { e.End = nil }))

	if !strings.Contains(ics, "DTSTART;TZID=America/Los_Angeles:20250208T100000") {
		t.Error("missing DTSTART")
	}
	if !strings.Contains(ics, "DTEND;TZID=America/Los_Angeles:20250208T100000") {
		t.Error("DTEND must reuse the start wall-clock string")
	}
}

func TestEncodeEscaping(t *testing.T) {
	ics := encode(t, makeEvent(func(e *event.Event) {
		e.Title = "Event; with, special\\chars\nand newline"
	}))

	if !strings.Contains(ics, `SUMMARY:Event\; with\, special\\chars\nand newline`) {
		t.Error("summary not escaped backslash-first")
	}
}

func TestEncodeMultipleEvents(t *testing.T) {
	ics := encode(t,
		makeEvent(),
		makeEvent(func(e *event.Event) {
			e.Title = "Shadow Raid Day"
			e.URL = "https://pokemongo.com/en/post/shadow-raid"
			e.Start = &jul12TwoPM
			e.End = &jul13SixPM
		}),
	)

	if n := strings.Count(ics, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("expected 2 event blocks, got %d", n)
	}
	if n := strings.Count(ics, "END:VEVENT"); n != 2 {
		t.Errorf("expected 2 event terminators, got %d", n)
	}
	// Input order.
	if strings.Index(ics, "dynamax-battle") > strings.Index(ics, "shadow-raid") {
		t.Error("event blocks out of input order")
	}
}

func TestEncodeFoldsLongLines(t *testing.T) {
	ics := encode(t, makeEvent(func(e *event.Event) {
		e.Title = strings.Repeat("A", 100)
	}))

	for _, line := range strings.Split(ics, "\r\n") {
		if len(line) > 75 {
			t.Errorf("physical line exceeds 75 chars: %q", line)
		}
	}

	// Continuations carry a single leading space.
	folded := false
	for _, line := range strings.Split(ics, "\r\n") {
		if strings.HasPrefix(line, " ") {
			folded = true
			if strings.HasPrefix(line, "  ") {
				t.Errorf("continuation has more than one leading space: %q", line)
			}
		}
	}
	if !folded {
		t.Error("expected at least one folded continuation line")
	}
}

func TestFoldLine(t *testing.T) {
	t.Run("short lines pass through", func(t *testing.T) {
		if got := foldLine("SUMMARY:short"); got != "SUMMARY:short" {
			t.Errorf("foldLine = %q", got)
		}
	})

	t.Run("first segment is 75, continuations 74 plus space", func(t *testing.T) {
		line := strings.Repeat("x", 200)
		parts := strings.Split(foldLine(line), "\r\n")

		if len(parts[0]) != 75 {
			t.Errorf("first segment length = %d, want 75", len(parts[0]))
		}
		for _, p := range parts[1:] {
			if !strings.HasPrefix(p, " ") {
				t.Errorf("continuation missing leading space: %q", p)
			}
			if len(p) > 75 {
				t.Errorf("continuation length = %d, want <= 75", len(p))
			}
		}
		joined := parts[0]
		for _, p := range parts[1:] {
			joined += p[1:]
		}
		if joined != line {
			t.Error("folding lost content")
		}
	})
}

func TestEscapeText(t *testing.T) {
	got := escapeText("a\\b;c,d\ne")
	want := `a\\b\;c\,d\ne`
	if got != want {
		t.Errorf("escapeText = %q, want %q", got, want)
	}
}

func TestUID(t *testing.T) {
	cases := []struct {
		title   string
		dtstart string
		want    string
	}{
		{"Dynamax Max Battle Weekend", "20250208T100000", "20250208-dynamax-max-battle-weekend@dialga"},
		{"  Hello -- World!  ", "20260124T140000", "20260124-hello-world@dialga"},
		{"UPPER case", "20250101T000000", "20250101-upper-case@dialga"},
	}
	for _, tc := range cases {
		if got := uid(tc.title, tc.dtstart); got != tc.want {
			t.Errorf("uid(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}
