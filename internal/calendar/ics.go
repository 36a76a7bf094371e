// Package calendar renders resolved events as an iCalendar document.
//
// Output is byte-exact by contract: calendar clients parse strictly, so
// escaping order, line folding, field order, and CRLF framing all matter.
package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sheldonkwok/dialga/internal/event"
)

const (
	// uidSuffix is the fixed domain suffix appended to event UIDs.
	uidSuffix = "@dialga"

	// maxLineLen is the RFC 5545 content-line limit before folding.
	maxLineLen = 75
)

var calendarHeader = []string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//Dialga//Pokemon GO Events//EN",
	"CALSCALE:GREGORIAN",
	"X-WR-CALNAME:Pokemon Go Events",
}

// Encoder serializes events into an ICS document. Times are emitted as
// floating local times qualified by a TZID parameter, never converted to
// a UTC suffix; the zone formatter is injected so tests can supply a
// table-driven one.
type Encoder struct {
	zone   string
	format event.ZoneFormatter
}

// NewEncoder creates an Encoder for the fixed event timezone.
func NewEncoder() *Encoder {
	return &Encoder{zone: event.Timezone, format: event.FormatInZone}
}

// NewEncoderWithFormatter creates an Encoder with a custom zone and
// formatter, for tests.
func NewEncoderWithFormatter(zone string, format event.ZoneFormatter) *Encoder {
	return &Encoder{zone: zone, format: format}
}

// vevent is the encoder-internal view of one event: all fields already
// localized, escaped lazily at serialization.
type vevent struct {
	summary     string
	description string
	url         string
	dtstart     string
	dtend       string
	uid         string
}

// Encode renders the events as a complete ICS document. Events with a
// nil start are dropped; a nil end reuses the start's wall-clock string.
func (e *Encoder) Encode(events []*event.Event) (string, error) {
	lines := make([]string, 0, len(calendarHeader)+1+len(events)*8)
	lines = append(lines, calendarHeader...)

	for _, evt := range events {
		if evt.Start == nil {
			continue
		}
		v, err := e.toVEvent(evt)
		if err != nil {
			return "", err
		}
		lines = append(lines, v.lines(e.zone)...)
	}

	lines = append(lines, "END:VCALENDAR")

	for i, line := range lines {
		lines[i] = foldLine(line)
	}
	return strings.Join(lines, "\r\n") + "\r\n", nil
}

func (e *Encoder) toVEvent(evt *event.Event) (vevent, error) {
	dtstart, err := e.localString(*evt.Start)
	if err != nil {
		return vevent{}, err
	}

	dtend := dtstart
	if evt.End != nil {
		dtend, err = e.localString(*evt.End)
		if err != nil {
			return vevent{}, err
		}
	}

	return vevent{
		summary:     evt.Title,
		description: evt.URL,
		url:         evt.URL,
		dtstart:     dtstart,
		dtend:       dtend,
		uid:         uid(evt.Title, dtstart),
	}, nil
}

func (v vevent) lines(zone string) []string {
	return []string{
		"BEGIN:VEVENT",
		fmt.Sprintf("DTSTART;TZID=%s:%s", zone, v.dtstart),
		fmt.Sprintf("DTEND;TZID=%s:%s", zone, v.dtend),
		"SUMMARY:" + escapeText(v.summary),
		"DESCRIPTION:" + escapeText(v.description),
		"URL:" + v.url,
		"UID:" + v.uid,
		"END:VEVENT",
	}
}

// localString formats an instant as the zone's wall clock,
// YYYYMMDDTHHMMSS.
func (e *Encoder) localString(t time.Time) (string, error) {
	wall, err := e.format(t, e.zone)
	if err != nil {
		return "", fmt.Errorf("formatting %s in %s: %w", t, e.zone, err)
	}
	return wall.Format("20060102T150405"), nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// uid builds the stable event identifier: the local start date, a slug
// of the title, and the fixed suffix.
func uid(title, dtstart string) string {
	slug := strings.ToLower(title)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	date := dtstart
	if i := strings.Index(dtstart, "T"); i >= 0 {
		date = dtstart[:i]
	}
	return date + "-" + slug + uidSuffix
}

// escapeText escapes free-text field values per RFC 5545. Backslash must
// go first or the later escapes would be double-escaped.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// foldLine splits a content line longer than 75 octets into physical
// lines: the first keeps 75 characters, each continuation is a single
// space plus up to 74 more.
func foldLine(line string) string {
	if len(line) <= maxLineLen {
		return line
	}

	parts := []string{line[:maxLineLen]}
	for i := maxLineLen; i < len(line); i += maxLineLen - 1 {
		end := i + maxLineLen - 1
		if end > len(line) {
			end = len(line)
		}
		parts = append(parts, " "+line[i:end])
	}
	return strings.Join(parts, "\r\n")
}
