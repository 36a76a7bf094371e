package event

import (
	"fmt"
	"sync"
	"time"
)

// nominal standard-time offset for Timezone (PST, UTC-8). Used only as
// the initial guess before the wall-clock correction passes.
const standardOffset = -8 * time.Hour

// ZoneFormatter renders an absolute instant as the wall clock of a named
// zone. The returned time carries the zone's wall-clock fields with a UTC
// location, so callers can compare and subtract wall clocks directly.
// Injecting this keeps the resolver and the encoder testable without the
// host timezone database.
type ZoneFormatter func(t time.Time, zone string) (time.Time, error)

var (
	locMu    sync.Mutex
	locCache = map[string]*time.Location{}
)

// FormatInZone is the default ZoneFormatter, backed by the runtime's
// timezone support.
func FormatInZone(t time.Time, zone string) (time.Time, error) {
	locMu.Lock()
	loc, ok := locCache[zone]
	locMu.Unlock()
	if !ok {
		var err error
		loc, err = time.LoadLocation(zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("loading zone %s: %w", zone, err)
		}
		locMu.Lock()
		locCache[zone] = loc
		locMu.Unlock()
	}

	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), 0, time.UTC), nil
}

// Resolver converts naive wall-clock date/time pairs in one fixed named
// zone to absolute instants.
type Resolver struct {
	zone   string
	format ZoneFormatter
}

// NewResolver creates a Resolver for the fixed event timezone.
func NewResolver() *Resolver {
	return &Resolver{zone: Timezone, format: FormatInZone}
}

// NewResolverWithFormatter creates a Resolver using a custom zone and
// formatter, for tests.
func NewResolverWithFormatter(zone string, format ZoneFormatter) *Resolver {
	return &Resolver{zone: zone, format: format}
}

// Resolve converts a wall-clock date and time in the resolver's zone to
// an absolute instant.
//
// The guess starts at the zone's nominal standard offset, is formatted
// back into the zone, and is shifted by the wall-clock discrepancy.
// Exactly two correction passes: the only possible error is the
// standard/daylight delta, plus a day rollover from carrying that delta
// across midnight, so the second pass always lands.
func (r *Resolver) Resolve(d Date, tm Time) (time.Time, error) {
	want := time.Date(d.Year, d.Month, d.Day, tm.Hour, tm.Minute, 0, 0, time.UTC)

	guess := want.Add(-standardOffset)
	for i := 0; i < 2; i++ {
		got, err := r.format(guess, r.zone)
		if err != nil {
			return time.Time{}, err
		}
		guess = guess.Add(want.Sub(got))
	}
	return guess, nil
}
