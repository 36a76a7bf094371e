package event

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Announcement pages phrase event windows in one of two shapes:
//
//	"Saturday, January 31, at 6:00 a.m. to Sunday, February 1, 2026, at 9:00 p.m. local time"
//	"Saturday, January 24, 2026, from 2:00 p.m. to 5:00 p.m. local time"
//
// Dates and times are scanned independently, in order of appearance, and
// paired positionally: first date/time are the start, second the end.

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var (
	datePattern = regexp.MustCompile(`(?i)(` + strings.Join(monthNames, "|") + `)\s+(\d{1,2})(?:,?\s+(\d{4}))?`)
	timePattern = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*([ap])\.?m\.?`)
	yearPattern = regexp.MustCompile(`\b202\d\b`)
)

// Date is a parsed calendar date token.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Time is a parsed wall-clock time token, 24-hour.
type Time struct {
	Hour   int
	Minute int
}

// DateTimes holds the scanned tokens of one announcement, positionally
// paired. Nil fields mean the token was absent; a missing time resolves
// as midnight.
type DateTimes struct {
	StartDate *Date
	StartTime *Time
	EndDate   *Date
	EndTime   *Time
}

// ParseDateTimes scans free-form page text for date and time tokens.
// Years are optional on date tokens; the first 202x token anywhere in the
// text fills them in, falling back to the current year.
func ParseDateTimes(text string) DateTimes {
	fallbackYear := time.Now().Year()
	if y := yearPattern.FindString(text); y != "" {
		fallbackYear, _ = strconv.Atoi(y)
	}

	var dates []Date
	for _, m := range datePattern.FindAllStringSubmatch(text, -1) {
		day, _ := strconv.Atoi(m[2])
		year := fallbackYear
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		dates = append(dates, Date{Year: year, Month: monthIndex(m[1]), Day: day})
	}

	var times []Time
	for _, m := range timePattern.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		pm := strings.EqualFold(m[3], "p")
		if hour == 12 {
			hour = 0
		}
		if pm {
			hour += 12
		}
		times = append(times, Time{Hour: hour, Minute: minute})
	}

	var dt DateTimes
	if len(dates) > 0 {
		dt.StartDate = &dates[0]
	}
	if len(times) > 0 {
		dt.StartTime = &times[0]
	}
	if len(dates) > 1 {
		dt.EndDate = &dates[1]
	}
	if len(times) > 1 {
		dt.EndTime = &times[1]
		if dt.EndDate == nil {
			// A lone date with two times is a same-day window.
			dt.EndDate = dt.StartDate
		}
	}
	return dt
}

func monthIndex(name string) time.Month {
	for i, m := range monthNames {
		if strings.EqualFold(m, name) {
			return time.Month(i + 1)
		}
	}
	return 0
}

// Extractor turns announcement text into absolute instants using a
// Resolver for the fixed event timezone.
type Extractor struct {
	resolver *Resolver
}

// NewExtractor creates an Extractor resolving against the given Resolver.
func NewExtractor(r *Resolver) *Extractor {
	return &Extractor{resolver: r}
}

// Extract parses the text and resolves the paired tokens to instants.
// A nil start means no date token was found; that is not an error.
func (e *Extractor) Extract(text string) (start, end *time.Time, err error) {
	dt := ParseDateTimes(text)

	if dt.StartDate != nil {
		t, err := e.resolver.Resolve(*dt.StartDate, orMidnight(dt.StartTime))
		if err != nil {
			return nil, nil, err
		}
		start = &t
	}
	if dt.EndDate != nil {
		t, err := e.resolver.Resolve(*dt.EndDate, orMidnight(dt.EndTime))
		if err != nil {
			return nil, nil, err
		}
		end = &t
	}
	return start, end, nil
}

func orMidnight(t *Time) Time {
	if t == nil {
		return Time{}
	}
	return *t
}
