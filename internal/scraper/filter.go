package scraper

import (
	"regexp"
	"strings"
	"time"

	"github.com/sheldonkwok/dialga/internal/event"
)

// Titles the pipeline cares about. This is a closed, hand-maintained
// allow-list of known event-title shapes, not a classifier; novel
// phrasings are expected to be missed until the list is extended.
var eventTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(giganta|dyna)max .* max battle`),
	regexp.MustCompile(`(?i)raid day`),
	regexp.MustCompile(`(?i)community day:`),
}

// Raid day announcements sometimes carry a generic title but always use
// this path marker.
const raidDayURLMarker = "raid-day"

// recentWindowMonths bounds how old a posted date may be before the
// entry is ignored.
const recentWindowMonths = 3

// FilterEvents selects entries that look like relevant events and are
// recent enough to matter. Order-preserving.
func FilterEvents(entries []event.NewsEntry) []event.NewsEntry {
	filtered := make([]event.NewsEntry, 0, len(entries))
	for _, entry := range entries {
		if matchesEventPattern(entry) && isRecent(entry, time.Now()) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func matchesEventPattern(entry event.NewsEntry) bool {
	for _, p := range eventTitlePatterns {
		if p.MatchString(entry.Title) {
			return true
		}
	}
	return strings.Contains(entry.URL, raidDayURLMarker)
}

// isRecent is fail-open: an entry without a posted date is assumed
// recent.
func isRecent(entry event.NewsEntry, now time.Time) bool {
	if entry.PostedDate == nil {
		return true
	}
	cutoff := now.AddDate(0, -recentWindowMonths, 0)
	return !entry.PostedDate.Before(cutoff)
}
