package event

import "time"

// Timezone is the named zone all event wall-clock times are anchored to.
// Announcement pages describe times as "local time" in this zone.
const Timezone = "America/Los_Angeles"

// NewsEntry is one candidate entry extracted from the news index page.
// The URL is the entry's identity; PostedDate is nil when the listing
// carries no timestamp for it.
type NewsEntry struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	PostedDate *time.Time `json:"posted_date,omitempty"`
}

// Event is a news entry whose announcement text has been resolved to
// absolute instants. Start == nil means the date could not be parsed;
// such events are dropped at encoding time. End == nil means no distinct
// end was parsed and consumers fall back to Start.
type Event struct {
	Title string     `json:"title"`
	URL   string     `json:"url"`
	Start *time.Time `json:"start_date"`
	End   *time.Time `json:"end_date"`
}
