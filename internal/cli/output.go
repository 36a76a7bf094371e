package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sheldonkwok/dialga/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// scrapeResult is the JSON envelope the scrape command emits.
type scrapeResult struct {
	Events []*event.Event `json:"events"`
}

// WriteOutput writes the resolved events in the specified format
func WriteOutput(w io.Writer, events []*event.Event, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, events)
	case FormatText:
		return writeText(w, events)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, events []*event.Event) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(scrapeResult{Events: events})
}

func writeText(w io.Writer, events []*event.Event) error {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	for _, evt := range events {
		fmt.Fprintf(w, "%s\n", evt.Title)
		fmt.Fprintf(w, "    URL:   %s\n", evt.URL)
		fmt.Fprintf(w, "    Start: %s\n", instantOrDash(evt.Start))
		fmt.Fprintf(w, "    End:   %s\n", instantOrDash(evt.End))
	}
	fmt.Fprintf(w, "\nTotal: %d events\n", len(events))
	return nil
}

func instantOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	wall, err := event.FormatInZone(*t, event.Timezone)
	if err != nil {
		return "-"
	}
	return wall.Format("Jan 2, 2006 3:04 PM") + " (" + event.Timezone + ")"
}
