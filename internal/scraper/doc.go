// Package scraper provides HTTP fetching and HTML parsing for the
// Pokemon GO news site.
//
// The scraper fetches the public news listing, extracts candidate
// entries (title, URL, posted date), filters them against a fixed
// allow-list of event-title shapes, and fetches individual detail pages
// whose prose the event package turns into date/time ranges.
package scraper
