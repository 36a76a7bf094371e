// Package cli implements the command-line interface for dialga.
//
// The cli package provides the Cobra-based CLI with subcommands to run
// the pipeline and print resolved events (scrape), emit the iCalendar
// document (calendar), and serve the feed over HTTP (serve). It
// assembles the cache store, scraper, and pipeline from configuration.
package cli
