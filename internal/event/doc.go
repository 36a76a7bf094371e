// Package event defines the pipeline's data model and the date/time
// extraction logic that turns free-form announcement prose into absolute
// instants anchored to the fixed event timezone.
package event
