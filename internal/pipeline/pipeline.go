// Package pipeline wires the scraper, extractor, cache, and encoder into
// the full run: news listing, entry filter, bounded detail extraction,
// calendar generation.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sheldonkwok/dialga/internal/cache"
	"github.com/sheldonkwok/dialga/internal/calendar"
	"github.com/sheldonkwok/dialga/internal/event"
	"github.com/sheldonkwok/dialga/internal/logger"
	"github.com/sheldonkwok/dialga/internal/scraper"
)

const (
	// DefaultConcurrency bounds how many detail fetches run at once.
	DefaultConcurrency = 5

	// DefaultDetailTTL is how long per-URL extraction results are
	// cached. Content changes at the source within this window are not
	// observed until expiry.
	DefaultDetailTTL = time.Hour

	// CacheTag marks the pipeline's cache records for bulk
	// invalidation (the --refresh path).
	CacheTag = "scraper"
)

// Pipeline runs the full extraction flow.
type Pipeline struct {
	scraper     *scraper.Scraper
	extractor   *event.Extractor
	encoder     *calendar.Encoder
	store       cache.Store
	concurrency int
	detailTTL   time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithScraper overrides the default production scraper.
func WithScraper(s *scraper.Scraper) Option {
	return func(p *Pipeline) { p.scraper = s }
}

// WithExtractor overrides the default extractor, letting tests supply a
// resolver with a table-driven zone formatter.
func WithExtractor(e *event.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithEncoder overrides the default calendar encoder, letting tests
// supply one with a table-driven zone formatter.
func WithEncoder(e *calendar.Encoder) Option {
	return func(p *Pipeline) { p.encoder = e }
}

// WithConcurrency overrides the detail-fetch concurrency bound.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithDetailTTL overrides the detail-cache TTL.
func WithDetailTTL(ttl time.Duration) Option {
	return func(p *Pipeline) {
		if ttl > 0 {
			p.detailTTL = ttl
		}
	}
}

// New creates a Pipeline using the given cache store.
func New(store cache.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		scraper:     scraper.New(),
		extractor:   event.NewExtractor(event.NewResolver()),
		encoder:     calendar.NewEncoder(),
		store:       store,
		concurrency: DefaultConcurrency,
		detailTTL:   DefaultDetailTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewsURL returns the listing URL the pipeline scrapes.
func (p *Pipeline) NewsURL() string { return p.scraper.NewsURL() }

// Run fetches the listing, filters it, and resolves every remaining
// entry's detail page to an event, in listing order. A single detail
// failure aborts the whole run.
func (p *Pipeline) Run(ctx context.Context) ([]*event.Event, error) {
	entries, err := p.scraper.FetchNews(ctx)
	if err != nil {
		return nil, err
	}

	matching := scraper.FilterEvents(entries)
	logger.Info("Fetched news listing", logger.Fields{
		"entries":  len(entries),
		"matching": len(matching),
	})

	return mapBounded(ctx, matching, p.concurrency, p.resolveEntry)
}

// Calendar runs the pipeline and encodes the result as an ICS document.
func (p *Pipeline) Calendar(ctx context.Context) (string, error) {
	events, err := p.Run(ctx)
	if err != nil {
		return "", err
	}
	return p.encoder.Encode(events)
}

// Refresh drops all cached detail records.
func (p *Pipeline) Refresh() error {
	return p.store.InvalidateTag(CacheTag)
}

// cacheRecord is the serialized form of a resolved event. Instants are
// stored as unix milliseconds so round-trips are lossless.
type cacheRecord struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	StartMS *int64 `json:"start_ms"`
	EndMS   *int64 `json:"end_ms"`
}

// resolveEntry returns the cached extraction for the entry's URL, or
// computes (fetch + extract) and stores it. Corrupted cache records are
// treated as misses. Cache keys are the URL alone.
func (p *Pipeline) resolveEntry(ctx context.Context, entry event.NewsEntry) (*event.Event, error) {
	if data, ok := p.store.Get(entry.URL); ok {
		var rec cacheRecord
		if err := json.Unmarshal(data, &rec); err == nil {
			logger.Debug("Cache hit", logger.Fields{"url": entry.URL})
			return rec.toEvent(), nil
		}
		logger.Warn("Discarding corrupt cache record", logger.Fields{"url": entry.URL})
	}

	evt, err := p.computeEntry(ctx, entry)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(recordFrom(evt)); err == nil {
		p.store.Set(entry.URL, data, cache.Options{
			TTL:  p.detailTTL,
			Tags: []string{CacheTag},
		})
	}
	return evt, nil
}

func (p *Pipeline) computeEntry(ctx context.Context, entry event.NewsEntry) (*event.Event, error) {
	detail, err := p.scraper.FetchDetail(ctx, entry.URL)
	if err != nil {
		return nil, err
	}

	title := entry.Title
	if detail.Title != "" {
		title = detail.Title
	}

	start, end, err := p.extractor.Extract(detail.Text)
	if err != nil {
		return nil, err
	}
	if start == nil {
		logger.Warn("No parseable date on detail page", logger.Fields{"url": entry.URL})
	}

	return &event.Event{
		Title: title,
		URL:   entry.URL,
		Start: start,
		End:   end,
	}, nil
}

func recordFrom(evt *event.Event) cacheRecord {
	return cacheRecord{
		Title:   evt.Title,
		URL:     evt.URL,
		StartMS: toMillis(evt.Start),
		EndMS:   toMillis(evt.End),
	}
}

func (r cacheRecord) toEvent() *event.Event {
	return &event.Event{
		Title: r.Title,
		URL:   r.URL,
		Start: fromMillis(r.StartMS),
		End:   fromMillis(r.EndMS),
	}
}

func toMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func fromMillis(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
