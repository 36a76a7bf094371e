package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sheldonkwok/dialga/internal/event"
	"github.com/sheldonkwok/dialga/internal/logger"
)

const (
	BaseURL   = "https://pokemongo.com"
	NewsURL   = BaseURL + "/news"
	UserAgent = "dialga/1.0 (github.com/sheldonkwok/dialga)"
	Timeout   = 30 * time.Second
)

// entrySelector matches the two anchor shapes news entries use.
const entrySelector = `a[href^="/news/"], a[href^="/en/post/"]`

// cardSelector matches the card-like containers a news anchor sits in;
// the posted-date element lives somewhere inside that container, not
// inside the anchor itself.
const cardSelector = `[class*="card"], [class*="article"], article, li, div`

// FetchError reports a failed listing or detail page fetch. Status is 0
// for transport failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Scraper fetches and parses the news listing and event detail pages.
type Scraper struct {
	client  *http.Client
	baseURL string
	newsURL string
}

// New creates a Scraper against the production news site.
func New() *Scraper {
	return NewWithBaseURL(BaseURL)
}

// NewWithBaseURL creates a Scraper against an alternate base URL, for
// tests and configuration overrides. The news listing is at <base>/news.
func NewWithBaseURL(baseURL string) *Scraper {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Scraper{
		client:  &http.Client{Timeout: Timeout},
		baseURL: baseURL,
		newsURL: baseURL + "/news",
	}
}

// NewsURL returns the listing URL this scraper fetches.
func (s *Scraper) NewsURL() string { return s.newsURL }

// FetchNews retrieves the news index and extracts candidate entries in
// document order. Duplicates are not removed.
func (s *Scraper) FetchNews(ctx context.Context) ([]event.NewsEntry, error) {
	doc, err := s.fetchDocument(ctx, s.newsURL)
	if err != nil {
		return nil, err
	}
	return s.parseNews(doc), nil
}

func (s *Scraper) parseNews(doc *goquery.Document) []event.NewsEntry {
	var entries []event.NewsEntry

	doc.Find(entrySelector).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := strings.TrimSpace(sel.Text())
		if href == "" || title == "" {
			return
		}

		url := href
		if !strings.HasPrefix(href, "http") {
			url = s.baseURL + href
		}

		entries = append(entries, event.NewsEntry{
			Title:      title,
			URL:        url,
			PostedDate: postedDate(sel),
		})
	})

	logger.Debug("Parsed news listing", logger.Fields{"entries": len(entries)})
	return entries
}

// postedDate reads the unix-millisecond timestamp attribute from the
// pg-date-format element inside the anchor's enclosing card. Returns nil
// when the card carries no timestamp.
func postedDate(sel *goquery.Selection) *time.Time {
	card := sel.Closest(cardSelector).First()
	ts, ok := card.Find("pg-date-format").Attr("timestamp")
	if !ok {
		return nil
	}
	ms, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	posted := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &posted
}

// Detail is what a single event detail page yields: an optional title
// override from the page heading, and the prose the date/time tokens are
// scanned from.
type Detail struct {
	Title string
	Text  string
}

// FetchDetail retrieves one event detail page. Title is empty when the
// page has no h1 heading.
func (s *Scraper) FetchDetail(ctx context.Context, url string) (Detail, error) {
	doc, err := s.fetchDocument(ctx, url)
	if err != nil {
		return Detail{}, err
	}

	return Detail{
		Title: strings.TrimSpace(doc.Find("h1").First().Text()),
		Text:  doc.Find("h1, h2, h3, p").Text(),
	}, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", url, err)
	}
	return doc, nil
}
