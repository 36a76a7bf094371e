package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sheldonkwok/dialga/internal/cache"
	"github.com/sheldonkwok/dialga/internal/calendar"
	"github.com/sheldonkwok/dialga/internal/event"
	"github.com/sheldonkwok/dialga/internal/pipeline"
	"github.com/sheldonkwok/dialga/internal/scraper"
)

const listingHTML = `<html><body>
<li class="news-card">
  <a href="/en/post/dynamax-battle">Dynamax Latias Max Battle Weekend</a>
</li>
</body></html>`

const detailHTML = `<html><body>
<h1>Dynamax Latias Max Battle Weekend</h1>
<p>Saturday, February 8, 2025, from 10:00 a.m. to 8:00 p.m. local time</p>
</body></html>`

func fakeLosAngeles(t time.Time, zone string) (time.Time, error) {
	off := -8 * time.Hour
	u := t.UTC()
	start := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 11, 2, 9, 0, 0, 0, time.UTC)
	if !u.Before(start) && u.Before(end) {
		off = -7 * time.Hour
	}
	w := u.Add(off)
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, time.UTC), nil
}

func newTestServer(t *testing.T, failSite bool) *Server {
	t.Helper()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failSite {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		switch r.URL.Path {
		case "/news":
			w.Write([]byte(listingHTML))
		case "/en/post/dynamax-battle":
			w.Write([]byte(detailHTML))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(site.Close)

	pipe := pipeline.New(cache.NewMemory(),
		pipeline.WithScraper(scraper.NewWithBaseURL(site.URL)),
		pipeline.WithExtractor(event.NewExtractor(event.NewResolverWithFormatter(event.Timezone, fakeLosAngeles))),
		pipeline.WithEncoder(calendar.NewEncoderWithFormatter(event.Timezone, fakeLosAngeles)),
	)
	srv := New(":0", time.Second, time.Minute, time.Minute, pipe)
	srv.format = fakeLosAngeles
	return srv
}

func TestHandleCalendar(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="calendar.ics"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") {
		t.Error("missing calendar wrapper")
	}
	if !strings.Contains(body, "DTSTART;TZID=America/Los_Angeles:20250208T100000") {
		t.Error("missing resolved event")
	}
}

func TestHandleCalendarUpstreamFailure(t *testing.T) {
	s := newTestServer(t, true)

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "dialga.example.com"
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Dynamax Latias Max Battle Weekend") {
		t.Error("missing event row")
	}
	if !strings.Contains(body, "http://dialga.example.com/calendar.ics") {
		t.Error("missing calendar link")
	}
	if !strings.Contains(body, "Feb 8, 2025 10:00 AM") {
		t.Error("missing local start time")
	}
}

func TestHandleIndexNotFound(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
