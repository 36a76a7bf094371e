// Package server exposes the pipeline over HTTP: the calendar feed, an
// index page listing upcoming events, and prometheus metrics.
package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheldonkwok/dialga/internal/event"
	"github.com/sheldonkwok/dialga/internal/logger"
	"github.com/sheldonkwok/dialga/internal/pipeline"
)

// Server serves the calendar feed and index page.
type Server struct {
	pipe   *pipeline.Pipeline
	mux    *http.ServeMux
	srv    *http.Server
	tmpl   *template.Template
	format event.ZoneFormatter

	reqTotal  *prometheus.CounterVec
	runDur    prometheus.Summary
	runErrors prometheus.Counter
	eventsNum prometheus.Gauge
}

// New creates a Server around the pipeline.
func New(addr string, readTO, writeTO, idleTO time.Duration, pipe *pipeline.Pipeline) *Server {
	mux := http.NewServeMux()
	s := &Server{
		pipe:   pipe,
		mux:    mux,
		tmpl:   template.Must(template.New("index").Parse(indexTemplate)),
		format: event.FormatInZone,
	}

	s.reqTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialga",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by path and status",
	}, []string{"path", "status"})
	s.runDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "dialga",
		Name:      "pipeline_run_duration_seconds",
		Help:      "Time spent running the full extraction pipeline",
	})
	s.runErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dialga",
		Name:      "pipeline_run_errors_total",
		Help:      "Pipeline runs that failed",
	})
	s.eventsNum = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dialga",
		Name:      "events_resolved",
		Help:      "Events resolved by the most recent pipeline run",
	})

	// Own registry so multiple servers (tests) never collide.
	reg := prometheus.NewRegistry()
	reg.MustRegister(s.reqTotal, s.runDur, s.runErrors, s.eventsNum)

	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  readTO,
		WriteTimeout: writeTO,
		IdleTimeout:  idleTO,
	}
	return s
}

// ListenAndServe runs the server until it fails or is shut down.
func (s *Server) ListenAndServe() error {
	logger.Info("Server listening", logger.Fields{"addr": s.srv.Addr})
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler returns the route handler, for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	ics, err := s.timedCalendar(r.Context())
	if err != nil {
		logger.Error("Calendar generation failed", logger.Fields{"path": r.URL.Path}, err)
		s.reqTotal.WithLabelValues("/calendar.ics", "502").Inc()
		http.Error(w, "failed to generate calendar", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	s.reqTotal.WithLabelValues("/calendar.ics", "200").Inc()
	fmt.Fprint(w, ics)
}

func (s *Server) timedCalendar(ctx context.Context) (string, error) {
	start := time.Now()
	ics, err := s.pipe.Calendar(ctx)
	s.runDur.Observe(time.Since(start).Seconds())
	if err != nil {
		s.runErrors.Inc()
	}
	return ics, err
}

// indexRow is one table row on the index page; Start/End are preformatted
// local times, em-dashed when unknown.
type indexRow struct {
	Title string
	URL   string
	Start string
	End   string
}

type indexData struct {
	NewsURL     string
	CalendarURL string
	Rows        []indexRow
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.reqTotal.WithLabelValues("other", "404").Inc()
		http.NotFound(w, r)
		return
	}

	start := time.Now()
	events, err := s.pipe.Run(r.Context())
	s.runDur.Observe(time.Since(start).Seconds())
	if err != nil {
		s.runErrors.Inc()
		logger.Error("Pipeline run failed", logger.Fields{"path": r.URL.Path}, err)
		s.reqTotal.WithLabelValues("/", "502").Inc()
		http.Error(w, "failed to fetch events", http.StatusBadGateway)
		return
	}
	s.eventsNum.Set(float64(len(events)))

	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}

	data := indexData{
		NewsURL:     s.pipe.NewsURL(),
		CalendarURL: fmt.Sprintf("%s://%s/calendar.ics", scheme, r.Host),
		Rows:        make([]indexRow, 0, len(events)),
	}
	for _, evt := range events {
		data.Rows = append(data.Rows, indexRow{
			Title: evt.Title,
			URL:   evt.URL,
			Start: s.localOrDash(evt.Start),
			End:   s.localOrDash(evt.End),
		})
	}

	s.reqTotal.WithLabelValues("/", "200").Inc()
	if err := s.tmpl.Execute(w, data); err != nil {
		logger.Error("Rendering index failed", nil, err)
	}
}

func (s *Server) localOrDash(t *time.Time) string {
	if t == nil {
		return "—"
	}
	wall, err := s.format(*t, event.Timezone)
	if err != nil {
		return "—"
	}
	return wall.Format("Jan 2, 2006 3:04 PM")
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Pokemon Go Events</title></head>
<body>
<h1>Pokemon Go Events</h1>
<p>News from <a href="{{.NewsURL}}" target="_blank" rel="noopener noreferrer">{{.NewsURL}}</a></p>
<p>Calendar link: <a href="{{.CalendarURL}}">{{.CalendarURL}}</a></p>
<table>
<thead><tr><th>Title</th><th>Start</th><th>End</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td><a href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.Title}}</a></td>
<td>{{.Start}}</td>
<td>{{.End}}</td>
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`
