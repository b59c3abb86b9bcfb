package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"jira-quality/internal/inference"
	"jira-quality/internal/jira"
	"jira-quality/internal/quality"
	"jira-quality/internal/snapshot"
)

// Server exposes the quality checks over a loaded snapshot as JSON.
type Server struct {
	cache    *snapshot.Cache
	analyzer *quality.Analyzer
}

// NewServer creates the API server.
func NewServer(cache *snapshot.Cache, analyzer *quality.Analyzer) *Server {
	return &Server{cache: cache, analyzer: analyzer}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/link-status", s.handleLinkStatus)
	mux.HandleFunc("GET /api/unlinked/{type}", s.handleUnlinked)
	mux.HandleFunc("GET /api/all/{type}", s.handleAllByType)
	mux.HandleFunc("GET /api/quality/{check}", s.handleQuality)
	mux.HandleFunc("POST /api/reload", s.handleReload)
	return logRequests(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP API")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down HTTP API")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	key := "report:" + s.analyzer.Today().Format("2006-01-02")
	report, err := snapshot.Memoize(s.cache, key, func(issues []jira.Issue) (*quality.Report, error) {
		return s.analyzer.Report(issues), nil
	})
	s.respond(w, report, err)
}

func (s *Server) handleLinkStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := snapshot.Memoize(s.cache, "link-status", func(issues []jira.Issue) ([]quality.TypeLinkStatus, error) {
		return s.analyzer.LinkStatusByType(issues), nil
	})
	s.respond(w, map[string]any{"types": status}, err)
}

func (s *Server) handleUnlinked(w http.ResponseWriter, r *http.Request) {
	issueType := r.PathValue("type")
	rows, err := snapshot.Memoize(s.cache, "unlinked:"+strings.ToLower(issueType), func(issues []jira.Issue) ([]quality.IssueRow, error) {
		return s.analyzer.UnlinkedIssues(issues, issueType), nil
	})
	s.respond(w, map[string]any{
		"issue_type":      issueType,
		"expected_parent": inference.ExpectedParentLabel(issueType),
		"count":           len(rows),
		"issues":          rows,
	}, err)
}

func (s *Server) handleAllByType(w http.ResponseWriter, r *http.Request) {
	issueType := r.PathValue("type")
	rows, err := snapshot.Memoize(s.cache, "all:"+strings.ToLower(issueType), func(issues []jira.Issue) ([]quality.IssueRow, error) {
		return s.analyzer.IssuesByType(issues, issueType), nil
	})
	s.respond(w, map[string]any{
		"issue_type": issueType,
		"count":      len(rows),
		"issues":     rows,
	}, err)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	check := r.PathValue("check")
	key := "quality:" + check + ":" + s.analyzer.Today().Format("2006-01-02")

	var (
		rows  any
		count int
		err   error
	)
	switch check {
	case "past-start-open":
		var out []quality.IssueRow
		out, err = snapshot.Memoize(s.cache, key, func(issues []jira.Issue) ([]quality.IssueRow, error) {
			return s.analyzer.PastStartOpen(issues), nil
		})
		rows, count = out, len(out)
	case "past-end-date":
		var out []quality.IssueRow
		out, err = snapshot.Memoize(s.cache, key, func(issues []jira.Issue) ([]quality.IssueRow, error) {
			return s.analyzer.PastEndDate(issues), nil
		})
		rows, count = out, len(out)
	case "in-progress-no-assignee":
		var out []quality.IssueRow
		out, err = snapshot.Memoize(s.cache, key, func(issues []jira.Issue) ([]quality.IssueRow, error) {
			return s.analyzer.InProgressWithoutAssignee(issues), nil
		})
		rows, count = out, len(out)
	case "waiting-for-release":
		// Memoized for the day: resolve independently of the caller's cancellation.
		ctx := context.WithoutCancel(r.Context())
		var out []quality.WaitingRow
		out, err = snapshot.Memoize(s.cache, key, func(issues []jira.Issue) ([]quality.WaitingRow, error) {
			return s.analyzer.WaitingForRelease(ctx, issues), nil
		})
		rows, count = out, len(out)
	case "missing-dates":
		var out quality.MissingDates
		out, err = snapshot.Memoize(s.cache, key, func(issues []jira.Issue) (quality.MissingDates, error) {
			return s.analyzer.MissingDates(issues), nil
		})
		s.respond(w, map[string]any{"analysis_type": "missing_dates", "result": out}, err)
		return
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown analysis type " + check})
		return
	}

	s.respond(w, map[string]any{
		"analysis_type": strings.ReplaceAll(check, "-", "_"),
		"count":         count,
		"issues":        rows,
	}, err)
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	s.cache.Invalidate()
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (s *Server) respond(w http.ResponseWriter, body any, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, body)
	case errors.Is(err, snapshot.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot available, run `jira-quality fetch` first"})
	default:
		log.Error().Err(err).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
