package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mandir/internal/core"
	applog "mandir/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.health == nil:
		checks["database"] = "not_configured"
	default:
		if err := s.health.Ping(ctx); err != nil {
			checks["database"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	checks["summary_cache"] = s.summaries.Stats()
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	cacheStats := s.summaries.Stats()

	metric := func(name, kind, help string, value int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %d\n\n", name, value)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "Responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_last_response_microseconds", "gauge", "Duration of the most recent request", traceMetrics.LastResponseTime)
	metric("bookings_created_total", "counter", "Bookings stored since start", s.appMetrics.bookingsCreated.Load())
	metric("collection_exports_total", "counter", "Collection reports exported", s.appMetrics.exports.Load())
	metric("summary_cache_hits_total", "counter", "Collection summary cache hits", cacheStats.Hits)
	metric("summary_cache_misses_total", "counter", "Collection summary cache misses", cacheStats.Misses)
	metric("summary_cache_entries", "gauge", "Cached collection summaries", int64(cacheStats.Size))
	metric("security_suspicious_requests_total", "counter", "Requests flagged as suspicious", securityMetrics.SuspiciousRequests)
	metric("security_blocked_requests_total", "counter", "Requests blocked", securityMetrics.BlockedRequests)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", rateLimitMetrics.ClientCount)
	metric("uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.appMetrics.started).Seconds()))
}

type indexData struct {
	Today       string
	Pujas       []core.Puja
	Nakshatrams []core.ReferenceItem
	Gotrams     []core.ReferenceItem
	Rashis      []core.ReferenceItem
	Weekdays    []string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	data := indexData{
		Today:    s.today().String(),
		Weekdays: []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},
	}
	pujas, err := s.catalog.ListPujas(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Puja list error", applog.FieldError, err)
	}
	for _, p := range pujas {
		if p.Active {
			data.Pujas = append(data.Pujas, p)
		}
	}
	for category, dst := range map[string]*[]core.ReferenceItem{
		"nakshatram": &data.Nakshatrams,
		"gotram":     &data.Gotrams,
		"rashi":      &data.Rashis,
	} {
		items, err := s.catalog.ListReferences(ctx, category)
		if err != nil {
			logger.ErrorContext(ctx, "Reference list error", applog.FieldError, err, "category", category)
			continue
		}
		*dst = items
	}

	s.render(w, r, "index.html", data)
}

func (s *Server) handleListPujas(w http.ResponseWriter, r *http.Request) {
	pujas, err := s.catalog.ListPujas(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: list pujas: %w", core.ErrStoreFailure, err))
		return
	}
	includeInactive := r.URL.Query().Get("all") == "true"
	out := make([]pujaView, 0, len(pujas))
	for _, p := range pujas {
		if !p.Active && !includeInactive {
			continue
		}
		out = append(out, pujaView{ID: p.ID, Name: p.Name, Description: p.Description, Price: newMoneyView(p.Price), Active: p.Active})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	items, err := s.catalog.ListReferences(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]referenceView, len(items))
	for i, it := range items {
		out[i] = referenceView{ID: it.ID, NameEN: it.NameEN, NameHI: it.NameHI, NameTA: it.NameTA}
	}
	writeJSON(w, http.StatusOK, out)
}
