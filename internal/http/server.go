package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mandir/internal/cache"
	"mandir/internal/core"
	applog "mandir/internal/log"
	"mandir/internal/middleware/ratelimit"
	"mandir/internal/middleware/security"
	"mandir/internal/middleware/trace"
	"mandir/internal/services"
	"mandir/internal/sheets"
	appweb "mandir/web"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Config holds the server settings taken from the environment.
type Config struct {
	Addr               string
	BaseURL            string
	RateLimitPerMinute int
	Location           *time.Location
	SummaryCacheSize   int
	SummaryCacheTTL    time.Duration
}

// Dependencies are the services the handlers call. Exporter and Health are optional.
type Dependencies struct {
	Catalog    services.CatalogReader
	Bookings   *services.BookingService
	Schedule   *services.ScheduleService
	Aggregator cache.SummaryLoader
	Exporter   sheets.CollectionExporter
	Health     HealthChecker
	Logger     *applog.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	config    Config

	catalog    services.CatalogReader
	bookings   *services.BookingService
	schedule   *services.ScheduleService
	summaries  *cache.SummaryCache
	exporter   sheets.CollectionExporter
	health     HealthChecker
	logger     *applog.Logger
	structured *applog.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	cacheManager     *cache.Manager

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	bookingsCreated atomic.Int64
	exports         atomic.Int64
	started         time.Time
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(cfg Config, deps Dependencies) *Server {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SummaryCacheSize <= 0 {
		cfg.SummaryCacheSize = 256
	}
	if cfg.SummaryCacheTTL <= 0 {
		cfg.SummaryCacheTTL = 5 * time.Minute
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()

	s := &Server{
		config:           cfg,
		catalog:          deps.Catalog,
		bookings:         deps.Bookings,
		schedule:         deps.Schedule,
		summaries:        cache.NewSummaryCache(deps.Aggregator, cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
		exporter:         deps.Exporter,
		health:           deps.Health,
		logger:           logger,
		structured:       applog.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		cacheManager:     cache.NewManager(),
		appMetrics:       &appMetrics{started: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)
	s.cacheManager.Register(s.summaries)
	s.cacheManager.StartCleanup(time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /pujas", s.handleListPujas)
	mux.HandleFunc("GET /pujas/schedule", s.handleSchedule)
	mux.HandleFunc("GET /pujas/today", s.handleToday)
	mux.HandleFunc("GET /references/{category}", s.handleReferences)

	mux.HandleFunc("POST /bookings", s.handleCreateBooking)
	mux.HandleFunc("POST /bookings/quote", s.handleQuote)
	mux.HandleFunc("GET /bookings", s.handleListBookings)
	mux.HandleFunc("GET /bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("GET /bookings/{id}/calendar.ics", s.handleBookingCalendar)

	mux.HandleFunc("GET /collections", s.handleCollections)
	mux.HandleFunc("POST /collections/export", s.handleExportCollection)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// middleware wraps h so that tracing runs first and the rate limiter only
// sees requests that passed the security checks.
func (s *Server) middleware(h http.Handler) http.Handler {
	limitPosts := func(r *http.Request) bool { return r.Method == http.MethodPost }
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, please try again later").Write(w)
	}
	requestID := func(r *http.Request) string { return trace.GetRequestID(r.Context()) }

	h = applog.RequestIDMiddleware(requestID)(h)
	h = applog.Middleware(s.logger)(h)
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, limitPosts, onLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.securityDetector.Middleware(h)
	return s.traceMiddleware.Middleware(h)
}

// today is the current calendar date at the temple.
func (s *Server) today() core.Date {
	return core.Today(s.config.Location)
}

// Shutdown stops background cleanup and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

var templateFuncs = template.FuncMap{
	"rupees": formatRupees,
	"date":   func(d core.Date) string { return d.Format("Mon, 02 Jan 2006") },
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name)
	}
}
