package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"mandir/internal/cli"
	apphttp "mandir/internal/http"
	applog "mandir/internal/log"
	"mandir/internal/services"
	"mandir/internal/sheets"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)

	opts := []services.BookingOption{
		services.WithExpander(services.Expander{MaxSpanDays: cfg.MaxRuleSpanDays}),
		services.WithLocation(cfg.Location()),
	}
	if pub := res.Publisher(); pub != nil {
		opts = append(opts, services.WithPublisher(pub))
		logger.Info("AMQP publisher enabled - bookings will sync via mandir-worker")
	} else {
		logger.Info("AMQP disabled - bookings stay local")
	}
	bookings := services.NewBookingService(res.Store, res.Store, opts...)
	schedule := services.NewScheduleService(res.Store, res.Store, cfg.MaxReportRangeDays)
	aggregator := services.NewAggregator(res.Store, cfg.AggregatorConfig())

	// Exports need somewhere durable to go; without a spreadsheet the
	// export endpoint reports itself unavailable.
	var exporter sheets.CollectionExporter
	if cfg.SheetsEnabled() {
		exporter = res.Exporter
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		BaseURL:            cfg.BaseURL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           cfg.Location(),
		SummaryCacheSize:   cfg.SummaryCacheSize,
		SummaryCacheTTL:    cfg.SummaryCacheTTL,
	}, apphttp.Dependencies{
		Catalog:    res.Store,
		Bookings:   bookings,
		Schedule:   schedule,
		Aggregator: aggregator,
		Exporter:   exporter,
		Health:     res.Store,
		Logger:     logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting mandir server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"utc_offset", cfg.UTCOffset,
		"sheets", cfg.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
