package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"mandir/internal/cli"
	applog "mandir/internal/log"
	"mandir/internal/services"
)

// cronLogger routes cron's own messages through slog.
type cronLogger struct {
	logger *applog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{applog.FieldError, err}, keysAndValues...)...)
}

func main() {
	once := flag.Bool("once", false, "export today's roster and exit")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentRoster)
	logger.Info("Starting roster-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.SheetsEnabled() {
		logger.Error("roster-worker needs GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()

	loc := cfg.Location()
	schedule := services.NewScheduleService(res.Store, res.Store, cfg.MaxReportRangeDays)
	processor := services.NewRosterProcessor(schedule, res.Exporter, loc)

	run := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		n, err := processor.ProcessDay(ctx, time.Now())
		if err != nil {
			logger.Error("Roster export failed", applog.FieldError, err)
			return
		}
		logger.Info("Roster exported", "entries", n)
	}

	if *once {
		run(context.Background())
		return
	}

	ctx, _ := cli.GracefulShutdown(logger, 30*time.Second, nil)

	clog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(cfg.RosterCron, func() { run(ctx) }); err != nil {
		logger.Error("Invalid roster schedule", applog.FieldError, err, "schedule", cfg.RosterCron)
		os.Exit(1)
	}
	c.Start()
	logger.Info("Roster schedule active", "schedule", cfg.RosterCron, "utc_offset", cfg.UTCOffset)

	<-ctx.Done()
	stopped := c.Stop()
	select {
	case <-stopped.Done():
		logger.Info("Roster worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached, roster export still running")
	}
}
