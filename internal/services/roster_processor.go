package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mandir/internal/core"
	"mandir/internal/sheets"
)

// RosterProcessor builds the day's roster and hands it to an exporter.
type RosterProcessor struct {
	schedule *ScheduleService
	exporter sheets.RosterExporter
	location *time.Location
}

func NewRosterProcessor(schedule *ScheduleService, exporter sheets.RosterExporter, loc *time.Location) *RosterProcessor {
	if loc == nil {
		loc = time.UTC
	}
	return &RosterProcessor{schedule: schedule, exporter: exporter, location: loc}
}

// ProcessDay exports the roster for the temple-local date of now and
// returns the number of bookings on it.
func (p *RosterProcessor) ProcessDay(ctx context.Context, now time.Time) (int, error) {
	if p.schedule == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	day := core.DateOf(now, p.location)

	entries, err := p.schedule.Roster(ctx, day, 0)
	if err != nil {
		return 0, fmt.Errorf("build roster for %s: %w", day, err)
	}

	members := 0
	for _, e := range entries {
		members += len(e.Family)
	}
	slog.InfoContext(ctx, "Roster built",
		"date", day.String(),
		"bookings", len(entries),
		"family_members", members)

	if p.exporter == nil {
		return len(entries), nil
	}
	ref, err := p.exporter.WriteRoster(ctx, day, entries)
	if err != nil {
		return 0, fmt.Errorf("export roster for %s: %w", day, err)
	}
	slog.InfoContext(ctx, "Roster exported", "date", day.String(), "ref", ref)
	return len(entries), nil
}
