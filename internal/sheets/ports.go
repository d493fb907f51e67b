package sheets

import (
	"context"

	"mandir/internal/core"
)

// Ports for outbound adapters.
type (
	// BookingExporter appends one stored booking to the bookings register.
	BookingExporter interface {
		AppendBooking(ctx context.Context, b core.Booking) (rowRef string, err error)
	}

	// RosterExporter writes the list of pujas to perform on a day.
	RosterExporter interface {
		WriteRoster(ctx context.Context, day core.Date, entries []core.RosterEntry) (ref string, err error)
	}

	// CollectionExporter writes a collection summary as a report.
	CollectionExporter interface {
		WriteCollection(ctx context.Context, s core.CollectionSummary) (ref string, err error)
	}

	// Exporter is implemented by backends that support every report.
	Exporter interface {
		BookingExporter
		RosterExporter
		CollectionExporter
	}
)
