package services

import (
	"context"

	"mandir/internal/core"
)

// BookingTx is the write side of a booking submission. All calls made on it
// commit or roll back together.
type BookingTx interface {
	InsertBooking(ctx context.Context, b core.Booking) (int64, error)
	InsertFamilyMembers(ctx context.Context, bookingID int64, members []core.FamilyMember) error
	InsertOccurrences(ctx context.Context, bookingID, pujaID int64, occurrences []core.Occurrence) error
}

// BookingStore runs booking writes in one transaction.
type BookingStore interface {
	WithinTx(ctx context.Context, fn func(tx BookingTx) error) error
}

// CatalogReader exposes the puja catalog and reference lookups.
type CatalogReader interface {
	ListPujas(ctx context.Context) ([]core.Puja, error)
	GetPuja(ctx context.Context, id int64) (core.Puja, error)
	ListReferences(ctx context.Context, category string) ([]core.ReferenceItem, error)
}

// CollectionStore is the read side used by reports. A pujaID of 0 means all pujas.
type CollectionStore interface {
	QueryOccurrences(ctx context.Context, start, end core.Date, pujaID int64) ([]core.OccurrenceRow, error)
	QueryBookingsByPaymentDate(ctx context.Context, start, end core.Date, pujaID int64) ([]core.Booking, error)
	QueryBookingsByCreatedDate(ctx context.Context, start, end core.Date, pujaID int64) ([]core.Booking, error)
	GetPujaUnitPrice(ctx context.Context, pujaID int64) (core.Money, error)
}

// BookingReader loads single bookings and the daily roster.
type BookingReader interface {
	GetBooking(ctx context.Context, id int64) (core.Booking, error)
	QueryRoster(ctx context.Context, day core.Date, pujaID int64) ([]core.RosterRow, error)
}

// BookingPublisher notifies downstream consumers about stored bookings.
type BookingPublisher interface {
	PublishBookingSync(ctx context.Context, id, version int64) error
}

// SyncTracker records the export state of bookings.
type SyncTracker interface {
	GetPendingSyncBookings(ctx context.Context, limit int) ([]int64, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// Store is everything the services need from persistence.
type Store interface {
	BookingStore
	CatalogReader
	CollectionStore
	BookingReader
	SyncTracker
	Ping(ctx context.Context) error
	Close() error
}
