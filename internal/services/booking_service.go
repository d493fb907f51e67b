package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mandir/internal/core"
)

// BookingService validates, prices and stores puja bookings, then announces
// them for export.
type BookingService struct {
	store     BookingStore
	catalog   CatalogReader
	publisher BookingPublisher
	expander  Expander
	location  *time.Location
	now       func() time.Time
}

type BookingOption func(*BookingService)

// WithPublisher sets the broker used to announce new bookings.
func WithPublisher(p BookingPublisher) BookingOption {
	return func(s *BookingService) { s.publisher = p }
}

// WithExpander overrides the rule lifetime cap.
func WithExpander(e Expander) BookingOption {
	return func(s *BookingService) { s.expander = e }
}

// WithLocation sets the temple time zone used for booking dates.
func WithLocation(loc *time.Location) BookingOption {
	return func(s *BookingService) { s.location = loc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) { s.now = now }
}

func NewBookingService(store BookingStore, catalog CatalogReader, opts ...BookingOption) *BookingService {
	s := &BookingService{
		store:    store,
		catalog:  catalog,
		expander: defaultExpander,
		location: time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote prices rule for a puja at its current price.
func (s *BookingService) Quote(ctx context.Context, pujaID int64, rule core.RecurrenceRule) (Quote, error) {
	_, q, err := s.quote(ctx, pujaID, rule)
	return q, err
}

func (s *BookingService) quote(ctx context.Context, pujaID int64, rule core.RecurrenceRule) (core.Puja, Quote, error) {
	puja, err := s.activePuja(ctx, pujaID)
	if err != nil {
		return core.Puja{}, Quote{}, err
	}
	q, err := s.expander.Quote(rule, puja.Price)
	if err != nil {
		return core.Puja{}, Quote{}, err
	}
	if q.Units() == 0 {
		return core.Puja{}, Quote{}, fmt.Errorf("%w: %s has no occurrences", core.ErrInvalidRule, rule)
	}
	return puja, q, nil
}

func (s *BookingService) activePuja(ctx context.Context, pujaID int64) (core.Puja, error) {
	if pujaID <= 0 {
		return core.Puja{}, core.ErrInvalidPuja
	}
	puja, err := s.catalog.GetPuja(ctx, pujaID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Puja{}, fmt.Errorf("%w: puja %d not found", core.ErrInvalidPuja, pujaID)
		}
		return core.Puja{}, fmt.Errorf("%w: get puja: %w", core.ErrStoreFailure, err)
	}
	if !puja.Active {
		return core.Puja{}, fmt.Errorf("%w: puja %d is not available", core.ErrInvalidPuja, pujaID)
	}
	return puja, nil
}

// CreateBooking stores b with its family members and every occurrence in one
// transaction. Prices are recomputed from the expansion; a client supplied
// total is only compared for logging.
func (s *BookingService) CreateBooking(ctx context.Context, b core.Booking) (core.Booking, error) {
	if err := b.Validate(); err != nil {
		return core.Booking{}, err
	}

	puja, quote, err := s.quote(ctx, b.PujaID, b.Rule)
	if err != nil {
		return core.Booking{}, err
	}
	if b.TotalPrice.Cents != 0 && b.TotalPrice != quote.Total {
		slog.WarnContext(ctx, "Client total differs from quoted total",
			"puja_id", b.PujaID,
			"client_cents", b.TotalPrice.Cents,
			"quoted_cents", quote.Total.Cents)
	}

	now := s.now()
	b.PujaName = puja.Name
	b.UnitPrice = quote.UnitPrice
	b.TotalPrice = quote.Total
	b.CreatedAt = now.UTC()
	b.CreatedOn = core.DateOf(now, s.location)
	if b.PaymentDate.IsZero() {
		b.PaymentDate = b.CreatedOn
	}
	b.SyncStatus = core.SyncPending

	err = s.store.WithinTx(ctx, func(tx BookingTx) error {
		id, err := tx.InsertBooking(ctx, b)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		b.ID = id
		if len(b.Family) > 0 {
			if err := tx.InsertFamilyMembers(ctx, id, b.Family); err != nil {
				return fmt.Errorf("insert family members: %w", err)
			}
		}
		if err := tx.InsertOccurrences(ctx, id, b.PujaID, b.Occurrences(quote.Dates)); err != nil {
			return fmt.Errorf("insert occurrences: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Booking{}, fmt.Errorf("%w: save booking: %w", core.ErrStoreFailure, err)
	}

	slog.InfoContext(ctx, "Booking saved",
		"booking_id", b.ID,
		"puja_id", b.PujaID,
		"rule", b.Rule.String(),
		"occurrences", quote.Units(),
		"total_cents", b.TotalPrice.Cents)

	// Publishing failures leave the booking pending; the worker picks it up later.
	if err := s.publishSyncMessage(ctx, b.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"booking_id", b.ID, "error", err)
	}

	return b, nil
}

func (s *BookingService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.publisher.PublishBookingSync(ctx, id, version)
}

// Location is the temple time zone.
func (s *BookingService) Location() *time.Location {
	return s.location
}
