// Package memory keeps exported reports in process, for development without
// Google credentials and for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"mandir/internal/core"
	"mandir/internal/sheets"
)

type Exporter struct {
	mu          sync.Mutex
	bookings    []core.Booking
	rosters     map[string][]core.RosterEntry
	collections []core.CollectionSummary
	err         error
}

var _ sheets.Exporter = (*Exporter)(nil)

func NewExporter() *Exporter {
	return &Exporter{rosters: make(map[string][]core.RosterEntry)}
}

// FailWith makes every later export return err. Pass nil to recover.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// AppendBooking stores the booking and returns a synthetic row reference.
func (e *Exporter) AppendBooking(_ context.Context, b core.Booking) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.bookings = append(e.bookings, b)
	return fmt.Sprintf("mem:bookings:%d", len(e.bookings)), nil
}

// WriteRoster replaces the roster stored for day.
func (e *Exporter) WriteRoster(_ context.Context, day core.Date, entries []core.RosterEntry) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.rosters[day.String()] = append([]core.RosterEntry(nil), entries...)
	return "mem:roster:" + day.String(), nil
}

func (e *Exporter) WriteCollection(_ context.Context, s core.CollectionSummary) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.collections = append(e.collections, s)
	return fmt.Sprintf("mem:collections:%d", len(e.collections)), nil
}

func (e *Exporter) Bookings() []core.Booking {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Booking(nil), e.bookings...)
}

func (e *Exporter) Roster(day core.Date) []core.RosterEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.RosterEntry(nil), e.rosters[day.String()]...)
}

func (e *Exporter) Collections() []core.CollectionSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.CollectionSummary(nil), e.collections...)
}
