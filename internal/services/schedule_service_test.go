package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mandir/internal/core"
	"mandir/internal/services"
	"mandir/internal/storage/memory"
)

func seedBookings(t *testing.T, store *memory.Store) {
	t.Helper()
	svc := services.NewBookingService(store, store)

	daily, err := core.NewDaily(core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 3))
	b := newBooking(t, daily, err)
	if _, err := svc.CreateBooking(context.Background(), b); err != nil {
		t.Fatal(err)
	}

	once, err := core.NewOneTime(core.NewDate(2024, 3, 2))
	b = newBooking(t, once, err)
	b.Family = nil
	b.Remarks = "for health"
	if _, err := svc.CreateBooking(context.Background(), b); err != nil {
		t.Fatal(err)
	}
}

func TestScheduleService_DailySchedule(t *testing.T) {
	store := newTestStore()
	seedBookings(t, store)
	svc := services.NewScheduleService(store, store, 60)

	days, err := svc.DailySchedule(context.Background(), core.NewDate(2024, 2, 29), core.NewDate(2024, 3, 4), 0)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{
		"2024-02-29": 0,
		"2024-03-01": 1,
		"2024-03-02": 2,
		"2024-03-03": 1,
		"2024-03-04": 0,
	}
	if len(days) != len(want) {
		t.Fatalf("got %d days, want %d", len(days), len(want))
	}
	for _, d := range days {
		if len(d.Bookings) != want[d.Date.String()] {
			t.Errorf("%s has %d bookings, want %d", d.Date, len(d.Bookings), want[d.Date.String()])
		}
		if d.Bookings == nil {
			t.Errorf("%s bookings is nil", d.Date)
		}
	}

	if _, err := svc.DailySchedule(context.Background(), core.NewDate(2024, 3, 4), core.NewDate(2024, 3, 1), 0); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("reversed range error = %v", err)
	}
	if _, err := svc.DailySchedule(context.Background(), core.NewDate(2024, 1, 1), core.NewDate(2024, 6, 1), 0); !errors.Is(err, core.ErrInvalidRange) {
		t.Fatalf("long range error = %v", err)
	}
}

func TestScheduleService_Roster(t *testing.T) {
	store := newTestStore()
	seedBookings(t, store)
	svc := services.NewScheduleService(store, store, 60)

	entries, err := svc.Roster(context.Background(), core.NewDate(2024, 3, 2), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d roster entries, want 2", len(entries))
	}
	first := entries[0]
	if first.BookingID != 1 || len(first.Family) != 2 {
		t.Fatalf("first entry = %+v", first)
	}
	if first.Family[0].Nakshatram.NameEN != "Ashwini" || first.Family[0].Rashi.NameTA != "மிதுனம்" {
		t.Errorf("reference names not resolved: %+v", first.Family[0])
	}
	second := entries[1]
	if second.BookingID != 2 || len(second.Family) != 0 || second.Remarks != "for health" {
		t.Fatalf("second entry = %+v", second)
	}

	empty, err := svc.Roster(context.Background(), core.NewDate(2024, 4, 1), 0)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty day = %v, %v", empty, err)
	}
}

func TestScheduleService_ListBookingsNewestFirst(t *testing.T) {
	store := newTestStore()
	times := []time.Time{
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
	}
	for _, ts := range times {
		ts := ts
		svc := services.NewBookingService(store, store, services.WithClock(func() time.Time { return ts }))
		rule, err := core.NewOneTime(core.NewDate(2024, 3, 10))
		if _, err := svc.CreateBooking(context.Background(), newBooking(t, rule, err)); err != nil {
			t.Fatal(err)
		}
	}

	svc := services.NewScheduleService(store, store, 60)
	list, err := svc.ListBookings(context.Background(), core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 1), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != 2 || list[1].ID != 1 {
		t.Fatalf("list order = %+v", list)
	}
}

func TestScheduleService_BookingDates(t *testing.T) {
	store := newTestStore()
	seedBookings(t, store)
	svc := services.NewScheduleService(store, store, 60)

	b, dates, err := svc.BookingDates(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if b.ID != 1 || len(dates) != 3 {
		t.Fatalf("booking %d dates %v", b.ID, dates)
	}
	if _, _, err := svc.BookingDates(context.Background(), 42); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing booking error = %v", err)
	}
}
