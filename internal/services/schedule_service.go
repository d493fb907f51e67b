package services

import (
	"context"
	"fmt"
	"strconv"

	"mandir/internal/core"
)

// ScheduleService answers "what happens when" questions from stored occurrences.
type ScheduleService struct {
	collections  CollectionStore
	bookings     BookingReader
	maxRangeDays int
}

func NewScheduleService(collections CollectionStore, bookings BookingReader, maxRangeDays int) *ScheduleService {
	return &ScheduleService{collections: collections, bookings: bookings, maxRangeDays: maxRangeDays}
}

// DailySchedule lists, for every day in [start, end], the bookings active
// that day. Days without bookings are included with an empty list.
func (s *ScheduleService) DailySchedule(ctx context.Context, start, end core.Date, pujaID int64) ([]core.DaySchedule, error) {
	if err := core.ValidateRange(start, end, s.maxRangeDays); err != nil {
		return nil, err
	}
	rows, err := s.collections.QueryOccurrences(ctx, start, end, pujaID)
	if err != nil {
		return nil, fmt.Errorf("%w: query occurrences: %w", core.ErrStoreFailure, err)
	}

	byDay := make(map[string][]core.ScheduledBooking)
	for _, r := range rows {
		k := r.Date.String()
		byDay[k] = append(byDay[k], core.ScheduledBooking{
			BookingID: r.BookingID,
			PujaID:    r.PujaID,
			PujaName:  r.PujaName,
		})
	}

	days := make([]core.DaySchedule, 0, start.DaysUntil(end)+1)
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		bookings := byDay[d.String()]
		if bookings == nil {
			bookings = []core.ScheduledBooking{}
		}
		days = append(days, core.DaySchedule{Date: d, Bookings: bookings})
	}
	return days, nil
}

// Roster returns the pujas to perform on day, one entry per booking with
// its family members, in storage order.
func (s *ScheduleService) Roster(ctx context.Context, day core.Date, pujaID int64) ([]core.RosterEntry, error) {
	if err := day.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidRange, err)
	}
	rows, err := s.bookings.QueryRoster(ctx, day, pujaID)
	if err != nil {
		return nil, fmt.Errorf("%w: query roster: %w", core.ErrStoreFailure, err)
	}

	index := make(map[string]int)
	entries := make([]core.RosterEntry, 0)
	for _, r := range rows {
		k := strconv.FormatInt(r.PujaID, 10) + "_" + strconv.FormatInt(r.BookingID, 10)
		i, ok := index[k]
		if !ok {
			i = len(entries)
			index[k] = i
			entries = append(entries, core.RosterEntry{
				Date:        r.Date,
				PujaID:      r.PujaID,
				PujaName:    r.PujaName,
				BookingID:   r.BookingID,
				DevoteeName: r.DevoteeName,
				Mobile:      r.Mobile,
				Remarks:     r.Remarks,
				Family:      []core.FamilyMemberDetail{},
			})
		}
		if r.Member != nil {
			entries[i].Family = append(entries[i].Family, *r.Member)
		}
	}
	return entries, nil
}

// ListBookings returns bookings created in [start, end], newest first.
func (s *ScheduleService) ListBookings(ctx context.Context, start, end core.Date, pujaID int64) ([]core.Booking, error) {
	if err := core.ValidateRange(start, end, s.maxRangeDays); err != nil {
		return nil, err
	}
	bookings, err := s.collections.QueryBookingsByCreatedDate(ctx, start, end, pujaID)
	if err != nil {
		return nil, fmt.Errorf("%w: query bookings: %w", core.ErrStoreFailure, err)
	}
	if bookings == nil {
		bookings = []core.Booking{}
	}
	return bookings, nil
}

// BookingDates loads a booking and re-expands its rule.
func (s *ScheduleService) BookingDates(ctx context.Context, id int64) (core.Booking, []core.Date, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return core.Booking{}, nil, err
	}
	dates, err := Expander{}.Expand(b.Rule)
	if err != nil {
		return core.Booking{}, nil, err
	}
	return b, dates, nil
}
