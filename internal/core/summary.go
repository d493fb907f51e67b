package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	GroupByPaymentDate    GroupBy = "payment_date"
	GroupByOccurrenceDate GroupBy = "puja_date"
	GroupByBookingDate    GroupBy = "booking_date"
)

type (
	GroupBy string

	CollectionQuery struct {
		Start   Date
		End     Date
		PujaID  int64 // 0 means all pujas
		GroupBy GroupBy
	}

	// LineItem is one row of a collection summary. Occurrence grouping fills
	// Date, PujaID and Count; booking modes fill BookingID and Booking.
	LineItem struct {
		Date      Date
		PujaID    int64
		PujaName  string
		BookingID int64
		Count     int
		UnitPrice Money
		Total     Money
		Booking   *Booking
	}

	CollectionSummary struct {
		Query        CollectionQuery
		OverallTotal Money
		LineItems    []LineItem
	}

	// ScheduledBooking is a booking active on a given day.
	ScheduledBooking struct {
		BookingID int64
		PujaID    int64
		PujaName  string
	}

	DaySchedule struct {
		Date     Date
		Bookings []ScheduledBooking
	}

	// FamilyMemberDetail is a family member with reference names resolved.
	FamilyMemberDetail struct {
		Name       string
		Nakshatram ReferenceItem
		Gotram     ReferenceItem
		Rashi      ReferenceItem
	}

	// RosterRow is one occurrence of the day joined to a family member.
	// Member is nil for bookings without family members.
	RosterRow struct {
		Date        Date
		PujaID      int64
		PujaName    string
		BookingID   int64
		DevoteeName string
		Mobile      string
		Remarks     string
		Member      *FamilyMemberDetail
	}

	RosterEntry struct {
		Date        Date
		PujaID      int64
		PujaName    string
		BookingID   int64
		DevoteeName string
		Mobile      string
		Remarks     string
		Family      []FamilyMemberDetail
	}
)

func ParseGroupBy(s string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(s))); g {
	case GroupByPaymentDate, GroupByOccurrenceDate, GroupByBookingDate:
		return g, nil
	case "occurrence_date":
		return GroupByOccurrenceDate, nil
	case "created_date":
		return GroupByBookingDate, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGroupBy, s)
	}
}

// ValidateRange checks an inclusive date range, optionally bounded to maxDays.
func ValidateRange(start, end Date, maxDays int) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	if end.Before(start.Time) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
	}
	if maxDays > 0 && start.DaysUntil(end)+1 > maxDays {
		return fmt.Errorf("%w: range exceeds %d days", ErrInvalidRange, maxDays)
	}
	return nil
}

func (q CollectionQuery) Validate() error {
	if err := ValidateRange(q.Start, q.End, 0); err != nil {
		return err
	}
	switch q.GroupBy {
	case GroupByPaymentDate, GroupByOccurrenceDate, GroupByBookingDate:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidGroupBy, q.GroupBy)
	}
}

// Key identifies the query, e.g. for caching summaries.
func (q CollectionQuery) Key() string {
	return strings.Join([]string{
		string(q.GroupBy), q.Start.String(), q.End.String(), strconv.FormatInt(q.PujaID, 10),
	}, "|")
}

// GroupKey names the line item: "2024-02-01/3" for occurrence groups and
// "booking/12" for booking rows.
func (li LineItem) GroupKey() string {
	if li.BookingID != 0 {
		return "booking/" + strconv.FormatInt(li.BookingID, 10)
	}
	return li.Date.String() + "/" + strconv.FormatInt(li.PujaID, 10)
}

// IsEmpty reports whether the summary matched nothing.
func (s CollectionSummary) IsEmpty() bool {
	return len(s.LineItems) == 0
}
