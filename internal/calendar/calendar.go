// Package calendar renders bookings as iCalendar files, one all-day event
// per occurrence.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"mandir/internal/core"
)

const productID = "-//Mandir//Puja Bookings//EN"

// uidNamespace scopes event UIDs so that re-downloading a booking's calendar
// updates events instead of duplicating them.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mandir:booking"))

// EventUID is stable for a booking and date.
func EventUID(bookingID int64, d core.Date) string {
	return uuid.NewSHA1(uidNamespace, []byte(fmt.Sprintf("%d/%s", bookingID, d))).String()
}

// ForBooking builds a calendar with one event for each date of b.
func ForBooking(b core.Booking, dates []core.Date, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	summary := b.PujaName
	if summary == "" {
		summary = fmt.Sprintf("Puja #%d", b.PujaID)
	}
	desc := description(b)

	for _, d := range dates {
		vevent := ical.NewEvent()
		vevent.Props.SetText(ical.PropUID, EventUID(b.ID, d))
		vevent.Props.SetText(ical.PropSummary, summary)
		if desc != "" {
			vevent.Props.SetText(ical.PropDescription, desc)
		}
		vevent.Props.SetDate(ical.PropDateTimeStart, d.Time)
		vevent.Props.SetDate(ical.PropDateTimeEnd, d.AddDays(1).Time)
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		cal.Children = append(cal.Children, vevent.Component)
	}
	return cal
}

func description(b core.Booking) string {
	var parts []string
	if name := b.Devotee.FullName(); name != "" {
		parts = append(parts, "Devotee: "+name)
	}
	if len(b.Family) > 0 {
		names := make([]string, len(b.Family))
		for i, f := range b.Family {
			names[i] = f.Name
		}
		parts = append(parts, "Family: "+strings.Join(names, ", "))
	}
	if b.Remarks != "" {
		parts = append(parts, "Remarks: "+b.Remarks)
	}
	parts = append(parts, fmt.Sprintf("Booking #%d", b.ID))
	return strings.Join(parts, "\n")
}

func Write(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}
