package google

import (
	"strings"
	"time"

	"mandir/internal/core"
)

var bookingHeader = []interface{}{
	"Booking ID", "Created At", "Puja", "Duration", "Start", "End", "Weekdays",
	"Unit Price", "Total", "Devotee", "Mobile", "Email", "City", "Family",
	"Payment Date", "Remarks",
}

var rosterHeader = []interface{}{
	"Date", "Puja", "Booking ID", "Devotee", "Mobile", "Family Member",
	"Nakshatram", "Gotram", "Rashi", "Remarks",
}

// bookingRow flattens b into one register row. Amounts are written as plain
// decimals so the sheet can format them.
func bookingRow(b core.Booking) []interface{} {
	names := make([]string, 0, len(b.Family))
	for _, f := range b.Family {
		names = append(names, f.Name)
	}
	row := []interface{}{
		b.ID,
		b.CreatedAt.UTC().Format(time.RFC3339),
		b.PujaName,
		string(b.Rule.Kind()),
		b.Rule.Start().String(),
		b.Rule.End().String(),
		"",
		b.UnitPrice.String(),
		b.TotalPrice.String(),
		b.Devotee.FullName(),
		b.Devotee.Mobile,
		b.Devotee.Email,
		b.Devotee.City,
		strings.Join(names, ", "),
		b.PaymentDate.String(),
		b.Remarks,
	}
	if b.Rule.Kind() == core.Weekly {
		row[6] = strings.Join(b.Rule.Weekdays().Names(), ", ")
	}
	return row
}

// rosterRows renders a header, then one row per family member. A booking
// without family members still gets a row.
func rosterRows(day core.Date, entries []core.RosterEntry) [][]interface{} {
	rows := [][]interface{}{{"Roster for " + day.String()}, rosterHeader}
	for _, e := range entries {
		base := []interface{}{e.Date.String(), e.PujaName, e.BookingID, e.DevoteeName, e.Mobile}
		if len(e.Family) == 0 {
			rows = append(rows, append(append([]interface{}{}, base...), "", "", "", "", e.Remarks))
			continue
		}
		for _, f := range e.Family {
			row := append([]interface{}{}, base...)
			row = append(row, f.Name, f.Nakshatram.NameEN, f.Gotram.NameEN, f.Rashi.NameEN, e.Remarks)
			rows = append(rows, row)
		}
	}
	return rows
}

// collectionRows renders a summary: a title line, the column header, the
// line items and a closing total row.
func collectionRows(s core.CollectionSummary) [][]interface{} {
	q := s.Query
	title := "Collections " + q.Start.String() + " to " + q.End.String() + " by " + string(q.GroupBy)
	rows := [][]interface{}{{title}}

	if q.GroupBy == core.GroupByOccurrenceDate {
		rows = append(rows, []interface{}{"Date", "Puja", "Count", "Unit Price", "Total"})
		for _, li := range s.LineItems {
			rows = append(rows, []interface{}{li.Date.String(), li.PujaName, li.Count, li.UnitPrice.String(), li.Total.String()})
		}
		return append(rows, []interface{}{"Total", "", "", "", s.OverallTotal.String()})
	}

	rows = append(rows, []interface{}{"Date", "Booking ID", "Puja", "Devotee", "Total"})
	for _, li := range s.LineItems {
		devotee := ""
		if li.Booking != nil {
			devotee = li.Booking.Devotee.FullName()
		}
		rows = append(rows, []interface{}{li.Date.String(), li.BookingID, li.PujaName, devotee, li.Total.String()})
	}
	return append(rows, []interface{}{"Total", "", "", "", s.OverallTotal.String()})
}

// lastColumn returns the A1 column letter for a 1-based column count.
func lastColumn(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}
