package http

import (
	"time"

	"mandir/internal/core"
	"mandir/internal/services"
)

// JSON shapes returned by the API. Amounts are given both as a rupee string
// and as integer paise.

type moneyView struct {
	Amount string `json:"amount"`
	Paise  int64  `json:"paise"`
}

func newMoneyView(m core.Money) moneyView {
	return moneyView{Amount: m.String(), Paise: m.Cents}
}

type pujaView struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       moneyView `json:"price"`
	Active      bool      `json:"active"`
}

type referenceView struct {
	ID     int64  `json:"id"`
	NameEN string `json:"name_en"`
	NameHI string `json:"name_hi,omitempty"`
	NameTA string `json:"name_ta,omitempty"`
}

type ruleView struct {
	Duration   string   `json:"duration"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	WeeklyDays []string `json:"weekly_days,omitempty"`
	DayOfMonth int      `json:"day_of_month,omitempty"`
}

func newRuleView(r core.RecurrenceRule) ruleView {
	return ruleView{
		Duration:   string(r.Kind()),
		StartDate:  r.Start().String(),
		EndDate:    r.End().String(),
		WeeklyDays: r.Weekdays().Names(),
		DayOfMonth: r.DayOfMonth(),
	}
}

type familyMemberView struct {
	Name         string `json:"name"`
	NakshatramID int64  `json:"nakshatram_id,omitempty"`
	GotramID     int64  `json:"gotram_id,omitempty"`
	RashiID      int64  `json:"rashi_id,omitempty"`
}

type bookingView struct {
	ID          int64              `json:"id"`
	PujaID      int64              `json:"puja_id"`
	PujaName    string             `json:"puja_name,omitempty"`
	Rule        ruleView           `json:"rule"`
	UnitPrice   moneyView          `json:"unit_price"`
	TotalPrice  moneyView          `json:"total_price"`
	FirstName   string             `json:"first_name"`
	LastName    string             `json:"last_name,omitempty"`
	Mobile      string             `json:"mobile"`
	Email       string             `json:"email,omitempty"`
	City        string             `json:"city,omitempty"`
	Family      []familyMemberView `json:"family"`
	Remarks     string             `json:"remarks,omitempty"`
	PaymentDate string             `json:"payment_date"`
	CreatedOn   string             `json:"created_on"`
	CreatedAt   time.Time          `json:"created_at"`
	SyncStatus  string             `json:"sync_status,omitempty"`
}

func newBookingView(b core.Booking) bookingView {
	v := bookingView{
		ID:          b.ID,
		PujaID:      b.PujaID,
		PujaName:    b.PujaName,
		Rule:        newRuleView(b.Rule),
		UnitPrice:   newMoneyView(b.UnitPrice),
		TotalPrice:  newMoneyView(b.TotalPrice),
		FirstName:   b.Devotee.FirstName,
		LastName:    b.Devotee.LastName,
		Mobile:      b.Devotee.Mobile,
		Email:       b.Devotee.Email,
		City:        b.Devotee.City,
		Family:      make([]familyMemberView, 0, len(b.Family)),
		Remarks:     b.Remarks,
		PaymentDate: b.PaymentDate.String(),
		CreatedOn:   b.CreatedOn.String(),
		CreatedAt:   b.CreatedAt,
		SyncStatus:  b.SyncStatus,
	}
	for _, f := range b.Family {
		v.Family = append(v.Family, familyMemberView(f))
	}
	return v
}

type quoteView struct {
	PujaID      int64     `json:"puja_id"`
	Occurrences int       `json:"occurrences"`
	Dates       []string  `json:"dates"`
	UnitPrice   moneyView `json:"unit_price"`
	Total       moneyView `json:"total"`
}

func newQuoteView(pujaID int64, q services.Quote) quoteView {
	v := quoteView{
		PujaID:      pujaID,
		Occurrences: q.Units(),
		Dates:       make([]string, len(q.Dates)),
		UnitPrice:   newMoneyView(q.UnitPrice),
		Total:       newMoneyView(q.Total),
	}
	for i, d := range q.Dates {
		v.Dates[i] = d.String()
	}
	return v
}

type lineItemView struct {
	GroupKey  string       `json:"group_key"`
	Date      string       `json:"date"`
	PujaID    int64        `json:"puja_id"`
	PujaName  string       `json:"puja_name,omitempty"`
	Count     int          `json:"count,omitempty"`
	UnitPrice *moneyView   `json:"unit_price,omitempty"`
	Total     moneyView    `json:"total"`
	Booking   *bookingView `json:"booking,omitempty"`
}

type summaryView struct {
	GroupBy      string         `json:"group_by"`
	Start        string         `json:"start"`
	End          string         `json:"end"`
	PujaID       int64          `json:"puja_id,omitempty"`
	OverallTotal moneyView      `json:"overall_total"`
	LineItems    []lineItemView `json:"line_items"`
}

func newSummaryView(s core.CollectionSummary) summaryView {
	v := summaryView{
		GroupBy:      string(s.Query.GroupBy),
		Start:        s.Query.Start.String(),
		End:          s.Query.End.String(),
		PujaID:       s.Query.PujaID,
		OverallTotal: newMoneyView(s.OverallTotal),
		LineItems:    make([]lineItemView, 0, len(s.LineItems)),
	}
	for _, li := range s.LineItems {
		item := lineItemView{
			GroupKey: li.GroupKey(),
			Date:     li.Date.String(),
			PujaID:   li.PujaID,
			PujaName: li.PujaName,
			Count:    li.Count,
			Total:    newMoneyView(li.Total),
		}
		if li.UnitPrice.Cents != 0 {
			up := newMoneyView(li.UnitPrice)
			item.UnitPrice = &up
		}
		if li.Booking != nil {
			bv := newBookingView(*li.Booking)
			item.Booking = &bv
		}
		v.LineItems = append(v.LineItems, item)
	}
	return v
}

type scheduledBookingView struct {
	BookingID int64  `json:"booking_id"`
	PujaID    int64  `json:"puja_id"`
	PujaName  string `json:"puja_name,omitempty"`
}

type dayScheduleView struct {
	Date     string                 `json:"date"`
	Weekday  string                 `json:"weekday"`
	Bookings []scheduledBookingView `json:"bookings"`
}

func newScheduleView(days []core.DaySchedule) []dayScheduleView {
	out := make([]dayScheduleView, len(days))
	for i, d := range days {
		v := dayScheduleView{Date: d.Date.String(), Weekday: d.Date.Weekday().String(), Bookings: make([]scheduledBookingView, len(d.Bookings))}
		for j, b := range d.Bookings {
			v.Bookings[j] = scheduledBookingView(b)
		}
		out[i] = v
	}
	return out
}

type rosterMemberView struct {
	Name       string `json:"name"`
	Nakshatram string `json:"nakshatram,omitempty"`
	Gotram     string `json:"gotram,omitempty"`
	Rashi      string `json:"rashi,omitempty"`
}

type rosterEntryView struct {
	Date        string             `json:"date"`
	PujaID      int64              `json:"puja_id"`
	PujaName    string             `json:"puja_name"`
	BookingID   int64              `json:"booking_id"`
	DevoteeName string             `json:"devotee_name"`
	Mobile      string             `json:"mobile,omitempty"`
	Remarks     string             `json:"remarks,omitempty"`
	Family      []rosterMemberView `json:"family"`
}

func newRosterView(entries []core.RosterEntry) []rosterEntryView {
	out := make([]rosterEntryView, len(entries))
	for i, e := range entries {
		v := rosterEntryView{
			Date:        e.Date.String(),
			PujaID:      e.PujaID,
			PujaName:    e.PujaName,
			BookingID:   e.BookingID,
			DevoteeName: e.DevoteeName,
			Mobile:      e.Mobile,
			Remarks:     e.Remarks,
			Family:      make([]rosterMemberView, len(e.Family)),
		}
		for j, f := range e.Family {
			v.Family[j] = rosterMemberView{Name: f.Name, Nakshatram: f.Nakshatram.NameEN, Gotram: f.Gotram.NameEN, Rashi: f.Rashi.NameEN}
		}
		out[i] = v
	}
	return out
}
