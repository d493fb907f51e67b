package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Equal(NewDate(2024, 2, 29).Time) {
		t.Fatalf("got %s", d)
	}
	if d.String() != "2024-02-29" {
		t.Fatalf("String() = %q", d.String())
	}
	for _, bad := range []string{"", "2024-02-30", "01/02/2024"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("%q expected error", bad)
		}
	}
}

func TestDateOf(t *testing.T) {
	ist, err := ParseUTCOffset("+05:30")
	if err != nil {
		t.Fatal(err)
	}
	// 20:00 UTC on Jan 31 is already Feb 1 in India.
	instant := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)
	if got := DateOf(instant, ist); got.String() != "2024-02-01" {
		t.Fatalf("DateOf IST = %s", got)
	}
	if got := DateOf(instant, time.UTC); got.String() != "2024-01-31" {
		t.Fatalf("DateOf UTC = %s", got)
	}
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, 2, 28)
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Fatalf("AddDays = %s", got)
	}
	if got := d.DaysUntil(NewDate(2024, 3, 1)); got != 2 {
		t.Fatalf("DaysUntil = %d", got)
	}
	if got := d.DaysUntil(NewDate(2024, 2, 27)); got != -1 {
		t.Fatalf("DaysUntil backwards = %d", got)
	}
}

func TestParseUTCOffset(t *testing.T) {
	cases := []struct {
		in      string
		seconds int
		ok      bool
	}{
		{"+05:30", 19800, true},
		{"+0530", 19800, true},
		{"-03:00", -10800, true},
		{"UTC", 0, true},
		{"", 0, true},
		{"05:30", 0, false},
		{"+5:30", 0, false},
		{"+15:00", 0, false},
	}
	for _, tc := range cases {
		loc, err := ParseUTCOffset(tc.in)
		if !tc.ok {
			if err == nil {
				t.Errorf("%q expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q unexpected error: %v", tc.in, err)
			continue
		}
		_, off := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
		if off != tc.seconds {
			t.Errorf("%q offset = %d, want %d", tc.in, off, tc.seconds)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func validBooking(t *testing.T) Booking {
	t.Helper()
	rule, err := NewOneTime(NewDate(2024, 3, 1))
	if err != nil {
		t.Fatal(err)
	}
	return Booking{
		PujaID: 1,
		Rule:   rule,
		Devotee: Devotee{
			FirstName: "Lakshmi",
			LastName:  "Iyer",
			Mobile:    "9876543210",
			Email:     "lakshmi@example.org",
		},
		Family: []FamilyMember{{Name: "Ravi", NakshatramID: 3, GotramID: 2, RashiID: 5}},
	}
}

func TestBookingValidate(t *testing.T) {
	if err := validBooking(t).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Booking)
		want   error
	}{
		{"missing puja", func(b *Booking) { b.PujaID = 0 }, ErrInvalidPuja},
		{"zero rule", func(b *Booking) { b.Rule = RecurrenceRule{} }, ErrInvalidRule},
		{"empty first name", func(b *Booking) { b.Devotee.FirstName = " " }, ErrEmptyName},
		{"short mobile", func(b *Booking) { b.Devotee.Mobile = "12345" }, ErrInvalidMobile},
		{"bad email", func(b *Booking) { b.Devotee.Email = "nope" }, ErrInvalidEmail},
		{"unnamed family member", func(b *Booking) { b.Family[0].Name = "" }, ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking(t)
			tt.mutate(&b)
			if err := b.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBookingOccurrences(t *testing.T) {
	b := Booking{ID: 7, PujaID: 3}
	occ := b.Occurrences([]Date{NewDate(2024, 1, 1), NewDate(2024, 1, 4)})
	if len(occ) != 2 {
		t.Fatalf("got %d occurrences", len(occ))
	}
	if occ[1].BookingID != 7 || occ[1].PujaID != 3 || occ[1].WeekdayName() != "Thursday" {
		t.Fatalf("unexpected occurrence %+v (%s)", occ[1], occ[1].WeekdayName())
	}
}
