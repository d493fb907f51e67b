package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Sync states of a booking towards the spreadsheet export.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Puja struct {
		ID          int64
		Name        string
		Description string
		Price       Money
		Active      bool
	}

	// Devotee holds the payer details captured on the booking form.
	Devotee struct {
		FirstName string
		LastName  string
		Mobile    string
		Email     string
		Address1  string
		Address2  string
		City      string
		State     string
		PinCode   string
	}

	FamilyMember struct {
		Name         string
		NakshatramID int64
		GotramID     int64
		RashiID      int64
	}

	Booking struct {
		ID          int64
		PujaID      int64
		PujaName    string
		Rule        RecurrenceRule
		UnitPrice   Money // puja price when the booking was made
		TotalPrice  Money
		Devotee     Devotee
		Family      []FamilyMember
		Remarks     string
		PaymentDate Date
		SyncStatus  string
		CreatedAt   time.Time
		CreatedOn   Date // calendar date of CreatedAt in the temple zone
	}

	Occurrence struct {
		BookingID int64
		PujaID    int64
		Date      Date
	}

	// OccurrenceRow is an occurrence joined with its puja and booking prices.
	OccurrenceRow struct {
		BookingID    int64
		PujaID       int64
		PujaName     string
		Date         Date
		CurrentPrice Money
		BookedPrice  Money
	}

	// ReferenceItem is a nakshatram, gotram or rashi lookup entry.
	ReferenceItem struct {
		ID       int64
		NameEN   string
		NameHI   string
		NameTA   string
		Category string
	}
)

var (
	ErrInvalidRule    = errors.New("invalid recurrence rule")
	ErrInvalidRange   = errors.New("invalid date range")
	ErrInvalidGroupBy = errors.New("invalid group by")
	ErrStoreFailure   = errors.New("store failure")
	ErrNotFound       = errors.New("not found")

	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidPuja   = errors.New("invalid puja")
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidMobile = errors.New("invalid mobile number")
	ErrInvalidEmail  = errors.New("invalid email")
)

var (
	mobilePattern = regexp.MustCompile(`^\+?[0-9]{10,13}$`)
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t, nil), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// DaysUntil counts calendar days from d to o; negative when o is earlier.
func (d Date) DaysUntil(o Date) int {
	return int(o.Sub(d.Time).Hours() / 24)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Times multiplies a unit amount by a count.
func (m Money) Times(n int) Money {
	return Money{Cents: m.Cents * int64(n)}
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (p Puja) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return p.Price.Validate()
}

// WeekdayName returns the English weekday name stored next to each occurrence.
func (o Occurrence) WeekdayName() string {
	return o.Date.Weekday().String()
}

func (d Devotee) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d Devotee) Validate() error {
	if strings.TrimSpace(d.FirstName) == "" {
		return ErrEmptyName
	}
	if len(d.FirstName) > 100 || len(d.LastName) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !mobilePattern.MatchString(strings.TrimSpace(d.Mobile)) {
		return ErrInvalidMobile
	}
	if e := strings.TrimSpace(d.Email); e != "" && !emailPattern.MatchString(e) {
		return ErrInvalidEmail
	}
	return nil
}

func (f FamilyMember) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if f.NakshatramID < 0 || f.GotramID < 0 || f.RashiID < 0 {
		return errors.New("invalid reference id")
	}
	return nil
}

// Validate checks the fields a devotee supplies. Prices are set by the server.
func (b Booking) Validate() error {
	if b.PujaID <= 0 {
		return ErrInvalidPuja
	}
	if err := b.Rule.Validate(); err != nil {
		return err
	}
	if err := b.Devotee.Validate(); err != nil {
		return err
	}
	for i, f := range b.Family {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("family member %d: %w", i+1, err)
		}
	}
	if len(b.Remarks) > 500 {
		return errors.New("remarks too long (max 500 characters)")
	}
	return nil
}

// Occurrences turns expanded dates into occurrence records for this booking.
func (b Booking) Occurrences(dates []Date) []Occurrence {
	out := make([]Occurrence, len(dates))
	for i, d := range dates {
		out[i] = Occurrence{BookingID: b.ID, PujaID: b.PujaID, Date: d}
	}
	return out
}
