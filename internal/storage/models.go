package storage

import "database/sql"

type Puja struct {
	ID          int64
	Name        string
	Description string
	PriceCents  int64
	Active      bool
}

type ReferenceRow struct {
	ID     int64
	NameEn string
	NameHi string
	NameTa string
}

type PujaBooking struct {
	ID              int64
	PujaID          int64
	PujaName        string
	DurationType    string
	StartDate       string
	EndDate         string
	WeeklyDays      int64
	UnitPriceCents  int64
	TotalPriceCents int64
	FirstName       string
	LastName        string
	MobileNumber    string
	Email           string
	Address1        string
	Address2        string
	City            string
	State           string
	PinCode         string
	Remarks         string
	PaymentDate     string
	SyncStatus      string
	CreatedAt       string
	CreatedOn       string
}

type FamilyMember struct {
	ID           int64
	BookingID    int64
	Name         string
	NakshatramID sql.NullInt64
	GotramID     sql.NullInt64
	RashiID      sql.NullInt64
}

type OccurrenceRow struct {
	BookingID            int64
	PujaID               int64
	PujaName             string
	Date                 string
	PriceCents           int64
	BookedUnitPriceCents int64
}

type RosterRow struct {
	Date         string
	PujaID       int64
	PujaName     string
	BookingID    int64
	FirstName    string
	LastName     string
	MobileNumber string
	Remarks      string
	MemberName   sql.NullString
	Nakshatram   ReferenceRow
	Gotram       ReferenceRow
	Rashi        ReferenceRow
}
