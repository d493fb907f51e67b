package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const listActivePujas = `
SELECT id, name, description, price_cents, active
FROM pujas
WHERE active = 1
ORDER BY id
`

func (q *Queries) ListActivePujas(ctx context.Context) ([]Puja, error) {
	rows, err := q.db.QueryContext(ctx, listActivePujas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Puja
	for rows.Next() {
		var i Puja
		if err := rows.Scan(&i.ID, &i.Name, &i.Description, &i.PriceCents, &i.Active); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getPuja = `
SELECT id, name, description, price_cents, active
FROM pujas
WHERE id = ?
`

func (q *Queries) GetPuja(ctx context.Context, id int64) (Puja, error) {
	var i Puja
	err := q.db.QueryRowContext(ctx, getPuja, id).Scan(&i.ID, &i.Name, &i.Description, &i.PriceCents, &i.Active)
	return i, err
}

const getPujaPrice = `SELECT price_cents FROM pujas WHERE id = ?`

func (q *Queries) GetPujaPrice(ctx context.Context, id int64) (int64, error) {
	var cents int64
	err := q.db.QueryRowContext(ctx, getPujaPrice, id).Scan(&cents)
	return cents, err
}

const updatePujaPrice = `UPDATE pujas SET price_cents = ? WHERE id = ?`

func (q *Queries) UpdatePujaPrice(ctx context.Context, id, cents int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updatePujaPrice, cents, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// referenceTables whitelists the lookup tables that ListReferences may read.
var referenceTables = map[string]string{
	"nakshatram": "nakshatram",
	"gotram":     "gotram",
	"rashi":      "rashi",
}

func (q *Queries) ListReferences(ctx context.Context, category string) ([]ReferenceRow, error) {
	table, ok := referenceTables[category]
	if !ok {
		return nil, fmt.Errorf("unknown reference category %q", category)
	}
	rows, err := q.db.QueryContext(ctx, "SELECT id, name_en, name_hi, name_ta FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReferenceRow
	for rows.Next() {
		var i ReferenceRow
		if err := rows.Scan(&i.ID, &i.NameEn, &i.NameHi, &i.NameTa); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createBooking = `
INSERT INTO puja_booking (
    puja_id, duration_type, start_date, end_date, weekly_days,
    unit_price_cents, total_price_cents,
    first_name, last_name, mobile_number, email,
    address_1, address_2, city, state, pin_code,
    remarks, payment_date, sync_status, created_at, created_on
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateBooking(ctx context.Context, arg PujaBooking) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createBooking,
		arg.PujaID, arg.DurationType, arg.StartDate, arg.EndDate, arg.WeeklyDays,
		arg.UnitPriceCents, arg.TotalPriceCents,
		arg.FirstName, arg.LastName, arg.MobileNumber, arg.Email,
		arg.Address1, arg.Address2, arg.City, arg.State, arg.PinCode,
		arg.Remarks, arg.PaymentDate, arg.SyncStatus, arg.CreatedAt, arg.CreatedOn,
	).Scan(&id)
	return id, err
}

const createFamilyMember = `
INSERT INTO family_members (booking_id, name, nakshatram_id, gotram_id, rashi_id)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreateFamilyMember(ctx context.Context, arg FamilyMember) error {
	_, err := q.db.ExecContext(ctx, createFamilyMember, arg.BookingID, arg.Name, arg.NakshatramID, arg.GotramID, arg.RashiID)
	return err
}

const createBookingDate = `
INSERT INTO booking_dates (booking_id, puja_id, date, day)
VALUES (?, ?, ?, ?)
`

type CreateBookingDateParams struct {
	BookingID int64
	PujaID    int64
	Date      string
	Day       string
}

func (q *Queries) CreateBookingDate(ctx context.Context, arg CreateBookingDateParams) error {
	_, err := q.db.ExecContext(ctx, createBookingDate, arg.BookingID, arg.PujaID, arg.Date, arg.Day)
	return err
}

const bookingColumns = `
    pb.id, pb.puja_id, p.name, pb.duration_type, pb.start_date, pb.end_date, pb.weekly_days,
    pb.unit_price_cents, pb.total_price_cents,
    pb.first_name, pb.last_name, pb.mobile_number, pb.email,
    pb.address_1, pb.address_2, pb.city, pb.state, pb.pin_code,
    pb.remarks, pb.payment_date, pb.sync_status, pb.created_at, pb.created_on
`

func scanBooking(scan func(dest ...interface{}) error) (PujaBooking, error) {
	var i PujaBooking
	err := scan(
		&i.ID, &i.PujaID, &i.PujaName, &i.DurationType, &i.StartDate, &i.EndDate, &i.WeeklyDays,
		&i.UnitPriceCents, &i.TotalPriceCents,
		&i.FirstName, &i.LastName, &i.MobileNumber, &i.Email,
		&i.Address1, &i.Address2, &i.City, &i.State, &i.PinCode,
		&i.Remarks, &i.PaymentDate, &i.SyncStatus, &i.CreatedAt, &i.CreatedOn,
	)
	return i, err
}

func (q *Queries) queryBookings(ctx context.Context, query string, args ...interface{}) ([]PujaBooking, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PujaBooking
	for rows.Next() {
		i, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getBooking = `
SELECT` + bookingColumns + `
FROM puja_booking pb
JOIN pujas p ON p.id = pb.puja_id
WHERE pb.id = ?
`

func (q *Queries) GetBooking(ctx context.Context, id int64) (PujaBooking, error) {
	return scanBooking(q.db.QueryRowContext(ctx, getBooking, id).Scan)
}

const listBookingsByPaymentDate = `
SELECT` + bookingColumns + `
FROM puja_booking pb
JOIN pujas p ON p.id = pb.puja_id
WHERE pb.payment_date BETWEEN ? AND ?
  AND (? = 0 OR pb.puja_id = ?)
ORDER BY pb.id
`

type DateRangeParams struct {
	Start  string
	End    string
	PujaID int64
}

func (q *Queries) ListBookingsByPaymentDate(ctx context.Context, arg DateRangeParams) ([]PujaBooking, error) {
	return q.queryBookings(ctx, listBookingsByPaymentDate, arg.Start, arg.End, arg.PujaID, arg.PujaID)
}

const listBookingsByCreatedOn = `
SELECT` + bookingColumns + `
FROM puja_booking pb
JOIN pujas p ON p.id = pb.puja_id
WHERE pb.created_on BETWEEN ? AND ?
  AND (? = 0 OR pb.puja_id = ?)
ORDER BY pb.created_at DESC, pb.id DESC
`

func (q *Queries) ListBookingsByCreatedOn(ctx context.Context, arg DateRangeParams) ([]PujaBooking, error) {
	return q.queryBookings(ctx, listBookingsByCreatedOn, arg.Start, arg.End, arg.PujaID, arg.PujaID)
}

const listFamilyMembers = `
SELECT id, booking_id, name, nakshatram_id, gotram_id, rashi_id
FROM family_members
WHERE booking_id = ?
ORDER BY id
`

func (q *Queries) ListFamilyMembers(ctx context.Context, bookingID int64) ([]FamilyMember, error) {
	rows, err := q.db.QueryContext(ctx, listFamilyMembers, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FamilyMember
	for rows.Next() {
		var i FamilyMember
		if err := rows.Scan(&i.ID, &i.BookingID, &i.Name, &i.NakshatramID, &i.GotramID, &i.RashiID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOccurrences = `
SELECT bd.booking_id, bd.puja_id, p.name, bd.date, p.price_cents, pb.unit_price_cents
FROM booking_dates bd
JOIN pujas p ON p.id = bd.puja_id
JOIN puja_booking pb ON pb.id = bd.booking_id
WHERE bd.date BETWEEN ? AND ?
  AND (? = 0 OR bd.puja_id = ?)
ORDER BY bd.date, bd.puja_id, bd.id
`

func (q *Queries) ListOccurrences(ctx context.Context, arg DateRangeParams) ([]OccurrenceRow, error) {
	rows, err := q.db.QueryContext(ctx, listOccurrences, arg.Start, arg.End, arg.PujaID, arg.PujaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OccurrenceRow
	for rows.Next() {
		var i OccurrenceRow
		if err := rows.Scan(&i.BookingID, &i.PujaID, &i.PujaName, &i.Date, &i.PriceCents, &i.BookedUnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listRoster = `
SELECT bd.date, bd.puja_id, p.name, pb.id,
       pb.first_name, pb.last_name, pb.mobile_number, pb.remarks,
       fm.name,
       n.id, n.name_en, n.name_hi, n.name_ta,
       g.id, g.name_en, g.name_hi, g.name_ta,
       r.id, r.name_en, r.name_hi, r.name_ta
FROM booking_dates bd
JOIN puja_booking pb ON pb.id = bd.booking_id
JOIN pujas p ON p.id = bd.puja_id
LEFT JOIN family_members fm ON fm.booking_id = pb.id
LEFT JOIN nakshatram n ON n.id = fm.nakshatram_id
LEFT JOIN gotram g ON g.id = fm.gotram_id
LEFT JOIN rashi r ON r.id = fm.rashi_id
WHERE bd.date = ?
  AND (? = 0 OR bd.puja_id = ?)
ORDER BY bd.puja_id, pb.id, fm.id
`

type nullReference struct {
	ID     sql.NullInt64
	NameEn sql.NullString
	NameHi sql.NullString
	NameTa sql.NullString
}

func (n nullReference) row() ReferenceRow {
	return ReferenceRow{ID: n.ID.Int64, NameEn: n.NameEn.String, NameHi: n.NameHi.String, NameTa: n.NameTa.String}
}

func (q *Queries) ListRoster(ctx context.Context, date string, pujaID int64) ([]RosterRow, error) {
	rows, err := q.db.QueryContext(ctx, listRoster, date, pujaID, pujaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RosterRow
	for rows.Next() {
		var (
			i       RosterRow
			n, g, r nullReference
		)
		if err := rows.Scan(
			&i.Date, &i.PujaID, &i.PujaName, &i.BookingID,
			&i.FirstName, &i.LastName, &i.MobileNumber, &i.Remarks,
			&i.MemberName,
			&n.ID, &n.NameEn, &n.NameHi, &n.NameTa,
			&g.ID, &g.NameEn, &g.NameHi, &g.NameTa,
			&r.ID, &r.NameEn, &r.NameHi, &r.NameTa,
		); err != nil {
			return nil, err
		}
		i.Nakshatram, i.Gotram, i.Rashi = n.row(), g.row(), r.row()
		items = append(items, i)
	}
	return items, rows.Err()
}

const getPendingSyncBookings = `
SELECT id FROM puja_booking
WHERE sync_status = 'pending'
ORDER BY id
LIMIT ?
`

func (q *Queries) GetPendingSyncBookings(ctx context.Context, limit int64) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncBookings, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const setBookingSyncStatus = `UPDATE puja_booking SET sync_status = ? WHERE id = ?`

func (q *Queries) SetBookingSyncStatus(ctx context.Context, id int64, status string) (int64, error) {
	res, err := q.db.ExecContext(ctx, setBookingSyncStatus, status, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
