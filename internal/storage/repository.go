package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mandir/internal/core"
	"mandir/internal/services"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ services.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func storeErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrStoreFailure, op, err)
}

// Catalog

func (r *SQLiteRepository) ListPujas(ctx context.Context) ([]core.Puja, error) {
	rows, err := r.queries.ListActivePujas(ctx)
	if err != nil {
		return nil, storeErr("list pujas", err)
	}
	out := make([]core.Puja, len(rows))
	for i, p := range rows {
		out[i] = pujaFromRow(p)
	}
	return out, nil
}

func (r *SQLiteRepository) GetPuja(ctx context.Context, id int64) (core.Puja, error) {
	p, err := r.queries.GetPuja(ctx, id)
	if err != nil {
		return core.Puja{}, storeErr(fmt.Sprintf("get puja %d", id), err)
	}
	return pujaFromRow(p), nil
}

func (r *SQLiteRepository) GetPujaUnitPrice(ctx context.Context, pujaID int64) (core.Money, error) {
	cents, err := r.queries.GetPujaPrice(ctx, pujaID)
	if err != nil {
		return core.Money{}, storeErr(fmt.Sprintf("get price of puja %d", pujaID), err)
	}
	return core.Money{Cents: cents}, nil
}

// SetPujaPrice changes the current catalog price. Existing bookings keep their
// booked unit price.
func (r *SQLiteRepository) SetPujaPrice(ctx context.Context, id int64, price core.Money) error {
	if err := price.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdatePujaPrice(ctx, id, price.Cents)
	if err != nil {
		return storeErr("update puja price", err)
	}
	if n == 0 {
		return fmt.Errorf("puja %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Puja price updated", "puja_id", id, "price", price.String())
	return nil
}

func (r *SQLiteRepository) ListReferences(ctx context.Context, category string) ([]core.ReferenceItem, error) {
	if _, ok := referenceTables[category]; !ok {
		return nil, fmt.Errorf("reference category %q: %w", category, core.ErrNotFound)
	}
	rows, err := r.queries.ListReferences(ctx, category)
	if err != nil {
		return nil, storeErr("list "+category, err)
	}
	out := make([]core.ReferenceItem, len(rows))
	for i, row := range rows {
		out[i] = referenceFromRow(category, row)
	}
	return out, nil
}

// Bookings

func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(tx services.BookingTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin tx", err)
	}
	if err := fn(&sqliteTx{queries: r.queries.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit tx", err)
	}
	return nil
}

type sqliteTx struct {
	queries *Queries
}

func (tx *sqliteTx) InsertBooking(ctx context.Context, b core.Booking) (int64, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if b.CreatedOn.IsZero() {
		b.CreatedOn = core.DateOf(b.CreatedAt, nil)
	}
	if b.PaymentDate.IsEmpty() {
		b.PaymentDate = b.CreatedOn
	}
	if b.SyncStatus == "" {
		b.SyncStatus = core.SyncPending
	}
	row := bookingToRow(b)
	id, err := tx.queries.CreateBooking(ctx, row)
	if err != nil {
		return 0, storeErr("insert booking", err)
	}
	slog.InfoContext(ctx, "Booking saved to SQLite",
		"id", id,
		"puja_id", b.PujaID,
		"duration_type", row.DurationType,
		"total_cents", row.TotalPriceCents)
	return id, nil
}

func (tx *sqliteTx) InsertFamilyMembers(ctx context.Context, bookingID int64, members []core.FamilyMember) error {
	for _, m := range members {
		err := tx.queries.CreateFamilyMember(ctx, FamilyMember{
			BookingID:    bookingID,
			Name:         m.Name,
			NakshatramID: nullID(m.NakshatramID),
			GotramID:     nullID(m.GotramID),
			RashiID:      nullID(m.RashiID),
		})
		if err != nil {
			return storeErr("insert family member", err)
		}
	}
	return nil
}

func (tx *sqliteTx) InsertOccurrences(ctx context.Context, bookingID, pujaID int64, occurrences []core.Occurrence) error {
	for _, o := range occurrences {
		err := tx.queries.CreateBookingDate(ctx, CreateBookingDateParams{
			BookingID: bookingID,
			PujaID:    pujaID,
			Date:      o.Date.String(),
			Day:       o.WeekdayName(),
		})
		if err != nil {
			return storeErr("insert booking date "+o.Date.String(), err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetBooking(ctx context.Context, id int64) (core.Booking, error) {
	row, err := r.queries.GetBooking(ctx, id)
	if err != nil {
		return core.Booking{}, storeErr(fmt.Sprintf("get booking %d", id), err)
	}
	b, err := bookingFromRow(row)
	if err != nil {
		return core.Booking{}, err
	}
	family, err := r.queries.ListFamilyMembers(ctx, id)
	if err != nil {
		return core.Booking{}, storeErr("list family members", err)
	}
	for _, f := range family {
		b.Family = append(b.Family, core.FamilyMember{
			Name:         f.Name,
			NakshatramID: f.NakshatramID.Int64,
			GotramID:     f.GotramID.Int64,
			RashiID:      f.RashiID.Int64,
		})
	}
	return b, nil
}

// Reports

func rangeParams(start, end core.Date, pujaID int64) DateRangeParams {
	return DateRangeParams{Start: start.String(), End: end.String(), PujaID: pujaID}
}

func (r *SQLiteRepository) QueryOccurrences(ctx context.Context, start, end core.Date, pujaID int64) ([]core.OccurrenceRow, error) {
	rows, err := r.queries.ListOccurrences(ctx, rangeParams(start, end, pujaID))
	if err != nil {
		return nil, storeErr("query occurrences", err)
	}
	out := make([]core.OccurrenceRow, 0, len(rows))
	for _, row := range rows {
		d, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, storeErr("parse occurrence date", err)
		}
		out = append(out, core.OccurrenceRow{
			BookingID:    row.BookingID,
			PujaID:       row.PujaID,
			PujaName:     row.PujaName,
			Date:         d,
			CurrentPrice: core.Money{Cents: row.PriceCents},
			BookedPrice:  core.Money{Cents: row.BookedUnitPriceCents},
		})
	}
	return out, nil
}

func (r *SQLiteRepository) bookings(rows []PujaBooking, err error) ([]core.Booking, error) {
	if err != nil {
		return nil, storeErr("query bookings", err)
	}
	out := make([]core.Booking, 0, len(rows))
	for _, row := range rows {
		b, err := bookingFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *SQLiteRepository) QueryBookingsByPaymentDate(ctx context.Context, start, end core.Date, pujaID int64) ([]core.Booking, error) {
	return r.bookings(r.queries.ListBookingsByPaymentDate(ctx, rangeParams(start, end, pujaID)))
}

func (r *SQLiteRepository) QueryBookingsByCreatedDate(ctx context.Context, start, end core.Date, pujaID int64) ([]core.Booking, error) {
	return r.bookings(r.queries.ListBookingsByCreatedOn(ctx, rangeParams(start, end, pujaID)))
}

func (r *SQLiteRepository) QueryRoster(ctx context.Context, day core.Date, pujaID int64) ([]core.RosterRow, error) {
	rows, err := r.queries.ListRoster(ctx, day.String(), pujaID)
	if err != nil {
		return nil, storeErr("query roster", err)
	}
	out := make([]core.RosterRow, 0, len(rows))
	for _, row := range rows {
		devotee := core.Devotee{FirstName: row.FirstName, LastName: row.LastName}
		rr := core.RosterRow{
			Date:        day,
			PujaID:      row.PujaID,
			PujaName:    row.PujaName,
			BookingID:   row.BookingID,
			DevoteeName: devotee.FullName(),
			Mobile:      row.MobileNumber,
			Remarks:     row.Remarks,
		}
		if row.MemberName.Valid {
			rr.Member = &core.FamilyMemberDetail{
				Name:       row.MemberName.String,
				Nakshatram: referenceFromRow("nakshatram", row.Nakshatram),
				Gotram:     referenceFromRow("gotram", row.Gotram),
				Rashi:      referenceFromRow("rashi", row.Rashi),
			}
		}
		out = append(out, rr)
	}
	return out, nil
}

// Sync tracking

func (r *SQLiteRepository) GetPendingSyncBookings(ctx context.Context, limit int) ([]int64, error) {
	l := int64(limit)
	if limit <= 0 {
		l = -1
	}
	ids, err := r.queries.GetPendingSyncBookings(ctx, l)
	if err != nil {
		return nil, storeErr("get pending sync bookings", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	n, err := r.queries.SetBookingSyncStatus(ctx, id, status)
	if err != nil {
		return storeErr("set sync status", err)
	}
	if n == 0 {
		return fmt.Errorf("booking %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, core.SyncDone)
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, core.SyncError)
}

// Row mapping

func pujaFromRow(p Puja) core.Puja {
	return core.Puja{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       core.Money{Cents: p.PriceCents},
		Active:      p.Active,
	}
}

func referenceFromRow(category string, r ReferenceRow) core.ReferenceItem {
	return core.ReferenceItem{ID: r.ID, NameEN: r.NameEn, NameHI: r.NameHi, NameTA: r.NameTa, Category: category}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func bookingToRow(b core.Booking) PujaBooking {
	d := b.Devotee
	return PujaBooking{
		PujaID:          b.PujaID,
		DurationType:    string(b.Rule.Kind()),
		StartDate:       b.Rule.Start().String(),
		EndDate:         b.Rule.End().String(),
		WeeklyDays:      int64(b.Rule.Weekdays()),
		UnitPriceCents:  b.UnitPrice.Cents,
		TotalPriceCents: b.TotalPrice.Cents,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		MobileNumber:    d.Mobile,
		Email:           d.Email,
		Address1:        d.Address1,
		Address2:        d.Address2,
		City:            d.City,
		State:           d.State,
		PinCode:         d.PinCode,
		Remarks:         b.Remarks,
		PaymentDate:     b.PaymentDate.String(),
		SyncStatus:      b.SyncStatus,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339Nano),
		CreatedOn:       b.CreatedOn.String(),
	}
}

func bookingFromRow(row PujaBooking) (core.Booking, error) {
	bad := func(field string, err error) (core.Booking, error) {
		return core.Booking{}, fmt.Errorf("%w: booking %d: %s: %w", core.ErrStoreFailure, row.ID, field, err)
	}
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return bad("start_date", err)
	}
	end, err := core.ParseDate(row.EndDate)
	if err != nil {
		return bad("end_date", err)
	}
	rule, err := core.NewRecurrenceRule(core.RecurrenceKind(row.DurationType), start, end, core.WeekdaySet(row.WeeklyDays))
	if err != nil {
		return bad("rule", err)
	}
	payment, err := core.ParseDate(row.PaymentDate)
	if err != nil {
		return bad("payment_date", err)
	}
	createdOn, err := core.ParseDate(row.CreatedOn)
	if err != nil {
		return bad("created_on", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return bad("created_at", err)
	}
	return core.Booking{
		ID:         row.ID,
		PujaID:     row.PujaID,
		PujaName:   row.PujaName,
		Rule:       rule,
		UnitPrice:  core.Money{Cents: row.UnitPriceCents},
		TotalPrice: core.Money{Cents: row.TotalPriceCents},
		Devotee: core.Devotee{
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Mobile:    row.MobileNumber,
			Email:     row.Email,
			Address1:  row.Address1,
			Address2:  row.Address2,
			City:      row.City,
			State:     row.State,
			PinCode:   row.PinCode,
		},
		Remarks:     row.Remarks,
		PaymentDate: payment,
		SyncStatus:  row.SyncStatus,
		CreatedAt:   createdAt,
		CreatedOn:   createdOn,
	}, nil
}
