// Package memory is an in-process booking store for development and tests.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"mandir/internal/core"
	"mandir/internal/services"
)

type Store struct {
	mu          sync.Mutex
	pujas       []core.Puja
	refs        map[string][]core.ReferenceItem
	bookings    []core.Booking
	occurrences []core.Occurrence
	now         func() time.Time
}

var _ services.Store = (*Store)(nil)

func New(pujas []core.Puja) *Store {
	s := &Store{refs: defaultReferences(), now: time.Now}
	for _, p := range pujas {
		s.addPuja(p)
	}
	return s
}

// NewFromFiles seeds pujas from base/seed_pujas.txt, one "name|price|description"
// per line. Built-in pujas are used when the file is missing or empty.
func NewFromFiles(base string) *Store {
	var pujas []core.Puja
	for _, line := range readLines(filepath.Join(base, "seed_pujas.txt")) {
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 2 {
			continue
		}
		price, err := core.ParseMoney(parts[1])
		if err != nil {
			continue
		}
		p := core.Puja{Name: strings.TrimSpace(parts[0]), Price: price, Active: true}
		if len(parts) == 3 {
			p.Description = strings.TrimSpace(parts[2])
		}
		pujas = append(pujas, p)
	}
	if len(pujas) == 0 {
		pujas = []core.Puja{
			{Name: "Archana", Price: core.Money{Cents: 5100}, Active: true},
			{Name: "Abhishekam", Price: core.Money{Cents: 25100}, Active: true},
			{Name: "Sahasranama Archana", Price: core.Money{Cents: 10100}, Active: true},
		}
	}
	return New(pujas)
}

// SetClock replaces the time source used for creation timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// addPuja appends p with the next id. Ids are slice index plus one.
func (s *Store) addPuja(p core.Puja) int64 {
	p.ID = int64(len(s.pujas) + 1)
	s.pujas = append(s.pujas, p)
	return p.ID
}

// SetPujaPrice changes the current price of a puja.
func (s *Store) SetPujaPrice(id int64, price core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.puja(id)
	if err != nil {
		return err
	}
	p.Price = price
	return nil
}

func (s *Store) puja(id int64) (*core.Puja, error) {
	if id < 1 || int(id) > len(s.pujas) {
		return nil, fmt.Errorf("puja %d: %w", id, core.ErrNotFound)
	}
	return &s.pujas[id-1], nil
}

func (s *Store) ListPujas(_ context.Context) ([]core.Puja, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Puja, 0, len(s.pujas))
	for _, p := range s.pujas {
		if p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) GetPuja(_ context.Context, id int64) (core.Puja, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.puja(id)
	if err != nil {
		return core.Puja{}, err
	}
	return *p, nil
}

func (s *Store) GetPujaUnitPrice(_ context.Context, pujaID int64) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.puja(pujaID)
	if err != nil {
		return core.Money{}, err
	}
	return p.Price, nil
}

func (s *Store) ListReferences(_ context.Context, category string) ([]core.ReferenceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.refs[category]
	if !ok {
		return nil, fmt.Errorf("reference category %q: %w", category, core.ErrNotFound)
	}
	return append([]core.ReferenceItem(nil), items...), nil
}

// WithinTx stages the writes made by fn and applies them only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx services.BookingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.bookings = append(s.bookings, tx.bookings...)
	s.occurrences = append(s.occurrences, tx.occurrences...)
	return nil
}

type memTx struct {
	store       *Store
	bookings    []core.Booking
	occurrences []core.Occurrence
}

func (tx *memTx) booking(id int64) *core.Booking {
	for i := range tx.bookings {
		if tx.bookings[i].ID == id {
			return &tx.bookings[i]
		}
	}
	return nil
}

func (tx *memTx) InsertBooking(_ context.Context, b core.Booking) (int64, error) {
	p, err := tx.store.puja(b.PujaID)
	if err != nil {
		return 0, err
	}
	b.ID = int64(len(tx.store.bookings) + len(tx.bookings) + 1)
	b.PujaName = p.Name
	b.Family = nil
	if b.CreatedAt.IsZero() {
		b.CreatedAt = tx.store.now().UTC()
	}
	if b.CreatedOn.IsZero() {
		b.CreatedOn = core.DateOf(b.CreatedAt, nil)
	}
	if b.SyncStatus == "" {
		b.SyncStatus = core.SyncPending
	}
	tx.bookings = append(tx.bookings, b)
	return b.ID, nil
}

func (tx *memTx) InsertFamilyMembers(_ context.Context, bookingID int64, members []core.FamilyMember) error {
	b := tx.booking(bookingID)
	if b == nil {
		return fmt.Errorf("booking %d: %w", bookingID, core.ErrNotFound)
	}
	b.Family = append(b.Family, members...)
	return nil
}

func (tx *memTx) InsertOccurrences(_ context.Context, bookingID, pujaID int64, occurrences []core.Occurrence) error {
	if tx.booking(bookingID) == nil {
		return fmt.Errorf("booking %d: %w", bookingID, core.ErrNotFound)
	}
	for _, o := range occurrences {
		o.BookingID, o.PujaID = bookingID, pujaID
		tx.occurrences = append(tx.occurrences, o)
	}
	return nil
}

func inRange(d, start, end core.Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

func (s *Store) QueryOccurrences(_ context.Context, start, end core.Date, pujaID int64) ([]core.OccurrenceRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []core.OccurrenceRow
	for _, o := range s.occurrences {
		if !inRange(o.Date, start, end) || (pujaID != 0 && o.PujaID != pujaID) {
			continue
		}
		p, err := s.puja(o.PujaID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, core.OccurrenceRow{
			BookingID:    o.BookingID,
			PujaID:       o.PujaID,
			PujaName:     p.Name,
			Date:         o.Date,
			CurrentPrice: p.Price,
			BookedPrice:  s.bookings[o.BookingID-1].UnitPrice,
		})
	}
	return rows, nil
}

func (s *Store) filterBookings(match func(core.Booking) bool) []core.Booking {
	var out []core.Booking
	for _, b := range s.bookings {
		if match(b) {
			b.Family = append([]core.FamilyMember(nil), b.Family...)
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) QueryBookingsByPaymentDate(_ context.Context, start, end core.Date, pujaID int64) ([]core.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterBookings(func(b core.Booking) bool {
		return inRange(b.PaymentDate, start, end) && (pujaID == 0 || b.PujaID == pujaID)
	}), nil
}

// QueryBookingsByCreatedDate returns the newest bookings first.
func (s *Store) QueryBookingsByCreatedDate(_ context.Context, start, end core.Date, pujaID int64) ([]core.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filterBookings(func(b core.Booking) bool {
		return inRange(b.CreatedOn, start, end) && (pujaID == 0 || b.PujaID == pujaID)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetBooking(_ context.Context, id int64) (core.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || int(id) > len(s.bookings) {
		return core.Booking{}, fmt.Errorf("booking %d: %w", id, core.ErrNotFound)
	}
	b := s.bookings[id-1]
	b.Family = append([]core.FamilyMember(nil), b.Family...)
	return b, nil
}

func (s *Store) QueryRoster(_ context.Context, day core.Date, pujaID int64) ([]core.RosterRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []core.RosterRow
	for _, o := range s.occurrences {
		if !o.Date.Equal(day.Time) || (pujaID != 0 && o.PujaID != pujaID) {
			continue
		}
		b := s.bookings[o.BookingID-1]
		base := core.RosterRow{
			Date:        o.Date,
			PujaID:      o.PujaID,
			PujaName:    b.PujaName,
			BookingID:   b.ID,
			DevoteeName: b.Devotee.FullName(),
			Mobile:      b.Devotee.Mobile,
			Remarks:     b.Remarks,
		}
		if len(b.Family) == 0 {
			rows = append(rows, base)
			continue
		}
		for _, f := range b.Family {
			row := base
			row.Member = &core.FamilyMemberDetail{
				Name:       f.Name,
				Nakshatram: s.reference("nakshatram", f.NakshatramID),
				Gotram:     s.reference("gotram", f.GotramID),
				Rashi:      s.reference("rashi", f.RashiID),
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *Store) reference(category string, id int64) core.ReferenceItem {
	for _, r := range s.refs[category] {
		if r.ID == id {
			return r
		}
	}
	return core.ReferenceItem{Category: category}
}

func (s *Store) GetPendingSyncBookings(_ context.Context, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, b := range s.bookings {
		if b.SyncStatus == core.SyncPending && (limit <= 0 || len(ids) < limit) {
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func (s *Store) setSyncStatus(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || int(id) > len(s.bookings) {
		return fmt.Errorf("booking %d: %w", id, core.ErrNotFound)
	}
	s.bookings[id-1].SyncStatus = status
	return nil
}

func (s *Store) MarkSynced(_ context.Context, id int64) error {
	return s.setSyncStatus(id, core.SyncDone)
}

func (s *Store) MarkSyncError(_ context.Context, id int64) error {
	return s.setSyncStatus(id, core.SyncError)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func defaultReferences() map[string][]core.ReferenceItem {
	ref := func(category string, names ...[3]string) []core.ReferenceItem {
		out := make([]core.ReferenceItem, len(names))
		for i, n := range names {
			out[i] = core.ReferenceItem{ID: int64(i + 1), NameEN: n[0], NameHI: n[1], NameTA: n[2], Category: category}
		}
		return out
	}
	return map[string][]core.ReferenceItem{
		"nakshatram": ref("nakshatram",
			[3]string{"Ashwini", "अश्विनी", "அஸ்வினி"},
			[3]string{"Bharani", "भरणी", "பரணி"},
			[3]string{"Krittika", "कृत्तिका", "கார்த்திகை"},
			[3]string{"Rohini", "रोहिणी", "ரோகிணி"},
		),
		"gotram": ref("gotram",
			[3]string{"Bharadwaja", "भारद्वाज", "பாரத்வாஜ"},
			[3]string{"Kashyapa", "कश्यप", "காஷ்யப"},
			[3]string{"Vasishtha", "वसिष्ठ", "வசிஷ்ட"},
		),
		"rashi": ref("rashi",
			[3]string{"Mesha", "मेष", "மேஷம்"},
			[3]string{"Vrishabha", "वृषभ", "ரிஷபம்"},
			[3]string{"Mithuna", "मिथुन", "மிதுனம்"},
		),
	}
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
