package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"mandir/internal/core"
)

type fakeCollectionStore struct {
	occurrences []core.OccurrenceRow
	paid        []core.Booking
	created     []core.Booking
	prices      map[int64]core.Money
	priceCalls  int
	err         error
}

func (f *fakeCollectionStore) QueryOccurrences(_ context.Context, start, end core.Date, pujaID int64) ([]core.OccurrenceRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.OccurrenceRow
	for _, r := range f.occurrences {
		if r.Date.Before(start.Time) || r.Date.After(end.Time) {
			continue
		}
		if pujaID != 0 && r.PujaID != pujaID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeCollectionStore) QueryBookingsByPaymentDate(context.Context, core.Date, core.Date, int64) ([]core.Booking, error) {
	return f.paid, f.err
}

func (f *fakeCollectionStore) QueryBookingsByCreatedDate(context.Context, core.Date, core.Date, int64) ([]core.Booking, error) {
	return f.created, f.err
}

func (f *fakeCollectionStore) GetPujaUnitPrice(_ context.Context, pujaID int64) (core.Money, error) {
	f.priceCalls++
	p, ok := f.prices[pujaID]
	if !ok {
		return core.Money{}, core.ErrNotFound
	}
	return p, nil
}

func query(groupBy core.GroupBy, start, end core.Date) core.CollectionQuery {
	return core.CollectionQuery{Start: start, End: end, GroupBy: groupBy}
}

func TestAggregate_EmptyIsZero(t *testing.T) {
	agg := NewAggregator(&fakeCollectionStore{}, DefaultAggregatorConfig())
	for _, g := range []core.GroupBy{core.GroupByOccurrenceDate, core.GroupByPaymentDate, core.GroupByBookingDate} {
		t.Run(string(g), func(t *testing.T) {
			s, err := agg.Aggregate(context.Background(), query(g, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31)))
			if err != nil {
				t.Fatalf("Aggregate() error = %v", err)
			}
			if s.OverallTotal.Cents != 0 {
				t.Errorf("OverallTotal = %d, want 0", s.OverallTotal.Cents)
			}
			if s.LineItems == nil || len(s.LineItems) != 0 {
				t.Errorf("LineItems = %#v, want empty slice", s.LineItems)
			}
		})
	}
}

func TestAggregate_ByOccurrenceDateCountsDistinctBookings(t *testing.T) {
	feb1 := core.NewDate(2024, 2, 1)
	store := &fakeCollectionStore{
		occurrences: []core.OccurrenceRow{
			{BookingID: 1, PujaID: 1, PujaName: "Archana", Date: feb1},
			{BookingID: 2, PujaID: 1, PujaName: "Archana", Date: feb1},
		},
		prices: map[int64]core.Money{1: {Cents: 10000}},
	}
	agg := NewAggregator(store, DefaultAggregatorConfig())

	s, err := agg.Aggregate(context.Background(), query(core.GroupByOccurrenceDate, feb1, feb1))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.LineItems) != 1 {
		t.Fatalf("got %d line items, want 1", len(s.LineItems))
	}
	li := s.LineItems[0]
	if li.Count != 2 || li.Total.Cents != 20000 || li.PujaName != "Archana" {
		t.Fatalf("line item = %+v", li)
	}
	if s.OverallTotal.Cents != 20000 {
		t.Fatalf("OverallTotal = %d, want 20000", s.OverallTotal.Cents)
	}
}

func TestAggregate_ByOccurrenceDateGroupsAndSorts(t *testing.T) {
	d := core.NewDate
	store := &fakeCollectionStore{
		occurrences: []core.OccurrenceRow{
			{BookingID: 5, PujaID: 2, Date: d(2024, 2, 2)},
			{BookingID: 1, PujaID: 3, Date: d(2024, 2, 1)},
			{BookingID: 1, PujaID: 3, Date: d(2024, 2, 1)}, // duplicate row, same booking
			{BookingID: 4, PujaID: 1, Date: d(2024, 2, 1)},
			{BookingID: 6, PujaID: 2, Date: d(2024, 2, 2)},
		},
		prices: map[int64]core.Money{1: {Cents: 5100}, 2: {Cents: 25100}, 3: {Cents: 10100}},
	}
	agg := NewAggregator(store, DefaultAggregatorConfig())

	s, err := agg.Aggregate(context.Background(), query(core.GroupByOccurrenceDate, d(2024, 2, 1), d(2024, 2, 29)))
	if err != nil {
		t.Fatal(err)
	}

	want := []struct {
		key   string
		count int
		total int64
	}{
		{"2024-02-01/1", 1, 5100},
		{"2024-02-01/3", 1, 10100},
		{"2024-02-02/2", 2, 50200},
	}
	if len(s.LineItems) != len(want) {
		t.Fatalf("got %d line items, want %d", len(s.LineItems), len(want))
	}
	for i, w := range want {
		li := s.LineItems[i]
		if li.GroupKey() != w.key || li.Count != w.count || li.Total.Cents != w.total {
			t.Errorf("item %d = %s count=%d total=%d, want %+v", i, li.GroupKey(), li.Count, li.Total.Cents, w)
		}
	}
	if s.OverallTotal.Cents != 5100+10100+50200 {
		t.Errorf("OverallTotal = %d", s.OverallTotal.Cents)
	}
	if store.priceCalls != 3 {
		t.Errorf("price lookups = %d, want one per puja", store.priceCalls)
	}
}

func TestAggregate_BookedPricePolicy(t *testing.T) {
	feb1 := core.NewDate(2024, 2, 1)
	store := &fakeCollectionStore{
		occurrences: []core.OccurrenceRow{
			{BookingID: 1, PujaID: 1, Date: feb1, BookedPrice: core.Money{Cents: 8000}},
			{BookingID: 2, PujaID: 1, Date: feb1, BookedPrice: core.Money{Cents: 10000}},
		},
		prices: map[int64]core.Money{1: {Cents: 12000}},
	}
	cfg := DefaultAggregatorConfig()
	cfg.PricePolicy = BookedPrice
	s, err := NewAggregator(store, cfg).Aggregate(context.Background(), query(core.GroupByOccurrenceDate, feb1, feb1))
	if err != nil {
		t.Fatal(err)
	}
	if s.OverallTotal.Cents != 18000 {
		t.Fatalf("OverallTotal = %d, want 18000", s.OverallTotal.Cents)
	}
	if s.LineItems[0].UnitPrice.Cents != 0 {
		t.Fatalf("mixed prices should leave UnitPrice empty, got %d", s.LineItems[0].UnitPrice.Cents)
	}
	if store.priceCalls != 0 {
		t.Fatalf("booked policy looked up current price %d times", store.priceCalls)
	}
}

func TestAggregate_ByPaymentDateUsesStoredTotals(t *testing.T) {
	d := core.NewDate
	store := &fakeCollectionStore{
		paid: []core.Booking{
			{ID: 3, PujaID: 2, PujaName: "Abhishekam", PaymentDate: d(2024, 3, 5), TotalPrice: core.Money{Cents: 75300}},
			{ID: 1, PujaID: 1, PujaName: "Archana", PaymentDate: d(2024, 3, 5), TotalPrice: core.Money{Cents: 5100}},
			{ID: 2, PujaID: 1, PujaName: "Archana", PaymentDate: d(2024, 3, 2), TotalPrice: core.Money{Cents: 15300}},
			{ID: 4, PujaID: 1, PujaName: "Archana", PaymentDate: d(2024, 3, 5), TotalPrice: core.Money{Cents: 5100}},
		},
	}
	s, err := NewAggregator(store, DefaultAggregatorConfig()).
		Aggregate(context.Background(), query(core.GroupByPaymentDate, d(2024, 3, 1), d(2024, 3, 31)))
	if err != nil {
		t.Fatal(err)
	}

	// date asc, puja asc, storage order for ties
	wantIDs := []int64{2, 1, 4, 3}
	for i, id := range wantIDs {
		if s.LineItems[i].BookingID != id {
			t.Fatalf("item %d booking = %d, want %d", i, s.LineItems[i].BookingID, id)
		}
		if s.LineItems[i].Booking == nil || s.LineItems[i].Booking.ID != id {
			t.Fatalf("item %d missing booking row", i)
		}
	}
	if s.OverallTotal.Cents != 75300+5100+15300+5100 {
		t.Fatalf("OverallTotal = %d", s.OverallTotal.Cents)
	}
}

func TestAggregate_BookingListingTotals(t *testing.T) {
	d := core.NewDate
	store := &fakeCollectionStore{
		created: []core.Booking{
			{ID: 2, PujaID: 1, CreatedOn: d(2024, 4, 2), TotalPrice: core.Money{Cents: 999}},
			{ID: 1, PujaID: 1, CreatedOn: d(2024, 4, 1), TotalPrice: core.Money{Cents: 1}},
		},
	}
	s, err := NewAggregator(store, DefaultAggregatorConfig()).
		Aggregate(context.Background(), query(core.GroupByBookingDate, d(2024, 4, 1), d(2024, 4, 30)))
	if err != nil {
		t.Fatal(err)
	}
	if s.OverallTotal.Cents != 1000 {
		t.Fatalf("OverallTotal = %d, want 1000", s.OverallTotal.Cents)
	}
	if s.LineItems[0].BookingID != 1 {
		t.Fatalf("listing not sorted by date: %+v", s.LineItems)
	}
}

func TestAggregate_SameDayBookingsKeepInsertionOrder(t *testing.T) {
	d := core.NewDate
	store := &fakeCollectionStore{
		created: []core.Booking{
			{ID: 3, PujaID: 1, CreatedOn: d(2024, 2, 1), TotalPrice: core.Money{Cents: 5100}},
			{ID: 2, PujaID: 1, CreatedOn: d(2024, 2, 1), TotalPrice: core.Money{Cents: 5100}},
			{ID: 1, PujaID: 1, CreatedOn: d(2024, 2, 1), TotalPrice: core.Money{Cents: 5100}},
		},
		paid: []core.Booking{
			{ID: 5, PujaID: 1, PaymentDate: d(2024, 2, 1), TotalPrice: core.Money{Cents: 100}},
			{ID: 4, PujaID: 1, PaymentDate: d(2024, 2, 1), TotalPrice: core.Money{Cents: 100}},
		},
	}
	agg := NewAggregator(store, DefaultAggregatorConfig())

	tests := []struct {
		groupBy core.GroupBy
		want    []int64
	}{
		{core.GroupByBookingDate, []int64{1, 2, 3}},
		{core.GroupByPaymentDate, []int64{4, 5}},
	}
	for _, tt := range tests {
		t.Run(string(tt.groupBy), func(t *testing.T) {
			s, err := agg.Aggregate(context.Background(), query(tt.groupBy, d(2024, 2, 1), d(2024, 2, 1)))
			if err != nil {
				t.Fatal(err)
			}
			var got []int64
			for _, li := range s.LineItems {
				got = append(got, li.BookingID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("booking order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregate_Errors(t *testing.T) {
	d := core.NewDate
	storeErr := errors.New("disk on fire")

	tests := []struct {
		name  string
		store *fakeCollectionStore
		cfg   AggregatorConfig
		q     core.CollectionQuery
		want  error
	}{
		{
			name:  "end before start",
			store: &fakeCollectionStore{},
			cfg:   DefaultAggregatorConfig(),
			q:     query(core.GroupByOccurrenceDate, d(2024, 2, 10), d(2024, 2, 1)),
			want:  core.ErrInvalidRange,
		},
		{
			name:  "end before start with bad group by",
			store: &fakeCollectionStore{},
			cfg:   DefaultAggregatorConfig(),
			q:     query("nonsense", d(2024, 2, 10), d(2024, 2, 1)),
			want:  core.ErrInvalidRange,
		},
		{
			name:  "range over limit",
			store: &fakeCollectionStore{},
			cfg:   AggregatorConfig{MaxRangeDays: 7},
			q:     query(core.GroupByPaymentDate, d(2024, 2, 1), d(2024, 2, 8)),
			want:  core.ErrInvalidRange,
		},
		{
			name:  "unknown group by",
			store: &fakeCollectionStore{},
			cfg:   DefaultAggregatorConfig(),
			q:     query("devotee", d(2024, 2, 1), d(2024, 2, 2)),
			want:  core.ErrInvalidGroupBy,
		},
		{
			name:  "store failure",
			store: &fakeCollectionStore{err: storeErr},
			cfg:   DefaultAggregatorConfig(),
			q:     query(core.GroupByPaymentDate, d(2024, 2, 1), d(2024, 2, 2)),
			want:  core.ErrStoreFailure,
		},
		{
			name: "missing puja price",
			store: &fakeCollectionStore{occurrences: []core.OccurrenceRow{
				{BookingID: 1, PujaID: 9, Date: d(2024, 2, 1)},
			}},
			cfg:  DefaultAggregatorConfig(),
			q:    query(core.GroupByOccurrenceDate, d(2024, 2, 1), d(2024, 2, 2)),
			want: core.ErrStoreFailure,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAggregator(tt.store, tt.cfg).Aggregate(context.Background(), tt.q)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Aggregate() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := NewAggregator(&fakeCollectionStore{err: storeErr}, DefaultAggregatorConfig()).
		Aggregate(context.Background(), query(core.GroupByOccurrenceDate, d(2024, 2, 1), d(2024, 2, 2)))
	if !errors.Is(err, storeErr) {
		t.Fatalf("store error not propagated: %v", err)
	}
}

func TestParsePricePolicy(t *testing.T) {
	if p, err := ParsePricePolicy(""); err != nil || p != CurrentPrice {
		t.Fatalf("empty policy = %q, %v", p, err)
	}
	if p, err := ParsePricePolicy("booked"); err != nil || p != BookedPrice {
		t.Fatalf("booked policy = %q, %v", p, err)
	}
	if _, err := ParsePricePolicy("average"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
