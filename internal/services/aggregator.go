package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"mandir/internal/core"
)

// PricePolicy selects the unit price used for occurrence-date collections.
type PricePolicy string

const (
	// CurrentPrice values every occurrence at the puja's price today.
	CurrentPrice PricePolicy = "current"
	// BookedPrice values every occurrence at the price paid when booking.
	BookedPrice PricePolicy = "booked"
)

// DefaultMaxReportDays bounds report ranges to roughly two years.
const DefaultMaxReportDays = 731

func ParsePricePolicy(s string) (PricePolicy, error) {
	switch p := PricePolicy(s); p {
	case CurrentPrice, BookedPrice:
		return p, nil
	case "":
		return CurrentPrice, nil
	default:
		return "", fmt.Errorf("unknown price policy %q", s)
	}
}

type AggregatorConfig struct {
	MaxRangeDays int
	PricePolicy  PricePolicy
}

func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MaxRangeDays: DefaultMaxReportDays,
		PricePolicy:  CurrentPrice,
	}
}

// Aggregator reduces bookings and occurrences into collection summaries.
type Aggregator struct {
	store  CollectionStore
	config AggregatorConfig
}

func NewAggregator(store CollectionStore, config AggregatorConfig) *Aggregator {
	if config.PricePolicy == "" {
		config.PricePolicy = CurrentPrice
	}
	return &Aggregator{store: store, config: config}
}

// Aggregate computes the collection summary for q. An empty match is a zero
// summary, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, q core.CollectionQuery) (core.CollectionSummary, error) {
	if err := q.Validate(); err != nil {
		return core.CollectionSummary{}, err
	}
	if err := core.ValidateRange(q.Start, q.End, a.config.MaxRangeDays); err != nil {
		return core.CollectionSummary{}, err
	}

	var (
		items []core.LineItem
		err   error
	)
	switch q.GroupBy {
	case core.GroupByOccurrenceDate:
		items, err = a.byOccurrenceDate(ctx, q)
	case core.GroupByPaymentDate:
		items, err = a.byBookings(ctx, q, a.store.QueryBookingsByPaymentDate, func(b core.Booking) core.Date {
			return b.PaymentDate
		})
	case core.GroupByBookingDate:
		items, err = a.byBookings(ctx, q, a.store.QueryBookingsByCreatedDate, func(b core.Booking) core.Date {
			return b.CreatedOn
		})
	}
	if err != nil {
		return core.CollectionSummary{}, err
	}

	sortLineItems(items)

	summary := core.CollectionSummary{Query: q, LineItems: items}
	if summary.LineItems == nil {
		summary.LineItems = []core.LineItem{}
	}
	for _, li := range items {
		summary.OverallTotal = summary.OverallTotal.Add(li.Total)
	}

	slog.InfoContext(ctx, "Collection aggregated",
		"group_by", q.GroupBy,
		"start", q.Start.String(),
		"end", q.End.String(),
		"puja_id", q.PujaID,
		"line_items", len(items),
		"total_cents", summary.OverallTotal.Cents)

	return summary, nil
}

type occurrenceGroup struct {
	item     core.LineItem
	bookings map[int64]core.Money
}

func (a *Aggregator) byOccurrenceDate(ctx context.Context, q core.CollectionQuery) ([]core.LineItem, error) {
	rows, err := a.store.QueryOccurrences(ctx, q.Start, q.End, q.PujaID)
	if err != nil {
		return nil, fmt.Errorf("%w: query occurrences: %w", core.ErrStoreFailure, err)
	}

	type key struct {
		date   string
		pujaID int64
	}
	groups := make(map[key]*occurrenceGroup)
	var order []key
	for _, r := range rows {
		k := key{date: r.Date.String(), pujaID: r.PujaID}
		g, ok := groups[k]
		if !ok {
			g = &occurrenceGroup{
				item:     core.LineItem{Date: r.Date, PujaID: r.PujaID, PujaName: r.PujaName},
				bookings: make(map[int64]core.Money),
			}
			groups[k] = g
			order = append(order, k)
		}
		g.bookings[r.BookingID] = r.BookedPrice
	}

	prices := make(map[int64]core.Money)
	items := make([]core.LineItem, 0, len(order))
	for _, k := range order {
		g := groups[k]
		li := g.item
		li.Count = len(g.bookings)

		switch a.config.PricePolicy {
		case BookedPrice:
			var unit core.Money
			uniform := true
			for _, paid := range g.bookings {
				if unit.Cents != 0 && paid != unit {
					uniform = false
				}
				unit = paid
				li.Total = li.Total.Add(paid)
			}
			if uniform {
				li.UnitPrice = unit
			}
		default:
			unit, ok := prices[li.PujaID]
			if !ok {
				unit, err = a.store.GetPujaUnitPrice(ctx, li.PujaID)
				if err != nil {
					return nil, fmt.Errorf("%w: puja %d price: %w", core.ErrStoreFailure, li.PujaID, err)
				}
				prices[li.PujaID] = unit
			}
			li.UnitPrice = unit
			li.Total = unit.Times(li.Count)
		}
		items = append(items, li)
	}
	return items, nil
}

type bookingQuery func(ctx context.Context, start, end core.Date, pujaID int64) ([]core.Booking, error)

func (a *Aggregator) byBookings(ctx context.Context, q core.CollectionQuery, query bookingQuery, dateOf func(core.Booking) core.Date) ([]core.LineItem, error) {
	bookings, err := query(ctx, q.Start, q.End, q.PujaID)
	if err != nil {
		return nil, fmt.Errorf("%w: query bookings by %s: %w", core.ErrStoreFailure, q.GroupBy, err)
	}
	// Listing queries return newest first; line items tie-break on insertion order.
	sort.SliceStable(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })

	items := make([]core.LineItem, 0, len(bookings))
	for i := range bookings {
		b := bookings[i]
		items = append(items, core.LineItem{
			Date:      dateOf(b),
			PujaID:    b.PujaID,
			PujaName:  b.PujaName,
			BookingID: b.ID,
			Count:     1,
			UnitPrice: b.UnitPrice,
			Total:     b.TotalPrice,
			Booking:   &b,
		})
	}
	return items, nil
}

// sortLineItems orders by date then puja id. Equal keys keep storage order.
func sortLineItems(items []core.LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.Before(items[j].Date.Time)
		}
		return items[i].PujaID < items[j].PujaID
	})
}
