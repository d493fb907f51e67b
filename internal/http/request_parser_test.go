package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"mandir/internal/core"
)

func formRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestRequestBodyParser(t *testing.T) {
	t.Run("form values are sanitized", func(t *testing.T) {
		p := NewRequestBodyParser(formRequest("first_name=%20Ravi%01%20&weekly_days=monday&weekly_days=friday,sunday"))
		if err := p.Parse(); err != nil {
			t.Fatal(err)
		}
		if p.IsJSON() {
			t.Error("IsJSON = true for form body")
		}
		if got := p.Get("first_name"); got != "Ravi" {
			t.Errorf("first_name = %q", got)
		}
		if got := p.GetAll("weekly_days"); len(got) != 3 {
			t.Errorf("weekly_days = %v", got)
		}
	})

	t.Run("JSON numbers and arrays", func(t *testing.T) {
		p := NewRequestBodyParser(jsonRequest(`{"puja_id": 2, "weekly_days": ["Mon", "Thu"]}`))
		if err := p.Parse(); err != nil {
			t.Fatal(err)
		}
		if got := p.Get("puja_id"); got != "2" {
			t.Errorf("puja_id = %q", got)
		}
		if got := p.GetAll("weekly_days"); len(got) != 2 || got[1] != "Thu" {
			t.Errorf("weekly_days = %v", got)
		}
		if got := p.Get("missing"); got != "" {
			t.Errorf("missing = %q", got)
		}
	})

	t.Run("invalid JSON is a bad request", func(t *testing.T) {
		p := NewRequestBodyParser(jsonRequest(`{"puja_id":`))
		if err := p.Parse(); !errors.Is(err, errBadRequest) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestParseBooking(t *testing.T) {
	tests := []struct {
		name    string
		req     *http.Request
		wantErr error
		check   func(t *testing.T, b core.Booking)
	}{
		{
			name: "weekly form booking with family",
			req: formRequest(url.Values{
				"puja_id":           {"1"},
				"duration":          {"weekly"},
				"start_date":        {"2024-03-01"},
				"end_date":          {"2024-03-31"},
				"weekly_days":       {"monday", "thursday"},
				"first_name":        {"Lakshmi"},
				"mobile":            {"9876543210"},
				"family_name":       {"Arun", "", "Meena"},
				"family_nakshatram": {"3", "", "5"},
				"family_gotram":     {"1", "", ""},
				"family_rashi":      {"", "", "2"},
				"total_price":       {"100.00"},
			}.Encode()),
			check: func(t *testing.T, b core.Booking) {
				if b.PujaID != 1 || b.Rule.Kind() != core.Weekly {
					t.Errorf("puja=%d kind=%s", b.PujaID, b.Rule.Kind())
				}
				if !b.Rule.Weekdays().Has(time.Monday) || !b.Rule.Weekdays().Has(time.Thursday) {
					t.Errorf("weekdays = %v", b.Rule.Weekdays().Names())
				}
				if len(b.Family) != 2 || b.Family[1].Name != "Meena" || b.Family[1].RashiID != 2 || b.Family[0].GotramID != 1 {
					t.Errorf("family = %+v", b.Family)
				}
				if b.TotalPrice.Cents != 10000 {
					t.Errorf("total = %d", b.TotalPrice.Cents)
				}
			},
		},
		{
			name: "one-time JSON booking ignores end date",
			req: jsonRequest(`{"puja_id": 2, "duration": "one-time", "start_date": "2024-05-10", "end_date": "2024-01-01",
				"first_name": "Ravi", "mobile": "+919876543210", "payment_date": "2024-05-01",
				"family": [{"name": "Sita", "nakshatram_id": 4}]}`),
			check: func(t *testing.T, b core.Booking) {
				if b.Rule.Kind() != core.OneTime || b.Rule.End() != core.NewDate(2024, 5, 10) {
					t.Errorf("rule = %s", b.Rule)
				}
				if b.PaymentDate != core.NewDate(2024, 5, 1) {
					t.Errorf("payment date = %s", b.PaymentDate)
				}
				if len(b.Family) != 1 || b.Family[0].NakshatramID != 4 {
					t.Errorf("family = %+v", b.Family)
				}
			},
		},
		{
			name:    "daily without end date",
			req:     formRequest("puja_id=1&duration=daily&start_date=2024-03-01&first_name=A&mobile=9876543210"),
			wantErr: core.ErrInvalidRule,
		},
		{
			name:    "unknown duration",
			req:     formRequest("puja_id=1&duration=yearly&start_date=2024-03-01"),
			wantErr: core.ErrInvalidRule,
		},
		{
			name:    "bad puja id",
			req:     formRequest("puja_id=abc&duration=daily"),
			wantErr: errBadRequest,
		},
		{
			name:    "bad payment date",
			req:     formRequest("puja_id=1&duration=one_time&start_date=2024-03-01&payment_date=01/03/2024"),
			wantErr: errBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := parseBooking(tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, b)
		})
	}
}

func TestParseCollectionQuery(t *testing.T) {
	today := core.NewDate(2024, 6, 15)

	tests := []struct {
		name    string
		query   string
		want    core.CollectionQuery
		wantErr error
	}{
		{
			name:  "defaults to today grouped by puja date",
			query: "",
			want:  core.CollectionQuery{Start: today, End: today, GroupBy: core.GroupByOccurrenceDate},
		},
		{
			name:  "explicit range and grouping",
			query: "start=2024-06-01&end=2024-06-30&group_by=payment_date&puja_id=3",
			want:  core.CollectionQuery{Start: core.NewDate(2024, 6, 1), End: core.NewDate(2024, 6, 30), PujaID: 3, GroupBy: core.GroupByPaymentDate},
		},
		{
			name:    "unknown grouping",
			query:   "group_by=devotee",
			wantErr: core.ErrInvalidGroupBy,
		},
		{
			name:    "malformed date",
			query:   "start=2024-13-01",
			wantErr: errBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := parseCollectionQuery(q, today)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("query = %+v, want %+v", got, tt.want)
			}
		})
	}
}
