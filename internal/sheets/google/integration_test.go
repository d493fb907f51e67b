//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"mandir/internal/core"
)

// Integration tests require a real spreadsheet shared with the service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_CREDENTIALS_JSON") == "" && os.Getenv("GOOGLE_CREDENTIALS_FILE") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	today := core.DateOf(time.Now(), nil)
	rule, _ := core.NewOneTime(today)

	t.Run("BookingExporter", func(t *testing.T) {
		ref, err := client.AppendBooking(ctx, core.Booking{
			ID:          time.Now().Unix(),
			PujaName:    "Integration Test Archana",
			Rule:        rule,
			UnitPrice:   core.Money{Cents: 100},
			TotalPrice:  core.Money{Cents: 100},
			Devotee:     core.Devotee{FirstName: "Test", Mobile: "9000000000"},
			PaymentDate: today,
			CreatedAt:   time.Now(),
		})
		if err != nil {
			t.Fatalf("AppendBooking: %v", err)
		}
		t.Logf("Appended booking at %s", ref)
	})

	t.Run("RosterExporter", func(t *testing.T) {
		ref, err := client.WriteRoster(ctx, today, []core.RosterEntry{{
			Date: today, PujaName: "Integration Test Archana", BookingID: 1, DevoteeName: "Test",
		}})
		if err != nil {
			t.Fatalf("WriteRoster: %v", err)
		}
		t.Logf("Roster written to %s", ref)
	})

	t.Run("CollectionExporter", func(t *testing.T) {
		ref, err := client.WriteCollection(ctx, core.CollectionSummary{
			Query:        core.CollectionQuery{Start: today, End: today, GroupBy: core.GroupByOccurrenceDate},
			OverallTotal: core.Money{Cents: 100},
			LineItems: []core.LineItem{{
				Date: today, PujaName: "Integration Test Archana", Count: 1,
				UnitPrice: core.Money{Cents: 100}, Total: core.Money{Cents: 100},
			}},
		})
		if err != nil {
			t.Fatalf("WriteCollection: %v", err)
		}
		t.Logf("Collection written to %s", ref)
	})
}
