package worker_test

import (
	"context"
	"errors"
	"testing"

	"mandir/internal/amqp"
	"mandir/internal/core"
	"mandir/internal/services"
	sheetsmem "mandir/internal/sheets/memory"
	"mandir/internal/storage/memory"
	"mandir/internal/worker"
)

func setup(t *testing.T) (*memory.Store, *sheetsmem.Exporter, *worker.SyncWorker) {
	t.Helper()
	store := memory.New([]core.Puja{{Name: "Archana", Price: core.Money{Cents: 5100}, Active: true}})
	svc := services.NewBookingService(store, store)
	for _, day := range []int{1, 2, 3} {
		rule, err := core.NewOneTime(core.NewDate(2024, 8, day))
		if err != nil {
			t.Fatal(err)
		}
		_, err = svc.CreateBooking(context.Background(), core.Booking{
			PujaID:  1,
			Rule:    rule,
			Devotee: core.Devotee{FirstName: "Sita", Mobile: "9123456780"},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	exporter := sheetsmem.NewExporter()
	p := services.NewSyncProcessor(store, exporter, services.DefaultSyncProcessorConfig())
	return store, exporter, worker.NewSyncWorker(p, 2)
}

func TestSyncWorker_HandleSyncMessage(t *testing.T) {
	store, exporter, w := setup(t)
	ctx := context.Background()

	if err := w.HandleSyncMessage(ctx, amqp.NewBookingSyncMessage(2, 1)); err != nil {
		t.Fatal(err)
	}
	if got := exporter.Bookings(); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("exported = %+v", got)
	}
	b, _ := store.GetBooking(ctx, 2)
	if b.SyncStatus != core.SyncDone {
		t.Fatalf("SyncStatus = %q", b.SyncStatus)
	}

	// Unknown bookings are dropped instead of requeued forever.
	if err := w.HandleSyncMessage(ctx, amqp.NewBookingSyncMessage(99, 1)); err != nil {
		t.Fatalf("missing booking should be acknowledged: %v", err)
	}
}

func TestSyncWorker_HandleSyncMessageExportError(t *testing.T) {
	_, exporter, w := setup(t)
	exporter.FailWith(errors.New("quota exceeded"))

	if err := w.HandleSyncMessage(context.Background(), amqp.NewBookingSyncMessage(1, 1)); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestSyncWorker_PendingSweeps(t *testing.T) {
	store, exporter, w := setup(t)
	ctx := context.Background()

	if err := w.ProcessPendingBookings(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(exporter.Bookings()); n != 2 {
		t.Fatalf("batch exported %d bookings, want 2", n)
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
	pending, _ := store.GetPendingSyncBookings(ctx, 0)
	if len(pending) != 0 || len(exporter.Bookings()) != 3 {
		t.Fatalf("pending=%v exported=%d", pending, len(exporter.Bookings()))
	}
}
