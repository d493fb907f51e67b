package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mandir/internal/core"
	"mandir/internal/services"
)

type flakyExporter struct {
	failures int
	appended []int64
}

func (e *flakyExporter) AppendBooking(_ context.Context, b core.Booking) (string, error) {
	if e.failures > 0 {
		e.failures--
		return "", errors.New("quota exceeded")
	}
	e.appended = append(e.appended, b.ID)
	return fmt.Sprintf("Bookings!A%d", len(e.appended)+1), nil
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := services.DefaultSyncProcessorConfig()

	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
}

func TestSyncProcessor_ProcessPending(t *testing.T) {
	store := newTestStore()
	seedBookings(t, store)
	exporter := &flakyExporter{}
	p := services.NewSyncProcessor(store, exporter, services.DefaultSyncProcessorConfig())

	synced, failed, err := p.ProcessPending(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if synced != 2 || failed != 0 {
		t.Fatalf("synced=%d failed=%d", synced, failed)
	}
	pending, _ := store.GetPendingSyncBookings(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("still pending: %v", pending)
	}

	// Already synced bookings are not appended twice.
	if err := p.SyncBooking(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if len(exporter.appended) != 2 {
		t.Fatalf("appended = %v", exporter.appended)
	}
}

func TestSyncProcessor_MarksErrorAfterRetries(t *testing.T) {
	store := newTestStore()
	seedBookings(t, store)
	exporter := &flakyExporter{failures: 100}
	cfg := services.DefaultSyncProcessorConfig()
	cfg.MaxRetries = 2
	p := services.NewSyncProcessor(store, exporter, cfg)

	for i := 0; i < 2; i++ {
		if err := p.SyncBooking(context.Background(), 1); err == nil {
			t.Fatal("expected export error")
		}
	}
	b, err := store.GetBooking(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if b.SyncStatus != core.SyncError {
		t.Fatalf("SyncStatus = %q, want %q", b.SyncStatus, core.SyncError)
	}
}

func TestSyncProcessor_StartStop(t *testing.T) {
	p := services.NewSyncProcessor(newTestStore(), &flakyExporter{}, services.SyncProcessorConfig{PollInterval: 10 * time.Millisecond})

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop should not error when not running: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("expected error when starting already running processor")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if p.IsRunning() {
		t.Fatal("processor still running after Stop")
	}
}
