package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mandir/internal/core"
	"mandir/internal/sheets"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending bookings (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of bookings to export per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the number of failed exports before a booking is marked as error (default: 3)
	MaxRetries int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncSource is the storage side of booking export.
type SyncSource interface {
	GetBooking(ctx context.Context, id int64) (core.Booking, error)
	SyncTracker
}

// SyncProcessor exports pending bookings to the spreadsheet. It serves both
// broker messages and a periodic sweep for bookings whose message was lost.
type SyncProcessor struct {
	source   SyncSource
	exporter sheets.BookingExporter
	config   SyncProcessorConfig

	mu       sync.Mutex
	attempts map[int64]int
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSyncProcessor(source SyncSource, exporter sheets.BookingExporter, config SyncProcessorConfig) *SyncProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultSyncProcessorConfig().MaxRetries
	}
	return &SyncProcessor{
		source:   source,
		exporter: exporter,
		config:   config,
		attempts: make(map[int64]int),
	}
}

// SyncBooking exports one booking and records the outcome.
func (p *SyncProcessor) SyncBooking(ctx context.Context, id int64) error {
	b, err := p.source.GetBooking(ctx, id)
	if err != nil {
		return fmt.Errorf("get booking %d: %w", id, err)
	}
	if b.SyncStatus == core.SyncDone {
		slog.InfoContext(ctx, "Booking already synced, skipping", "booking_id", id)
		return nil
	}

	ref, err := p.exporter.AppendBooking(ctx, b)
	if err != nil {
		p.handleFailure(ctx, id, err)
		return fmt.Errorf("append booking %d: %w", id, err)
	}

	p.mu.Lock()
	delete(p.attempts, id)
	p.mu.Unlock()

	if err := p.source.MarkSynced(ctx, id); err != nil {
		// The row is exported; a later sweep may append it again.
		slog.ErrorContext(ctx, "Failed to mark as synced", "booking_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced booking",
		"booking_id", id,
		"sheets_ref", ref,
		"total_cents", b.TotalPrice.Cents)
	return nil
}

func (p *SyncProcessor) handleFailure(ctx context.Context, id int64, cause error) {
	p.mu.Lock()
	p.attempts[id]++
	attempt := p.attempts[id]
	if attempt >= p.config.MaxRetries {
		delete(p.attempts, id)
	}
	p.mu.Unlock()

	slog.WarnContext(ctx, "Booking sync failed",
		"booking_id", id,
		"attempt", attempt,
		"error", cause)

	if attempt < p.config.MaxRetries {
		return
	}
	if err := p.source.MarkSyncError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", "booking_id", id, "error", err)
	}
	slog.ErrorContext(ctx, "Booking sync failed permanently after max retries",
		"booking_id", id, "attempts", attempt)
}

// ProcessPending exports up to limit pending bookings.
func (p *SyncProcessor) ProcessPending(ctx context.Context, limit int) (synced, failed int, err error) {
	ids, err := p.source.GetPendingSyncBookings(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending bookings: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := p.SyncBooking(ctx, id); err != nil {
			failed++
			continue
		}
		synced++
	}
	if len(ids) > 0 {
		slog.InfoContext(ctx, "Pending bookings processed",
			"total", len(ids), "synced", synced, "errors", failed)
	}
	return synced, failed, nil
}

// Start begins the polling loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	interval := p.config.PollInterval
	if interval <= 0 {
		interval = DefaultSyncProcessorConfig().PollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := p.ProcessPending(ctx, p.config.BatchSize); err != nil {
				slog.ErrorContext(ctx, "Pending sync sweep failed", "error", err)
			}
		}
	}
}
