package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mandir/internal/amqp"
	"mandir/internal/core"
	"mandir/internal/services"
)

// SyncWorker exports bookings to Google Sheets in response to broker
// messages, with a sweep over pending rows as a fallback.
type SyncWorker struct {
	processor *services.SyncProcessor
	batchSize int
}

func NewSyncWorker(processor *services.SyncProcessor, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = services.DefaultSyncProcessorConfig().BatchSize
	}
	return &SyncWorker{processor: processor, batchSize: batchSize}
}

// HandleSyncMessage processes one booking sync message. A booking that no
// longer exists is acknowledged so the message is not redelivered forever.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.BookingSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"booking_id", msg.ID,
		"version", msg.Version,
		"message_id", msg.MessageID)

	if err := w.processor.SyncBooking(ctx, msg.ID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Booking in sync message not found, dropping", "booking_id", msg.ID)
			return nil
		}
		return fmt.Errorf("sync booking: %w", err)
	}
	return nil
}

// ProcessPendingBookings exports one batch of bookings still pending.
func (w *SyncWorker) ProcessPendingBookings(ctx context.Context) error {
	if _, _, err := w.processor.ProcessPending(ctx, w.batchSize); err != nil {
		return fmt.Errorf("process pending bookings: %w", err)
	}
	return nil
}

// StartupSyncCheck drains bookings left pending while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processor.ProcessPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending bookings found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"synced", synced,
		"errors", failed)
	return nil
}
