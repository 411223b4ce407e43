package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/ledger"
	"expense-tracker/internal/log"
	"expense-tracker/internal/sheets"
	"expense-tracker/internal/storage"
)

func logger() *log.Logger { return log.ForComponent(log.ComponentWorker) }

// SyncWorker mirrors the ledger to an export target, typically a Google
// Sheet. Every change event triggers a full export, so lost or duplicated
// events only delay the mirror until the next one or the periodic resync.
type SyncWorker struct {
	ledger        storage.LedgerStore
	exporter      sheets.Exporter
	includeHeader bool

	mu       sync.Mutex
	lastSync time.Time
}

func NewSyncWorker(ledgerStore storage.LedgerStore, exporter sheets.Exporter, includeHeader bool) *SyncWorker {
	return &SyncWorker{
		ledger:        ledgerStore,
		exporter:      exporter,
		includeHeader: includeHeader,
	}
}

// HandleEvent processes a single ledger change event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	logger().InfoContext(ctx, "Processing expense event",
		"type", ev.Type,
		"id", ev.ExpenseID,
		"published_at", ev.Timestamp)

	// Events published before the last full export are already reflected.
	if last := w.LastSync(); !ev.Timestamp.IsZero() && ev.Timestamp.Before(last) {
		logger().DebugContext(ctx, "Event predates last sync, skipping",
			"id", ev.ExpenseID,
			"last_sync", last)
		return nil
	}

	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("sync after %s: %w", ev.Type, err)
	}
	return nil
}

// Sync exports the whole ledger. An unordered ledger is reported and not exported.
func (w *SyncWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := time.Now()
	items, err := w.ledger.LoadExpenses(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	l, err := ledger.New(items)
	if err != nil {
		return err
	}

	ref, err := w.exporter.Export(ctx, l.Items(), w.includeHeader)
	if err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}
	w.lastSync = started

	logger().InfoContext(ctx, "Ledger synced",
		log.FieldOperation, log.OpExport,
		log.FieldRef, ref,
		log.FieldCount, l.Len(),
		"duration", time.Since(started))
	return nil
}

// StartupSyncCheck brings the mirror up to date when the worker starts, which
// recovers from events missed while it was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}

// RunPeriodic resyncs every interval until ctx is done.
func (w *SyncWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sync(ctx); err != nil {
				logger().ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

// LastSync returns the start time of the last successful export.
func (w *SyncWorker) LastSync() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync
}
