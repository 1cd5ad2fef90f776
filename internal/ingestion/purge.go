package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/the-tatanka/product-vas-fraud-api/internal/core/storage"
	"github.com/the-tatanka/product-vas-fraud-api/internal/reporting"
)

// PurgeRunner executes acknowledged purges on its own goroutine. Each job
// deletes stale rows below the watermark and then refreshes both
// materialized views, dailyevents before dailysummaries, so reads reflect
// the delete. Jobs run on a background context: a worker that disconnects
// after its 204 does not cancel the purge it was promised.
type PurgeRunner struct {
	store    storage.EventStore
	reporter reporting.Reporter
	jobs     chan *time.Time
}

func NewPurgeRunner(store storage.EventStore, reporter reporting.Reporter, queueSize int) *PurgeRunner {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if reporter == nil {
		reporter = reporting.NopReporter{}
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &PurgeRunner{
		store:    store,
		reporter: reporter,
		jobs:     make(chan *time.Time, queueSize),
	}
}

// Submit queues a purge. A nil watermark means full purge.
func (r *PurgeRunner) Submit(watermark *time.Time) {
	r.jobs <- watermark
}

// Run consumes jobs until ctx is cancelled, then drains whatever was already
// acknowledged before returning.
func (r *PurgeRunner) Run(ctx context.Context) error {
	for {
		select {
		case watermark := <-r.jobs:
			r.process(watermark)
		case <-ctx.Done():
			for {
				select {
				case watermark := <-r.jobs:
					r.process(watermark)
				default:
					slog.Info("Purge runner stopped")
					return nil
				}
			}
		}
	}
}

func (r *PurgeRunner) process(watermark *time.Time) {
	// Deliberately not the request context; the response was already sent.
	ctx := context.Background()

	deleted, err := r.store.DeleteEventsBefore(ctx, watermark)
	if err != nil {
		r.reportFailure("delete", watermark, err)
		return
	}

	if err := r.store.RefreshDailyEvents(ctx); err != nil {
		r.reportFailure("refresh dailyevents", watermark, err)
		return
	}
	if err := r.store.RefreshDailySummaries(ctx); err != nil {
		r.reportFailure("refresh dailysummaries", watermark, err)
		return
	}

	slog.Info("Purge completed", "deleted", deleted, "watermark", watermarkString(watermark))
}

func (r *PurgeRunner) reportFailure(stage string, watermark *time.Time, err error) {
	slog.Error("Purge failed", "stage", stage, "watermark", watermarkString(watermark), "error", err)
	r.reporter.CaptureError(err, map[string]string{
		"operation": "purge",
		"stage":     stage,
	})
}

func watermarkString(watermark *time.Time) string {
	if watermark == nil {
		return "none (full purge)"
	}
	return watermark.Format(time.RFC3339Nano)
}
