package storage

import (
	"context"
	"time"

	v1 "github.com/the-tatanka/product-vas-fraud-api/internal/api/v1"
)

// EventStore is the write side of the fraud event table.
type EventStore interface {
	// UpsertEvents bulk-inserts the batch, updating rows whose cdl_id already
	// exists. Returns the number of rows written (inserts plus updates).
	UpsertEvents(ctx context.Context, events []v1.EventInsert) (int64, error)

	// ServerNow reads the database clock. The worker uses this value as the
	// watermark for the purge that follows a sync run, so it must come from
	// the same clock that stamps updated_at.
	ServerNow(ctx context.Context) (time.Time, error)

	// DeleteEventsBefore removes rows with updated_at strictly before the
	// watermark. A nil watermark removes every row.
	DeleteEventsBefore(ctx context.Context, watermark *time.Time) (int64, error)

	// RefreshDailyEvents / RefreshDailySummaries recompute the materialized
	// views. Deletes do not propagate to them on their own.
	RefreshDailyEvents(ctx context.Context) error
	RefreshDailySummaries(ctx context.Context) error
}

// AggregateStore is the read side over the materialized views. Both calls
// return the packed composite row text emitted by the server-side functions;
// decoding is the statistics service's concern.
type AggregateStore interface {
	// DailyEventsBetween returns one "(COUNTRY,a,b,c,d,e,f)" row per country.
	// countries is an uppercase comma-separated filter, "" for all.
	DailyEventsBetween(ctx context.Context, earliest, latest int64, countries string) ([]string, error)

	// DailySummariesBetween returns a single "(a,b,c,d,e,f)" row across all
	// countries.
	DailySummariesBetween(ctx context.Context, earliest, latest int64) (string, error)
}
