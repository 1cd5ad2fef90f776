package ingestion

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	httperr "github.com/the-tatanka/product-vas-fraud-api/internal/core/errors"
)

const msgStorageUnavailable = "cannot establish database connection"

// PutResponse is the worker's receipt: how many rows landed and the server
// clock value to use as the purge watermark for this sync run.
type PutResponse struct {
	Updated   int64     `json:"updated"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PutHandler handles PUT /fraudcases/statistics: validate the whole batch,
// then bulk-upsert it keyed on cdlId.
func (s *Service) PutHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		c.JSON(http.StatusInternalServerError,
			httperr.New(http.StatusInternalServerError, "failed to read request body"))
		return
	}

	events, violations := ValidateBatch(body)
	if violations != nil {
		slog.Warn("Rejected fraud event batch", "violations", len(violations))
		c.JSON(http.StatusBadRequest,
			httperr.New(http.StatusBadRequest, validationMessage(violations)))
		return
	}

	ctx := c.Request.Context()

	// The server clock is read before the upsert so the returned watermark
	// never exceeds any updated_at stamped by this batch.
	updatedAt, err := s.store.ServerNow(ctx)
	if err != nil {
		slog.Error("Failed to read server time", "error", err)
		c.JSON(http.StatusServiceUnavailable,
			httperr.New(http.StatusServiceUnavailable, msgStorageUnavailable))
		return
	}

	updated, err := s.store.UpsertEvents(ctx, events)
	if err != nil {
		slog.Error("Failed to upsert fraud events", "error", err, "batch_size", len(events))
		c.JSON(http.StatusServiceUnavailable,
			httperr.New(http.StatusServiceUnavailable, msgStorageUnavailable))
		return
	}

	slog.Info("Upserted fraud event batch", "updated", updated, "updated_at", updatedAt)
	c.JSON(http.StatusOK, PutResponse{Updated: updated, UpdatedAt: updatedAt})
}

// purgeTimestampLayouts covers RFC 3339 plus the short-offset form the
// worker sends back verbatim from the PUT response (e.g.
// "2022-12-31T16:23:10.000+00") and plain dates.
var purgeTimestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999-07",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parsePurgeTimestamp(value string) (time.Time, bool) {
	for _, layout := range purgeTimestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// DeleteHandler handles DELETE /fraudcases/statistics?latest=...: it
// acknowledges with 204 right away and hands the delete + view refreshes to
// the purge runner. Failures past this point reach the error sink, not the
// worker.
func (s *Service) DeleteHandler(c *gin.Context) {
	var watermark *time.Time
	if raw := c.Query("latest"); raw != "" {
		ts, ok := parsePurgeTimestamp(raw)
		if !ok {
			c.JSON(http.StatusBadRequest,
				httperr.New(http.StatusBadRequest, `Validation errors: "latest" must be in iso format`))
			return
		}
		watermark = &ts
	}

	c.Status(http.StatusNoContent)
	s.purger.Submit(watermark)
}
