package ingestion

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	v1 "github.com/the-tatanka/product-vas-fraud-api/internal/api/v1"
	"github.com/the-tatanka/product-vas-fraud-api/internal/core/storage"
)

// Service owns the worker-facing side of the statistics resource: the
// synchronous batch upsert and the asynchronous purge.
type Service struct {
	store  storage.EventStore
	purger *PurgeRunner
}

func NewService(store storage.EventStore, purger *PurgeRunner) *Service {
	if store == nil {
		panic("ingestion: store must not be nil")
	}
	if purger == nil {
		panic("ingestion: purger must not be nil")
	}
	return &Service{
		store:  store,
		purger: purger,
	}
}

// RegisterRoutes registers the worker endpoints behind the API key guard.
func (s *Service) RegisterRoutes(r gin.IRouter, apiKeyGuard gin.HandlerFunc) {
	grp := r.Group("/fraudcases/statistics", apiKeyGuard)
	grp.PUT("", s.PutHandler)
	grp.DELETE("", s.DeleteHandler)
}

// ValidateBatch parses the raw body as a JSON array and validates every
// record through the strict per-record schema. Validation never aborts
// early: the returned violations cover the whole batch, and a batch with any
// violation writes nothing.
func ValidateBatch(body []byte) ([]v1.EventInsert, []string) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, []string{`"value" must be an array`}
	}

	inserts := make([]v1.EventInsert, 0, len(items))
	var violations []string
	for _, item := range items {
		var raw map[string]interface{}
		if err := json.Unmarshal(item, &raw); err != nil {
			violations = append(violations, `"value" must be of type object`)
			continue
		}

		insert, itemViolations := v1.ValidateRecord(raw)
		if len(itemViolations) > 0 {
			violations = append(violations, itemViolations...)
			continue
		}
		inserts = append(inserts, insert)
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return inserts, nil
}

func validationMessage(violations []string) string {
	return "Validation errors: " + strings.Join(violations, ", ")
}
