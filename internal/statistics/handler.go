package statistics

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	v1 "github.com/the-tatanka/product-vas-fraud-api/internal/api/v1"
	httperr "github.com/the-tatanka/product-vas-fraud-api/internal/core/errors"
)

const msgStorageUnavailable = "cannot establish database connection"

// RegisterRoutes mounts the dashboard's read endpoints. Both sit behind the
// bearer-token role guard; the worker's API key grants no access here.
func (s *Service) RegisterRoutes(r gin.IRouter, roleGuard gin.HandlerFunc) {
	grp := r.Group("/fraudcases/statistics", roleGuard)
	grp.GET("/geo", s.GeoHandler)
	grp.GET("/fraudtypes", s.FraudTypesHandler)
}

// GeoHandler handles GET /fraudcases/statistics/geo: per-country counts
// within the requested attack-date window, keyed by lowercase country code.
func (s *Service) GeoHandler(c *gin.Context) {
	rng, violations := parseDateRange(c.Query("earliest"), c.Query("latest"))

	countries, ok := normalizeCountries(c.Query("countries"))
	if !ok {
		violations = append(violations, `"countries" must be a comma-separated list of two-letter country codes`)
	}
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest,
			httperr.New(http.StatusBadRequest, strings.Join(violations, ", ")))
		return
	}

	counts, err := s.CountsByCountry(c.Request.Context(), rng, countries)
	if err != nil {
		slog.Error("Failed to query per-country statistics", "error", err)
		c.JSON(http.StatusServiceUnavailable,
			httperr.New(http.StatusServiceUnavailable, msgStorageUnavailable))
		return
	}

	c.JSON(http.StatusOK, counts)
}

// FraudTypesHandler handles GET /fraudcases/statistics/fraudtypes: overall
// counts within the window, optionally projected to a subset of fields.
func (s *Service) FraudTypesHandler(c *gin.Context) {
	rng, violations := parseDateRange(c.Query("earliest"), c.Query("latest"))

	fraudtypes, present := c.GetQuery("fraudtypes")
	if present && fraudtypes == "" {
		violations = append(violations, `"fraudtypes" is not allowed to be empty`)
	}
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest,
			httperr.New(http.StatusBadRequest, strings.Join(violations, ", ")))
		return
	}

	counts, err := s.Summary(c.Request.Context(), rng)
	if err != nil {
		slog.Error("Failed to query fraud type statistics", "error", err)
		c.JSON(http.StatusServiceUnavailable,
			httperr.New(http.StatusServiceUnavailable, msgStorageUnavailable))
		return
	}

	if !present {
		c.JSON(http.StatusOK, counts)
		return
	}
	c.JSON(http.StatusOK, projectCounts(counts, strings.Split(fraudtypes, ",")))
}

// projectCounts keeps only the requested fields. Unknown names are silently
// dropped rather than rejected, so the response can come back empty.
func projectCounts(counts v1.TypeCounts, fields []string) map[string]int64 {
	byName := map[string]int64{
		"active_warning":      counts.ActiveWarning,
		"announcement":        counts.Announcement,
		"fake_document":       counts.FakeDocument,
		"fake_email":          counts.FakeEmail,
		"fake_president_call": counts.FakePresidentCall,
		"falsified_invoice":   counts.FalsifiedInvoice,
	}

	projected := make(map[string]int64, len(fields))
	for _, field := range fields {
		if value, ok := byName[field]; ok {
			projected[field] = value
		}
	}
	return projected
}
