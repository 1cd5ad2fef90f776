package statistics

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	v1 "github.com/the-tatanka/product-vas-fraud-api/internal/api/v1"
	"github.com/the-tatanka/product-vas-fraud-api/internal/core/storage"
)

const (
	// defaultEarliestMillis and defaultLatestMillis bound queries that omit
	// a date range. The upper bound is roughly the year 2970, far enough out
	// to behave as "unbounded" for the dashboard.
	defaultEarliestMillis = 0
	defaultLatestMillis   = 31556995200000

	dateLayout = "2006-01-02"
)

var countriesPattern = regexp.MustCompile(`^[a-z]{2}(,[a-z]{2})*$`)

// Service answers the dashboard's aggregate queries from the materialized
// views, decoding the packed composite rows the aggregate functions return.
type Service struct {
	store storage.AggregateStore
}

func NewService(store storage.AggregateStore) *Service {
	if store == nil {
		panic("statistics: store must not be nil")
	}
	return &Service{store: store}
}

// DateRange is an inclusive attack-date window in epoch milliseconds.
type DateRange struct {
	Earliest int64
	Latest   int64
}

// parseDateRange interprets the optional earliest/latest query parameters.
// Dates are UTC days; latest is widened to the end of its day so the bound
// stays inclusive. Violations are collected, not short-circuited.
func parseDateRange(earliest, latest string) (DateRange, []string) {
	rng := DateRange{Earliest: defaultEarliestMillis, Latest: defaultLatestMillis}
	var violations []string

	if earliest != "" {
		ts, err := time.ParseInLocation(dateLayout, earliest, time.UTC)
		if err != nil {
			violations = append(violations, dateViolation("earliest"))
		} else {
			rng.Earliest = ts.UnixMilli()
		}
	}
	if latest != "" {
		ts, err := time.ParseInLocation(dateLayout, latest, time.UTC)
		if err != nil {
			violations = append(violations, dateViolation("latest"))
		} else {
			rng.Latest = ts.AddDate(0, 0, 1).Add(-time.Millisecond).UnixMilli()
		}
	}

	return rng, violations
}

func dateViolation(param string) string {
	return fmt.Sprintf("%q is invalid or not conforming to YYYY-MM-DD", param)
}

// normalizeCountries lowercases the requested country list, validates it and
// returns the uppercase form the storage layer keys rows by. An empty list
// selects all countries.
func normalizeCountries(raw string) (string, bool) {
	if raw == "" {
		return "", true
	}
	lowered := strings.ToLower(raw)
	if !countriesPattern.MatchString(lowered) {
		return "", false
	}
	return strings.ToUpper(lowered), true
}

// CountsByCountry returns per-country counts within the range, keyed by
// lowercase country code. Events without a known origin are aggregated under
// the unknown-country bucket and never reported here.
func (s *Service) CountsByCountry(ctx context.Context, rng DateRange, countries string) (map[string]v1.TypeCounts, error) {
	rows, err := s.store.DailyEventsBetween(ctx, rng.Earliest, rng.Latest, countries)
	if err != nil {
		return nil, err
	}

	result := make(map[string]v1.TypeCounts, len(rows))
	for _, row := range rows {
		country, counts := DecodeCountryRow(row)
		if country == strings.ToLower(v1.UnknownCountry) {
			continue
		}
		result[country] = counts
	}
	return result, nil
}

// Summary returns the overall counts within the range.
func (s *Service) Summary(ctx context.Context, rng DateRange) (v1.TypeCounts, error) {
	row, err := s.store.DailySummariesBetween(ctx, rng.Earliest, rng.Latest)
	if err != nil {
		return v1.TypeCounts{}, err
	}
	return DecodeCounts(row), nil
}
