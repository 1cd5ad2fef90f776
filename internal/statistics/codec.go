package statistics

import (
	"strconv"
	"strings"

	v1 "github.com/the-tatanka/product-vas-fraud-api/internal/api/v1"
)

// The aggregate functions return each result as one packed composite value,
// e.g. (DE,3,2,5,10,6,12). The format cannot carry embedded commas or
// parentheses; country codes and counts never contain either, and both ends
// of the protocol (the SQL functions in the migrations and this codec) must
// change together.

func splitComposite(packed string) []string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(packed, "("), ")")
	return strings.Split(trimmed, ",")
}

// countOrZero parses a base-10 count, defaulting to 0 when the field is
// missing or unparseable.
func countOrZero(fields []string, index int) int64 {
	if index >= len(fields) {
		return 0
	}
	value, err := strconv.ParseInt(strings.TrimSpace(fields[index]), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

func countsFrom(fields []string, offset int) v1.TypeCounts {
	return v1.TypeCounts{
		ActiveWarning:     countOrZero(fields, offset),
		Announcement:      countOrZero(fields, offset+1),
		FakeDocument:      countOrZero(fields, offset+2),
		FakeEmail:         countOrZero(fields, offset+3),
		FakePresidentCall: countOrZero(fields, offset+4),
		FalsifiedInvoice:  countOrZero(fields, offset+5),
	}
}

// DecodeCounts decodes a packed "(a,b,c,d,e,f)" row into the six counts.
func DecodeCounts(packed string) v1.TypeCounts {
	return countsFrom(splitComposite(packed), 0)
}

// DecodeCountryRow decodes a packed "(COUNTRY,a,b,c,d,e,f)" row. The country
// code is returned lowercased, as the geo response keys it.
func DecodeCountryRow(packed string) (string, v1.TypeCounts) {
	fields := splitComposite(packed)
	country := strings.ToLower(strings.TrimSpace(fields[0]))
	return country, countsFrom(fields, 1)
}
