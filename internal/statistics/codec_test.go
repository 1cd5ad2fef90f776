package statistics

import (
	"fmt"
	"testing"

	v1 "github.com/the-tatanka/product-vas-fraud-api/internal/api/v1"
	"github.com/stretchr/testify/require"
)

func packCounts(counts v1.TypeCounts) string {
	return fmt.Sprintf("(%d,%d,%d,%d,%d,%d)",
		counts.ActiveWarning, counts.Announcement, counts.FakeDocument,
		counts.FakeEmail, counts.FakePresidentCall, counts.FalsifiedInvoice)
}

func TestDecodeCounts_RoundTrip(t *testing.T) {
	samples := []v1.TypeCounts{
		{},
		{ActiveWarning: 1, Announcement: 2, FakeDocument: 3, FakeEmail: 4, FakePresidentCall: 5, FalsifiedInvoice: 6},
		{FakeEmail: 9000000000},
		{ActiveWarning: 42, FalsifiedInvoice: 17},
	}
	for _, counts := range samples {
		require.Equal(t, counts, DecodeCounts(packCounts(counts)))
	}
}

func TestDecodeCounts_Defaults(t *testing.T) {
	tests := []struct {
		name   string
		packed string
		want   v1.TypeCounts
	}{
		{"empty composite", "()", v1.TypeCounts{}},
		{"garbage fields", "(x,,3,?,5,)", v1.TypeCounts{FakeDocument: 3, FakePresidentCall: 5}},
		{"missing fields", "(7,8)", v1.TypeCounts{ActiveWarning: 7, Announcement: 8}},
		{"padded fields", "( 1 , 2 ,3,4,5,6)", v1.TypeCounts{ActiveWarning: 1, Announcement: 2, FakeDocument: 3, FakeEmail: 4, FakePresidentCall: 5, FalsifiedInvoice: 6}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DecodeCounts(tc.packed))
		})
	}
}

func TestDecodeCountryRow(t *testing.T) {
	country, counts := DecodeCountryRow("(DE,3,2,5,10,6,12)")
	require.Equal(t, "de", country)
	require.Equal(t, v1.TypeCounts{
		ActiveWarning:     3,
		Announcement:      2,
		FakeDocument:      5,
		FakeEmail:         10,
		FakePresidentCall: 6,
		FalsifiedInvoice:  12,
	}, counts)
}

func TestDecodeCountryRow_UnknownBucket(t *testing.T) {
	country, counts := DecodeCountryRow("(XX,0,0,1,0,0,0)")
	require.Equal(t, "xx", country)
	require.Equal(t, v1.TypeCounts{FakeDocument: 1}, counts)
}
