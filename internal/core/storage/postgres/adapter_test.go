package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/the-tatanka/product-vas-fraud-api/internal/api/v1"
	"github.com/stretchr/testify/require"
)

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryServerNow))
	mock.ExpectPrepare(regexp.QuoteMeta(queryDailyEventsBetween))
	mock.ExpectPrepare(regexp.QuoteMeta(queryDailySummariesBetween))

	stmtNow, err := db.Prepare(queryServerNow)
	require.NoError(t, err)
	stmtDaily, err := db.Prepare(queryDailyEventsBetween)
	require.NoError(t, err)
	stmtSummaries, err := db.Prepare(queryDailySummariesBetween)
	require.NoError(t, err)

	return &Adapter{
		db:                 db,
		stmtServerNow:      stmtNow,
		stmtDailyEvents:    stmtDaily,
		stmtDailySummaries: stmtSummaries,
	}, mock, db
}

func TestAdapter_UpsertEvents(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	events := []v1.EventInsert{
		{CdlID: "FQdqB4fDL4", AttackDate: 1485908200000, CountryCode: "DE", FraudType: v1.FraudTypeFalsifiedInvoice},
		{CdlID: "zbSSUNiDzG", AttackDate: 1488327600000, CountryCode: "IT", FraudType: v1.FraudTypeAnnouncement},
	}

	wantQuery, _ := buildUpsertQuery(events)
	mock.ExpectExec(regexp.QuoteMeta(wantQuery)).
		WithArgs(
			"FQdqB4fDL4", int64(1485908200000), "DE", "FALSIFIED_INVOICE",
			"zbSSUNiDzG", int64(1488327600000), "IT", "ANNOUNCEMENT",
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	updated, err := adapter.UpsertEvents(context.Background(), events)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_UpsertEvents_EmptyBatchSkipsDatabase(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	updated, err := adapter.UpsertEvents(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildUpsertQuery(t *testing.T) {
	events := []v1.EventInsert{
		{CdlID: "FQdqB4fDL4", AttackDate: 1, CountryCode: "DE", FraudType: v1.FraudTypeFakeEmail},
		{CdlID: "zbSSUNiDzG", AttackDate: 2, CountryCode: "XX", FraudType: v1.FraudTypeAnnouncement},
	}

	query, args := buildUpsertQuery(events)
	require.Contains(t, query, "($1, $2, $3, $4), ($5, $6, $7, $8)")
	require.Contains(t, query, "ON CONFLICT (cdl_id) DO UPDATE")
	require.Len(t, args, 8)
	require.Equal(t, "XX", args[6])
}

func TestAdapter_ServerNow(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	now := time.Date(2022, 12, 31, 16, 23, 10, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(queryServerNow)).
		WillReturnRows(sqlmock.NewRows([]string{"now"}).AddRow(now))

	got, err := adapter.ServerNow(context.Background())
	require.NoError(t, err)
	require.True(t, got.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DeleteEventsBefore(t *testing.T) {
	watermark := time.Date(2022, 12, 31, 16, 23, 10, 0, time.UTC)

	tests := []struct {
		name      string
		watermark *time.Time
		expect    func(mock sqlmock.Sqlmock)
		want      int64
	}{
		{
			name:      "watermark delete",
			watermark: &watermark,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(queryDeleteEventsBefore)).
					WithArgs(watermark).
					WillReturnResult(sqlmock.NewResult(0, 3))
			},
			want: 3,
		},
		{
			name:      "full purge without watermark",
			watermark: nil,
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(queryDeleteAllEvents)).
					WillReturnResult(sqlmock.NewResult(0, 12))
			},
			want: 12,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.expect(mock)

			deleted, err := adapter.DeleteEventsBefore(context.Background(), tc.watermark)
			require.NoError(t, err)
			require.Equal(t, tc.want, deleted)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_RefreshViews(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(queryRefreshDailyEvents)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(queryRefreshDailySummaries)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, adapter.RefreshDailyEvents(context.Background()))
	require.NoError(t, adapter.RefreshDailySummaries(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DailyEventsBetween(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"dailyevents_between"}).
		AddRow("(DE,3,2,5,10,6,12)").
		AddRow("(FR,2,4,8,6,7,18)")
	mock.ExpectQuery(regexp.QuoteMeta(queryDailyEventsBetween)).
		WithArgs(int64(0), int64(31556995200000), "DE,FR").
		WillReturnRows(rows)

	packed, err := adapter.DailyEventsBetween(context.Background(), 0, 31556995200000, "DE,FR")
	require.NoError(t, err)
	require.Equal(t, []string{"(DE,3,2,5,10,6,12)", "(FR,2,4,8,6,7,18)"}, packed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_DailySummariesBetween(t *testing.T) {
	tests := []struct {
		name   string
		expect func(mock sqlmock.Sqlmock)
		want   string
	}{
		{
			name: "packed row",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryDailySummariesBetween)).
					WithArgs(int64(100), int64(200)).
					WillReturnRows(sqlmock.NewRows([]string{"dailysummaries_between"}).AddRow("(16,17,17,19,23,40)"))
			},
			want: "(16,17,17,19,23,40)",
		},
		{
			name: "null row falls back to zero counts",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryDailySummariesBetween)).
					WithArgs(int64(100), int64(200)).
					WillReturnRows(sqlmock.NewRows([]string{"dailysummaries_between"}).AddRow(nil))
			},
			want: "(0,0,0,0,0,0)",
		},
		{
			name: "no row falls back to zero counts",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(queryDailySummariesBetween)).
					WithArgs(int64(100), int64(200)).
					WillReturnRows(sqlmock.NewRows([]string{"dailysummaries_between"}))
			},
			want: "(0,0,0,0,0,0)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.expect(mock)

			packed, err := adapter.DailySummariesBetween(context.Background(), 100, 200)
			require.NoError(t, err)
			require.Equal(t, tc.want, packed)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_ValidateSchema(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := adapter.ValidateSchema(context.Background())
	require.ErrorContains(t, err, "fraudevents table does not exist")
}
