package postgres

// SQL for the fraud event table and its derived materialized views.

const (
	// queryServerNow reads the database clock. updated_at is stamped by the
	// same clock, so this value is a safe purge watermark.
	queryServerNow = `SELECT NOW()::TIMESTAMPTZ`

	queryDeleteEventsBefore = `DELETE FROM fraudevents WHERE updated_at < $1`

	queryDeleteAllEvents = `DELETE FROM fraudevents`

	// The views must be refreshed in this order after a purge; queries hit
	// dailyevents first and the two should not drift apart longer than needed.
	queryRefreshDailyEvents = `REFRESH MATERIALIZED VIEW dailyevents`

	queryRefreshDailySummaries = `REFRESH MATERIALIZED VIEW dailysummaries`

	// queryDailyEventsBetween returns one packed composite row per country,
	// e.g. (DE,3,2,5,10,6,12). Decoded client-side.
	queryDailyEventsBetween = `SELECT dailyevents_between($1, $2, $3)`

	// queryDailySummariesBetween returns a single packed composite row with
	// the six counts across all countries, e.g. (16,17,17,19,23,40).
	queryDailySummariesBetween = `SELECT dailysummaries_between($1, $2)`

	// upsertEventsPrefix/upsertEventsSuffix frame the multi-row VALUES list
	// built per batch chunk. The updated_at trigger bumps the timestamp on
	// every conflict-update, which is exactly what the purge watermark
	// filters on.
	upsertEventsPrefix = `INSERT INTO fraudevents (cdl_id, attack_date, country_code, fraudtype) VALUES `

	upsertEventsSuffix = ` ON CONFLICT (cdl_id) DO UPDATE SET
		attack_date  = EXCLUDED.attack_date,
		country_code = EXCLUDED.country_code,
		fraudtype    = EXCLUDED.fraudtype`
)
