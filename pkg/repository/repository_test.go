package repository_test

import (
	"context"
	"database/sql"
	"testing"

	"service-call-analytics/pkg/apperrors"
	"service-call-analytics/pkg/database"
	"service-call-analytics/pkg/models"
	"service-call-analytics/pkg/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

type seedCall struct {
	id       int64
	state    string
	model    string
	engineer string
	status   string
	callStat string
	entry    string
	solved   string
}

func seed(t *testing.T, db *sql.DB, calls []seedCall) {
	t.Helper()
	stmt, err := db.Prepare(`
		INSERT INTO service_calls (
			call_id, state, model, visited_engineer_name,
			status, call_status, call_entry_datetime, call_solved_datetime
		) VALUES (?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''),
			NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))
	`)
	require.NoError(t, err)
	defer stmt.Close()
	for _, c := range calls {
		_, err := stmt.Exec(c.id, c.state, c.model, c.engineer, c.status, c.callStat, c.entry, c.solved)
		require.NoError(t, err)
	}
}

func TestListAllNewestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)
	ctx := context.Background()

	seed(t, db, []seedCall{
		{id: 1, entry: "2024-01-01 08:00:00"},
		{id: 2, entry: "2024-03-15 08:00:00"},
		{id: 3, entry: "2024-02-10 08:00:00"},
	})

	records, err := repo.ListAll(ctx, 10)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(2), records[0].CallID)
	assert.Equal(t, int64(3), records[1].CallID)
	assert.Equal(t, int64(1), records[2].CallID)
}

func TestListAllRespectsLimit(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)

	seed(t, db, []seedCall{
		{id: 1, entry: "2024-01-01 08:00:00"},
		{id: 2, entry: "2024-01-02 08:00:00"},
	})

	records, err := repo.ListAll(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].CallID)
}

func TestListAllRejectsNonPositiveLimit(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)

	_, err := repo.ListAll(context.Background(), 0)
	assert.True(t, apperrors.IsInvalidArgument(err))

	_, err = repo.ListAll(context.Background(), -5)
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestGetByID(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)
	ctx := context.Background()

	seed(t, db, []seedCall{{id: 42, state: "TX", status: "Solved", entry: "2024-01-01 08:00:00"}})

	rec, err := repo.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.CallID)
	assert.Equal(t, "TX", *rec.State)
	assert.Nil(t, rec.Model)

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestFilterByFieldAndDateBounds(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)
	ctx := context.Background()

	seed(t, db, []seedCall{
		{id: 1, state: "TX", entry: "2024-01-10 08:00:00"},
		{id: 2, state: "TX", entry: "2024-02-20 08:00:00"},
		{id: 3, state: "CA", entry: "2024-01-15 08:00:00"},
		{id: 4, state: "TX", entry: "2024-03-01 08:00:00"},
	})

	records, err := repo.Filter(ctx, models.FilterSpec{
		State:     []string{"TX"},
		StartDate: "2024-01-10",
		EndDate:   "2024-02-20",
		Limit:     100,
	})

	require.NoError(t, err)
	require.Len(t, records, 2)
	// Both date bounds are inclusive on the calendar date.
	assert.Equal(t, int64(2), records[0].CallID)
	assert.Equal(t, int64(1), records[1].CallID)
}

func TestFilterMultiValue(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)

	seed(t, db, []seedCall{
		{id: 1, state: "TX", entry: "2024-01-01 08:00:00"},
		{id: 2, state: "CA", entry: "2024-01-02 08:00:00"},
		{id: 3, state: "NY", entry: "2024-01-03 08:00:00"},
	})

	records, err := repo.Filter(context.Background(), models.FilterSpec{
		State: []string{"TX", "NY"},
		Limit: 100,
	})

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(3), records[0].CallID)
	assert.Equal(t, int64(1), records[1].CallID)
}

func TestFilterNoCriteriaMatchesEverything(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)

	seed(t, db, []seedCall{
		{id: 1, entry: "2024-01-01 08:00:00"},
		{id: 2, entry: "2024-01-02 08:00:00"},
	})

	records, err := repo.Filter(context.Background(), models.FilterSpec{Limit: 100})

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestDistinctValuesSortedAndNonBlank(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)

	seed(t, db, []seedCall{
		{id: 1, state: "TX", entry: "2024-01-01 08:00:00"},
		{id: 2, state: "CA", entry: "2024-01-02 08:00:00"},
		{id: 3, state: "TX", entry: "2024-01-03 08:00:00"},
		{id: 4, entry: "2024-01-04 08:00:00"},
	})
	_, err := db.Exec(`INSERT INTO service_calls (call_id, state) VALUES (5, '   ')`)
	require.NoError(t, err)

	values, err := repo.DistinctValues(context.Background(), "state")

	require.NoError(t, err)
	assert.Equal(t, []string{"CA", "TX"}, values)

	_, err = repo.DistinctValues(context.Background(), "call_id; DROP TABLE service_calls")
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestEntryDateRange(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)
	ctx := context.Background()

	min, max, err := repo.EntryDateRange(ctx)
	require.NoError(t, err)
	assert.Nil(t, min)
	assert.Nil(t, max)

	seed(t, db, []seedCall{
		{id: 1, entry: "2024-02-10 23:59:00"},
		{id: 2, entry: "2024-01-05 08:00:00"},
	})

	min, max, err = repo.EntryDateRange(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", *min)
	assert.Equal(t, "2024-02-10", *max)
}

func TestTotalsClassificationAndAverage(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)

	seed(t, db, []seedCall{
		// Closed by status, one day of resolution.
		{id: 1, status: "Solved", entry: "2024-01-01 00:00:00", solved: "2024-01-02 00:00:00"},
		// Closed by call_status prefix, three days.
		{id: 2, callStat: "Solved - replaced pump", entry: "2024-01-01 00:00:00", solved: "2024-01-04 00:00:00"},
		// Pending, no solved time.
		{id: 3, status: "Pending", entry: "2024-01-05 00:00:00"},
		// Solved time precedes entry time, excluded from the average.
		{id: 4, status: "Solved", entry: "2024-01-10 00:00:00", solved: "2024-01-08 00:00:00"},
		// Unclassified status counts toward neither bucket.
		{id: 5, status: "Scheduled", entry: "2024-01-06 00:00:00"},
	})

	totals, err := repo.Totals(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, totals.TotalCalls)
	assert.Equal(t, 3, totals.ClosedCalls)
	assert.Equal(t, 1, totals.PendingCalls)
	require.NotNil(t, totals.AverageResolutionHours)
	// (24h + 72h) / 2 over the two well-formed resolutions.
	assert.Equal(t, 48.0, *totals.AverageResolutionHours)
}

func TestTotalsEmptyStore(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)

	totals, err := repo.Totals(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, totals.TotalCalls)
	assert.Equal(t, 0, totals.ClosedCalls)
	assert.Equal(t, 0, totals.PendingCalls)
	assert.Nil(t, totals.AverageResolutionHours)
}

func TestDistributionOrderingAndLimit(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)
	ctx := context.Background()

	seed(t, db, []seedCall{
		{id: 1, model: "X200", entry: "2024-01-01 08:00:00"},
		{id: 2, model: "X200", entry: "2024-01-02 08:00:00"},
		{id: 3, model: "A100", entry: "2024-01-03 08:00:00"},
		{id: 4, model: "B150", entry: "2024-01-04 08:00:00"},
		{id: 5, entry: "2024-01-05 08:00:00"},
	})

	items, err := repo.Distribution(ctx, "model", 0)
	require.NoError(t, err)
	// Descending by count, ties broken alphabetically; blanks excluded.
	assert.Equal(t, []models.DistributionItem{
		{Label: "X200", Value: 2},
		{Label: "A100", Value: 1},
		{Label: "B150", Value: 1},
	}, items)

	items, err = repo.Distribution(ctx, "model", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = repo.Distribution(ctx, "no_such_field", 0)
	assert.True(t, apperrors.IsInvalidArgument(err))
}

func TestLatestUpdateFromHistory(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)
	ctx := context.Background()

	update, err := repo.LatestUpdateFromHistory(ctx)
	require.NoError(t, err)
	assert.Nil(t, update)

	_, err = db.Exec(`
		INSERT INTO update_history (batch_id, file_name, rows_processed, new_rows, updated_at)
		VALUES ('a', 'old.csv', 10, 10, '2024-01-01 00:00:00'),
		       ('b', 'new.csv', 25, 5, '2024-06-01 00:00:00')
	`)
	require.NoError(t, err)

	update, err = repo.LatestUpdateFromHistory(ctx)
	require.NoError(t, err)
	require.NotNil(t, update)
	assert.Equal(t, "update_history", update.Source)
	assert.Equal(t, "new.csv", *update.FileName)
	assert.Equal(t, 25, *update.RowsProcessed)
	assert.Equal(t, 5, *update.NewRows)
	assert.False(t, update.Fallback)
}

func TestLatestUpdateFallback(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewSQLiteCallRepository(db)
	ctx := context.Background()

	update, err := repo.LatestUpdateFallback(ctx)
	require.NoError(t, err)
	assert.Nil(t, update)

	seed(t, db, []seedCall{
		{id: 1, entry: "2024-01-01 08:00:00", solved: "2024-01-02 08:00:00"},
		{id: 2, entry: "2024-03-01 08:00:00"},
	})

	update, err = repo.LatestUpdateFallback(ctx)
	require.NoError(t, err)
	require.NotNil(t, update)
	assert.Equal(t, "service_calls", update.Source)
	assert.True(t, update.Fallback)
	assert.Equal(t, 2, *update.RowsProcessed)
	assert.Equal(t, "2024-03-01 08:00:00", *update.UpdatedAt)
	assert.Equal(t, "2", update.Metadata["total_rows"])
	assert.Equal(t, "2024-01-02 08:00:00", update.Metadata["last_call_solved"])
}
