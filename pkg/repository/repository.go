package repository

import (
	"context"
	"database/sql"
	"math"
	"strconv"

	"service-call-analytics/pkg/apperrors"
	"service-call-analytics/pkg/models"
	"service-call-analytics/pkg/query"
)

// CallRepository exposes read access to the service-call record store. The
// core never mutates service_calls; writes belong to the ingestion side.
type CallRepository interface {
	ListAll(ctx context.Context, limit int) ([]models.ServiceCallRecord, error)
	GetByID(ctx context.Context, callID int64) (*models.ServiceCallRecord, error)
	Filter(ctx context.Context, spec models.FilterSpec) ([]models.ServiceCallRecord, error)
	DistinctValues(ctx context.Context, field string) ([]string, error)
	EntryDateRange(ctx context.Context) (min, max *string, err error)
	Totals(ctx context.Context) (*models.CallTotals, error)
	Distribution(ctx context.Context, field string, limit int) ([]models.DistributionItem, error)
	LatestUpdateFromHistory(ctx context.Context) (*models.LatestUpdate, error)
	LatestUpdateFallback(ctx context.Context) (*models.LatestUpdate, error)
}

// SQLiteCallRepository implements CallRepository against the SQLite store.
type SQLiteCallRepository struct {
	db *sql.DB
}

func NewSQLiteCallRepository(db *sql.DB) *SQLiteCallRepository {
	return &SQLiteCallRepository{db: db}
}

func (r *SQLiteCallRepository) ListAll(ctx context.Context, limit int) ([]models.ServiceCallRecord, error) {
	if limit <= 0 {
		return nil, apperrors.InvalidArgumentf("limit must be positive, got %d", limit)
	}
	if limit > query.AllCallsLimit {
		limit = query.AllCallsLimit
	}

	stmt := `
		SELECT ` + query.CallColumns + `
		FROM service_calls
		ORDER BY call_entry_datetime DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable("list calls", err)
	}
	defer rows.Close()

	return collectCalls(rows)
}

func (r *SQLiteCallRepository) GetByID(ctx context.Context, callID int64) (*models.ServiceCallRecord, error) {
	stmt := `
		SELECT ` + query.CallColumns + `
		FROM service_calls
		WHERE call_id = ?
	`
	rec, err := scanCall(r.db.QueryRowContext(ctx, stmt, callID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFoundf("call %d", callID)
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable("get call", err)
	}
	return rec, nil
}

func (r *SQLiteCallRepository) Filter(ctx context.Context, spec models.FilterSpec) ([]models.ServiceCallRecord, error) {
	q, err := query.BuildFilter(spec)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, apperrors.StoreUnavailable("filter calls", err)
	}
	defer rows.Close()

	return collectCalls(rows)
}

// DistinctValues returns the sorted distinct non-blank values of a
// filterable column. The column name comes from the builder's fixed field
// enumeration; an unknown field is a caller error.
func (r *SQLiteCallRepository) DistinctValues(ctx context.Context, field string) ([]string, error) {
	column, ok := query.FilterColumn(field)
	if !ok {
		return nil, apperrors.InvalidArgumentf("unknown filter field %q", field)
	}

	stmt := `
		SELECT DISTINCT ` + column + `
		FROM service_calls
		WHERE ` + column + ` IS NOT NULL AND TRIM(` + column + `) <> ''
		ORDER BY ` + column + `
	`
	rows, err := r.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, apperrors.StoreUnavailable("distinct "+field, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, apperrors.StoreUnavailable("distinct "+field, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (r *SQLiteCallRepository) EntryDateRange(ctx context.Context) (*string, *string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT MIN(date(call_entry_datetime)), MAX(date(call_entry_datetime))
		FROM service_calls
	`)
	var min, max sql.NullString
	if err := row.Scan(&min, &max); err != nil {
		return nil, nil, apperrors.StoreUnavailable("entry date range", err)
	}
	return textPtr(min), textPtr(max), nil
}

// Totals computes the store-wide KPI counts in one aggregate pass. The
// closed/pending classification mirrors the engine's dual-field rule; rows
// whose solved time precedes the entry time are left out of the resolution
// average.
func (r *SQLiteCallRepository) Totals(ctx context.Context) (*models.CallTotals, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS total_calls,
			SUM(
				CASE
					WHEN LOWER(COALESCE(status, '')) IN ('solved', 'closed', 'completed', 'resolved')
					     OR LOWER(COALESCE(call_status, '')) LIKE 'solved%'
					THEN 1 ELSE 0
				END
			) AS closed_calls,
			SUM(
				CASE
					WHEN LOWER(COALESCE(status, '')) IN ('pending', 'processing', 'unsolved', 'open', 'in progress')
					THEN 1 ELSE 0
				END
			) AS pending_calls,
			AVG(
				CASE
					WHEN call_entry_datetime IS NOT NULL
					     AND call_solved_datetime IS NOT NULL
					     AND julianday(call_solved_datetime) >= julianday(call_entry_datetime)
					THEN (julianday(call_solved_datetime) - julianday(call_entry_datetime)) * 24.0
				END
			) AS avg_resolution
		FROM service_calls
	`)

	var totals models.CallTotals
	var closed, pending sql.NullInt64
	var avg sql.NullFloat64
	if err := row.Scan(&totals.TotalCalls, &closed, &pending, &avg); err != nil {
		return nil, apperrors.StoreUnavailable("totals", err)
	}
	totals.ClosedCalls = int(closed.Int64)
	totals.PendingCalls = int(pending.Int64)
	if avg.Valid {
		rounded := math.Round(avg.Float64*100) / 100
		totals.AverageResolutionHours = &rounded
	}
	return &totals, nil
}

// Distribution groups by one enumerated column and counts per value,
// descending by count with ties broken by the value itself. limit <= 0 means
// unbounded.
func (r *SQLiteCallRepository) Distribution(ctx context.Context, field string, limit int) ([]models.DistributionItem, error) {
	column, ok := query.DistributionColumn(field)
	if !ok {
		return nil, apperrors.InvalidArgumentf("unknown distribution field %q", field)
	}

	stmt := `
		SELECT ` + column + ` AS label, COUNT(*) AS value
		FROM service_calls
		WHERE ` + column + ` IS NOT NULL AND TRIM(` + column + `) <> ''
		GROUP BY ` + column + `
		ORDER BY value DESC, label ASC
	`
	var args []interface{}
	if limit > 0 {
		stmt += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, apperrors.StoreUnavailable("distribution "+field, err)
	}
	defer rows.Close()

	var items []models.DistributionItem
	for rows.Next() {
		var item models.DistributionItem
		if err := rows.Scan(&item.Label, &item.Value); err != nil {
			return nil, apperrors.StoreUnavailable("distribution "+field, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteCallRepository) LatestUpdateFromHistory(ctx context.Context) (*models.LatestUpdate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT file_name, rows_processed, new_rows, updated_at
		FROM update_history
		ORDER BY updated_at DESC
		LIMIT 1
	`)

	var fileName, updatedAt sql.NullString
	var rowsProcessed, newRows sql.NullInt64
	err := row.Scan(&fileName, &rowsProcessed, &newRows, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable("latest update history", err)
	}

	update := &models.LatestUpdate{Source: "update_history"}
	update.FileName = textPtr(fileName)
	update.UpdatedAt = textPtr(updatedAt)
	if rowsProcessed.Valid {
		n := int(rowsProcessed.Int64)
		update.RowsProcessed = &n
	}
	if newRows.Valid {
		n := int(newRows.Int64)
		update.NewRows = &n
	}
	return update, nil
}

// LatestUpdateFallback derives a synthetic latest-update summary from the
// record store itself. Returns (nil, nil) when the store is empty.
func (r *SQLiteCallRepository) LatestUpdateFallback(ctx context.Context) (*models.LatestUpdate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS total_rows,
			MAX(call_entry_datetime) AS last_call_entry,
			MAX(call_solved_datetime) AS last_call_solved,
			MAX(start_call_datetime) AS last_start
		FROM service_calls
	`)

	var totalRows int
	var lastEntry, lastSolved, lastStart sql.NullString
	if err := row.Scan(&totalRows, &lastEntry, &lastSolved, &lastStart); err != nil {
		return nil, apperrors.StoreUnavailable("latest update fallback", err)
	}
	if totalRows == 0 {
		return nil, nil
	}

	metadata := map[string]string{"total_rows": strconv.Itoa(totalRows)}
	if lastEntry.Valid {
		metadata["last_call_entry"] = lastEntry.String
	}
	if lastSolved.Valid {
		metadata["last_call_solved"] = lastSolved.String
	}
	if lastStart.Valid {
		metadata["last_start_call"] = lastStart.String
	}

	update := &models.LatestUpdate{
		Source:        "service_calls",
		RowsProcessed: &totalRows,
		UpdatedAt:     textPtr(lastEntry),
		Fallback:      true,
		Metadata:      metadata,
	}
	return update, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func collectCalls(rows *sql.Rows) ([]models.ServiceCallRecord, error) {
	var records []models.ServiceCallRecord
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, apperrors.StoreUnavailable("scan call", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("read calls", err)
	}
	return records, nil
}

func scanCall(row rowScanner) (*models.ServiceCallRecord, error) {
	var rec models.ServiceCallRecord
	var (
		customerName, address, state, pincode, model          sql.NullString
		serialNo, warrantyExpiry, zone, priority, engineer    sql.NullString
		entryAt, startAt, solvedAt, aging, response, recovery sql.NullString
		complaint, callType, nature, description, callStatus  sql.NullString
		status, remarks, forwardEmployee, instrumentStatus    sql.NullString
		lat, lon                                              sql.NullFloat64
		ticketNo                                              sql.NullInt64
	)

	err := row.Scan(
		&rec.CallID,
		&customerName,
		&address,
		&state,
		&lat,
		&lon,
		&pincode,
		&model,
		&serialNo,
		&warrantyExpiry,
		&zone,
		&priority,
		&engineer,
		&ticketNo,
		&entryAt,
		&startAt,
		&solvedAt,
		&aging,
		&response,
		&recovery,
		&complaint,
		&callType,
		&nature,
		&description,
		&callStatus,
		&status,
		&remarks,
		&forwardEmployee,
		&instrumentStatus,
	)
	if err != nil {
		return nil, err
	}

	rec.CustomerName = textPtr(customerName)
	rec.Address = textPtr(address)
	rec.State = textPtr(state)
	rec.GeoLocLat = floatPtr(lat)
	rec.GeoLocLon = floatPtr(lon)
	rec.GeoLocPincode = textPtr(pincode)
	rec.Model = textPtr(model)
	rec.InstrumentSerialNo = textPtr(serialNo)
	rec.WarrantyExpiryDate = textPtr(warrantyExpiry)
	rec.Zone = textPtr(zone)
	rec.Priority = textPtr(priority)
	rec.VisitedEngineerName = textPtr(engineer)
	rec.TicketNo = intPtr(ticketNo)
	rec.CallEntryDatetime = textPtr(entryAt)
	rec.StartCallDatetime = textPtr(startAt)
	rec.CallSolvedDatetime = textPtr(solvedAt)
	rec.CallAging = textPtr(aging)
	rec.ResponseTime = textPtr(response)
	rec.RecoveryTime = textPtr(recovery)
	rec.CustomerComplaint = textPtr(complaint)
	rec.CallType = textPtr(callType)
	rec.NatureOfComplaint = textPtr(nature)
	rec.ComplaintDescription = textPtr(description)
	rec.CallStatus = textPtr(callStatus)
	rec.Status = textPtr(status)
	rec.VisitorRemarks = textPtr(remarks)
	rec.ForwardEmployeeName = textPtr(forwardEmployee)
	rec.InstrumentStatus = textPtr(instrumentStatus)
	return &rec, nil
}

func textPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
