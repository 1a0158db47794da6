package models

// ServiceCallRecord is one row of the service_calls table. Optional columns
// are pointers; a nil pointer means the value is absent in the store (blank
// values are normalized to NULL at ingest, never stored as empty strings).
// Timestamps are kept in their canonical sortable string form
// ("2006-01-02 15:04:05", dates "2006-01-02").
type ServiceCallRecord struct {
	CallID               int64    `json:"call_id" db:"call_id"`
	CustomerName         *string  `json:"customer_name" db:"customer_name"`
	Address              *string  `json:"address" db:"address"`
	State                *string  `json:"state" db:"state"`
	GeoLocLat            *float64 `json:"geo_loc_lat" db:"geo_loc_lat"`
	GeoLocLon            *float64 `json:"geo_loc_lon" db:"geo_loc_lon"`
	GeoLocPincode        *string  `json:"geo_loc_pincode" db:"geo_loc_pincode"`
	Model                *string  `json:"model" db:"model"`
	InstrumentSerialNo   *string  `json:"instrument_serial_no" db:"instrument_serial_no"`
	WarrantyExpiryDate   *string  `json:"warranty_expiry_date" db:"warranty_expiry_date"`
	Zone                 *string  `json:"zone" db:"zone"`
	Priority             *string  `json:"priority" db:"priority"`
	VisitedEngineerName  *string  `json:"visited_engineer_name" db:"visited_engineer_name"`
	TicketNo             *int64   `json:"ticket_no" db:"ticket_no"`
	CallEntryDatetime    *string  `json:"call_entry_datetime" db:"call_entry_datetime"`
	StartCallDatetime    *string  `json:"start_call_datetime" db:"start_call_datetime"`
	CallSolvedDatetime   *string  `json:"call_solved_datetime" db:"call_solved_datetime"`
	CallAging            *string  `json:"call_aging" db:"call_aging"`
	ResponseTime         *string  `json:"response_time" db:"response_time"`
	RecoveryTime         *string  `json:"recovery_time" db:"recovery_time"`
	CustomerComplaint    *string  `json:"customer_complaint" db:"customer_complaint"`
	CallType             *string  `json:"call_type" db:"call_type"`
	NatureOfComplaint    *string  `json:"nature_of_complaint" db:"nature_of_complaint"`
	ComplaintDescription *string  `json:"complaint_description" db:"complaint_description"`
	CallStatus           *string  `json:"call_status" db:"call_status"`
	Status               *string  `json:"status" db:"status"`
	VisitorRemarks       *string  `json:"visitor_remarks" db:"visitor_remarks"`
	ForwardEmployeeName  *string  `json:"forward_employee_name" db:"forward_employee_name"`
	InstrumentStatus     *string  `json:"instrument_status" db:"instrument_status"`
}

// FilterSpec carries the optional criteria for one filtered query. Criteria
// are conjunctive across fields; within a field a slice of values means "any
// of these". Blank entries in a slice are stripped before use, and a slice
// that becomes empty imposes no constraint. Dates are "2006-01-02" strings
// bounding the calendar date of call_entry_datetime, inclusive on both ends.
type FilterSpec struct {
	State            []string `json:"state,omitempty"`
	Model            []string `json:"model,omitempty"`
	AssignedTo       []string `json:"assigned_to,omitempty"`
	Engineer         []string `json:"engineer,omitempty"`
	IssueCategory    []string `json:"issue_category,omitempty"`
	InstrumentStatus []string `json:"instrument_status,omitempty"`
	Status           []string `json:"status,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	Limit            int      `json:"limit,omitempty"`
}

// FilterMetadata is the snapshot used to populate filter controls: the
// observable call_entry_datetime date range plus the sorted distinct values
// of each filterable column.
type FilterMetadata struct {
	DateMin                 *string  `json:"date_min"`
	DateMax                 *string  `json:"date_max"`
	StateOptions            []string `json:"state_options"`
	ModelOptions            []string `json:"model_options"`
	AssignedToOptions       []string `json:"assigned_to_options"`
	EngineerOptions         []string `json:"engineer_options"`
	IssueCategoryOptions    []string `json:"issue_category_options"`
	InstrumentStatusOptions []string `json:"instrument_status_options"`
	StatusOptions           []string `json:"status_options"`
}

// DistributionItem is one bucket of a categorical distribution.
type DistributionItem struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// TimeSeriesPoint is one day of a per-day count series.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// MapPoint is a record projected for map rendering. Only records with both
// coordinates present and inside the valid lat/lon ranges become points.
type MapPoint struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	State    *string `json:"state"`
	Model    *string `json:"model"`
	Engineer *string `json:"engineer"`
}

// CallTotals holds the store-wide aggregate counts behind /calls/stats.
type CallTotals struct {
	TotalCalls             int      `json:"total_calls"`
	ClosedCalls            int      `json:"closed_calls"`
	PendingCalls           int      `json:"pending_calls"`
	AverageResolutionHours *float64 `json:"average_resolution_hours"`
}

// KPIStats is the /calls/stats response shape.
type KPIStats struct {
	TotalCalls             int                `json:"total_calls"`
	ClosedCalls            int                `json:"closed_calls"`
	PendingCalls           int                `json:"pending_calls"`
	AverageResolutionHours *float64           `json:"average_resolution_hours"`
	StateDistribution      []DistributionItem `json:"state_distribution"`
	ModelDistribution      []DistributionItem `json:"model_distribution"`
	EngineerWorkload       []DistributionItem `json:"engineer_workload"`
}

// KPISummary holds the dashboard KPI card numbers computed over a filtered
// record set.
type KPISummary struct {
	TotalCalls        int     `json:"total_calls"`
	ClosedCalls       int     `json:"closed_calls"`
	PendingCalls      int     `json:"pending_calls"`
	AvgResolutionDays float64 `json:"avg_resolution_days"`
	SLACompliance     float64 `json:"sla_compliance"`
	RepeatedIssues    int     `json:"repeated_issues"`
}

// DashboardData is the full payload for one dashboard render: KPIs, chart
// projections, and map points, all derived from the same filtered record set.
type DashboardData struct {
	KPIs                   KPISummary         `json:"kpis"`
	CallsLoggedPerDay      []TimeSeriesPoint  `json:"calls_logged_per_day"`
	CallsClosedPerDay      []TimeSeriesPoint  `json:"calls_closed_per_day"`
	TopIssues              []DistributionItem `json:"top_issues"`
	StateDistribution      []DistributionItem `json:"state_distribution"`
	EngineerWorkload       []DistributionItem `json:"engineer_workload"`
	ModelDistribution      []DistributionItem `json:"model_distribution"`
	InstrumentDistribution []DistributionItem `json:"instrument_distribution"`
	CallTypeDistribution   []DistributionItem `json:"call_type_distribution"`
	ResolutionDays         []float64          `json:"resolution_days"`
	MapPoints              []MapPoint         `json:"map_points"`
}

// LatestUpdate describes the most recent ingestion. Source is
// "update_history" when an ingestion-history row exists, otherwise
// "service_calls" with Fallback set and a synthetic summary derived from the
// store's own max timestamps and row count.
type LatestUpdate struct {
	Source        string            `json:"source"`
	FileName      *string           `json:"file_name,omitempty"`
	RowsProcessed *int              `json:"rows_processed,omitempty"`
	NewRows       *int              `json:"new_rows,omitempty"`
	UpdatedAt     *string           `json:"updated_at,omitempty"`
	Fallback      bool              `json:"fallback"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	BatchID       string `json:"batch_id"`
	FileName      string `json:"file_name"`
	RowsProcessed int    `json:"rows_processed"`
	NewRows       int    `json:"new_rows"`
	UpdatedAt     string `json:"updated_at"`
}
