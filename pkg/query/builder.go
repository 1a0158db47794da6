package query

import (
	"strings"
	"time"

	"service-call-analytics/pkg/apperrors"
	"service-call-analytics/pkg/models"
)

// Row limits for the two read paths. The filter path defaults to 1000 and
// accepts up to 5000; the unfiltered list-all path is capped at 2000.
const (
	DefaultFilterLimit = 1000
	MaxFilterLimit     = 5000
	AllCallsLimit      = 2000
)

const (
	dateColumn = "call_entry_datetime"
	dateLayout = "2006-01-02"
)

// CallColumns is the full service_calls column list in scan order. Shared by
// the builder and the repository so SELECT text and row scanning stay in sync.
const CallColumns = `call_id, customer_name, address, state, geo_loc_lat, geo_loc_lon, geo_loc_pincode, model, instrument_serial_no, warranty_expiry_date, zone, priority, visited_engineer_name, ticket_no, call_entry_datetime, start_call_datetime, call_solved_datetime, call_aging, response_time, recovery_time, customer_complaint, call_type, nature_of_complaint, complaint_description, call_status, status, visitor_remarks, forward_employee_name, instrument_status`

// filterColumns fixes both the set of filterable fields and the order in
// which their conditions appear in the statement. Column names come only
// from this compile-time enumeration, never from caller input.
var filterColumns = []struct {
	Field  string
	Column string
	values func(models.FilterSpec) []string
}{
	{"state", "state", func(s models.FilterSpec) []string { return s.State }},
	{"model", "model", func(s models.FilterSpec) []string { return s.Model }},
	{"assigned_to", "forward_employee_name", func(s models.FilterSpec) []string { return s.AssignedTo }},
	{"engineer", "visited_engineer_name", func(s models.FilterSpec) []string { return s.Engineer }},
	{"issue_category", "nature_of_complaint", func(s models.FilterSpec) []string { return s.IssueCategory }},
	{"instrument_status", "instrument_status", func(s models.FilterSpec) []string { return s.InstrumentStatus }},
	{"status", "status", func(s models.FilterSpec) []string { return s.Status }},
}

// distributionColumns enumerates the columns a distribution may group by.
var distributionColumns = map[string]string{
	"state":              "state",
	"model":              "model",
	"engineer":           "visited_engineer_name",
	"assigned_to":        "forward_employee_name",
	"issue_category":     "nature_of_complaint",
	"instrument_status":  "instrument_status",
	"call_type":          "call_type",
	"customer_complaint": "customer_complaint",
	"status":             "status",
}

// Query is a statement plus its ordered bound parameters.
type Query struct {
	SQL  string
	Args []interface{}
}

// FilterFields returns the filterable field keys in builder order.
func FilterFields() []string {
	fields := make([]string, 0, len(filterColumns))
	for _, fc := range filterColumns {
		fields = append(fields, fc.Field)
	}
	return fields
}

// FilterColumn maps a filterable field key to its column name.
func FilterColumn(field string) (string, bool) {
	for _, fc := range filterColumns {
		if fc.Field == field {
			return fc.Column, true
		}
	}
	return "", false
}

// DistributionColumn maps a distribution field key to its column name.
func DistributionColumn(field string) (string, bool) {
	column, ok := distributionColumns[field]
	return column, ok
}

// BuildFilter turns a FilterSpec into a parameterized SELECT over
// service_calls. All criteria are ANDed; a multi-valued criterion becomes an
// IN constraint; date bounds compare the calendar date of
// call_entry_datetime inclusively. Results are ordered most recent first and
// truncated to spec.Limit, which must be in [1, MaxFilterLimit].
func BuildFilter(spec models.FilterSpec) (Query, error) {
	if spec.Limit <= 0 {
		return Query{}, apperrors.InvalidArgumentf("limit must be positive, got %d", spec.Limit)
	}
	if spec.Limit > MaxFilterLimit {
		return Query{}, apperrors.InvalidArgumentf("limit %d exceeds maximum %d", spec.Limit, MaxFilterLimit)
	}

	var conditions []string
	var args []interface{}

	if spec.StartDate != "" {
		day, err := parseDay(spec.StartDate)
		if err != nil {
			return Query{}, err
		}
		conditions = append(conditions, "date("+dateColumn+") >= ?")
		args = append(args, day)
	}
	if spec.EndDate != "" {
		day, err := parseDay(spec.EndDate)
		if err != nil {
			return Query{}, err
		}
		conditions = append(conditions, "date("+dateColumn+") <= ?")
		args = append(args, day)
	}

	for _, fc := range filterColumns {
		values := stripBlanks(fc.values(spec))
		if len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			conditions = append(conditions, fc.Column+" = ?")
			args = append(args, values[0])
			continue
		}
		placeholders := strings.Repeat("?, ", len(values)-1) + "?"
		conditions = append(conditions, fc.Column+" IN ("+placeholders+")")
		for _, v := range values {
			args = append(args, v)
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(CallColumns)
	sb.WriteString(" FROM service_calls")
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conditions, " AND "))
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(dateColumn)
	sb.WriteString(" DESC LIMIT ?")
	args = append(args, spec.Limit)

	return Query{SQL: sb.String(), Args: args}, nil
}

// stripBlanks drops empty and whitespace-only entries, trimming the rest.
// An all-blank slice therefore imposes no constraint rather than matching
// nothing.
func stripBlanks(values []string) []string {
	var cleaned []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

func parseDay(value string) (string, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", apperrors.InvalidArgumentf("unparsable date %q, want YYYY-MM-DD", value)
	}
	return day.Format(dateLayout), nil
}
