package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"service-call-analytics/pkg/models"
)

// Everything in this file is a pure function over an in-memory record set:
// same input, same output, no store access. That keeps the KPI rules unit
// testable away from SQL.

// StatusOutcome is the closed/pending classification of one record.
type StatusOutcome int

const (
	StatusOther StatusOutcome = iota
	StatusClosed
	StatusPending
)

var closedTargets = []string{"solved", "closed", "completed", "resolved"}
var pendingTargets = []string{"pending", "processing", "unsolved", "open", "in progress"}

// SLA target: a call resolved within 2 days is compliant (inclusive).
const slaTargetDays = 2.0

// Repeat window: the same customer/complaint pair recurring within 30 days
// of its immediately preceding occurrence counts as a repeated issue.
const repeatWindowDays = 30.0

// timestampLayouts are tried in order when reading stored timestamps. Rows
// are written in the first form; the rest tolerate data that predates the
// normalizing loader.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// ClassifyStatus applies the dual-field status rule. The `status` column is
// matched exactly (case-insensitive) against the target set; `call_status`
// matches when it starts with a target, which catches values like
// "Solved - OK". Datasets populate only one of the two fields
// inconsistently, so either field alone may decide. Closed wins when a
// contradictory row matches both target sets.
func ClassifyStatus(status, callStatus *string) StatusOutcome {
	if statusMatches(status, callStatus, closedTargets) {
		return StatusClosed
	}
	if statusMatches(status, callStatus, pendingTargets) {
		return StatusPending
	}
	return StatusOther
}

func statusMatches(status, callStatus *string, targets []string) bool {
	if status != nil {
		v := strings.ToLower(strings.TrimSpace(*status))
		for _, t := range targets {
			if v == t {
				return true
			}
		}
	}
	if callStatus != nil {
		v := strings.ToLower(strings.TrimSpace(*callStatus))
		for _, t := range targets {
			if v != "" && strings.HasPrefix(v, t) {
				return true
			}
		}
	}
	return false
}

// ComputeKPIs derives the dashboard KPI summary from a filtered record set.
// An empty input yields the zero summary, never an error.
func ComputeKPIs(records []models.ServiceCallRecord) models.KPISummary {
	summary := models.KPISummary{TotalCalls: len(records)}
	if len(records) == 0 {
		return summary
	}

	for _, rec := range records {
		switch ClassifyStatus(rec.Status, rec.CallStatus) {
		case StatusClosed:
			summary.ClosedCalls++
		case StatusPending:
			summary.PendingCalls++
		}
	}

	resolutions := ResolutionDays(records)
	if len(resolutions) > 0 {
		var sum float64
		var compliant int
		for _, d := range resolutions {
			sum += d
			if d <= slaTargetDays {
				compliant++
			}
		}
		summary.AvgResolutionDays = round2(sum / float64(len(resolutions)))
		summary.SLACompliance = round1(float64(compliant) / float64(len(resolutions)) * 100)
	}

	summary.RepeatedIssues = RepeatedIssueCount(records)
	return summary
}

// ResolutionDays returns the resolution duration in days for every record
// with both endpoints present and parsable. Rows whose solved time precedes
// the entry time are data anomalies and contribute no sample.
func ResolutionDays(records []models.ServiceCallRecord) []float64 {
	var days []float64
	for _, rec := range records {
		entry, ok := ParseTimestamp(rec.CallEntryDatetime)
		if !ok {
			continue
		}
		solved, ok := ParseTimestamp(rec.CallSolvedDatetime)
		if !ok {
			continue
		}
		d := solved.Sub(entry).Hours() / 24
		if d < 0 {
			continue
		}
		days = append(days, d)
	}
	return days
}

// RepeatedIssueCount counts recurrences: records that are not the first
// chronological occurrence of their (customer, complaint) pair and whose
// entry time falls within the repeat window of the immediately preceding
// occurrence. Identical timestamps within a pair keep input order so the
// count is reproducible.
func RepeatedIssueCount(records []models.ServiceCallRecord) int {
	groups := make(map[[2]string][]time.Time)
	for _, rec := range records {
		customer := trimmed(rec.CustomerName)
		complaint := trimmed(rec.CustomerComplaint)
		if customer == "" || complaint == "" {
			continue
		}
		at, ok := ParseTimestamp(rec.CallEntryDatetime)
		if !ok {
			continue
		}
		key := [2]string{customer, complaint}
		groups[key] = append(groups[key], at)
	}

	count := 0
	for _, occ := range groups {
		// Stable sort keeps input order for identical timestamps.
		sort.SliceStable(occ, func(i, j int) bool { return occ[i].Before(occ[j]) })
		for i := 1; i < len(occ); i++ {
			diff := occ[i].Sub(occ[i-1]).Hours() / 24
			if diff <= repeatWindowDays {
				count++
			}
		}
	}
	return count
}

// Distribution counts records per non-blank trimmed value of one field,
// descending by count with ties broken by the value in ascending order.
// limit <= 0 means no truncation.
func Distribution(records []models.ServiceCallRecord, value func(models.ServiceCallRecord) *string, limit int) []models.DistributionItem {
	counts := make(map[string]int)
	for _, rec := range records {
		v := trimmed(value(rec))
		if v == "" {
			continue
		}
		counts[v]++
	}

	items := make([]models.DistributionItem, 0, len(counts))
	for label, n := range counts {
		items = append(items, models.DistributionItem{Label: label, Value: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Value != items[j].Value {
			return items[i].Value > items[j].Value
		}
		return items[i].Label < items[j].Label
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// CallsPerDay buckets records by the calendar date of one timestamp field,
// ascending by date. Records where the field is absent or unparsable are
// dropped.
func CallsPerDay(records []models.ServiceCallRecord, timestamp func(models.ServiceCallRecord) *string) []models.TimeSeriesPoint {
	counts := make(map[string]int)
	for _, rec := range records {
		at, ok := ParseTimestamp(timestamp(rec))
		if !ok {
			continue
		}
		counts[at.Format("2006-01-02")]++
	}

	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]models.TimeSeriesPoint, 0, len(dates))
	for _, d := range dates {
		points = append(points, models.TimeSeriesPoint{Date: d, Count: counts[d]})
	}
	return points
}

// MapPoints projects records with valid coordinates for map rendering.
// Out-of-range values are treated as absent.
func MapPoints(records []models.ServiceCallRecord) []models.MapPoint {
	var points []models.MapPoint
	for _, rec := range records {
		if rec.GeoLocLat == nil || rec.GeoLocLon == nil {
			continue
		}
		lat, lon := *rec.GeoLocLat, *rec.GeoLocLon
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			continue
		}
		points = append(points, models.MapPoint{
			Lat:      lat,
			Lon:      lon,
			State:    rec.State,
			Model:    rec.Model,
			Engineer: rec.VisitedEngineerName,
		})
	}
	return points
}

// ParseTimestamp reads a stored timestamp string. A nil or blank value, or
// one matching no known layout, reports ok=false.
func ParseTimestamp(value *string) (time.Time, bool) {
	v := trimmed(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if at, err := time.Parse(layout, v); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }
