package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"

	"service-call-analytics/pkg/models"
)

// headerRenames maps export spreadsheet headers to service_calls columns.
var headerRenames = map[string]string{
	"Call ID":               "call_id",
	"Customer Name":         "customer_name",
	"Address":               "address",
	"State":                 "state",
	"Geo Loc - Lat":         "geo_loc_lat",
	"Geo Loc - Lan":         "geo_loc_lon",
	"Geo Loc - Pincode":     "geo_loc_pincode",
	"Model":                 "model",
	"Instrument Serial No":  "instrument_serial_no",
	"Warranty Expiry Date":  "warranty_expiry_date",
	"Zone":                  "zone",
	"Priority":              "priority",
	"Visited Engineer Name": "visited_engineer_name",
	"Ticket No":             "ticket_no",
	"Call Entry Date Time":  "call_entry_datetime",
	"Start Call Date Time":  "start_call_datetime",
	"Call Solved Date Time": "call_solved_datetime",
	"Call Aging":            "call_aging",
	"Response Time":         "response_time",
	"Recovery Time":         "recovery_time",
	"Customer Complaint":    "customer_complaint",
	"Call Type":             "call_type",
	"Nature Of Complaint":   "nature_of_complaint",
	"Complaint Description": "complaint_description",
	"Call Status":           "call_status",
	"Status":                "status",
	"Visitor Remarks":       "visitor_remarks",
	"Forward Employee Name": "forward_employee_name",
	"Instrument Status":     "instrument_status",
}

const (
	datetimeLayout = "2006-01-02 15:04:05"
	dateLayout     = "2006-01-02"
)

// inputTimestampLayouts covers the timestamp shapes seen across export
// files. First match wins.
var inputTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
}

// buildRecord turns one raw row (column name -> cell text) into a record.
// Blank cells become nil, timestamps are normalized to the canonical sortable
// form, and malformed numerics become absent. ok is false when the row has no
// usable call_id.
func buildRecord(row map[string]string) (models.ServiceCallRecord, bool) {
	callID, ok := parseInt(row["call_id"])
	if !ok {
		return models.ServiceCallRecord{}, false
	}

	rec := models.ServiceCallRecord{CallID: callID}
	rec.CustomerName = cleanText(row["customer_name"])
	rec.Address = cleanText(row["address"])
	rec.State = cleanText(row["state"])
	rec.GeoLocLat = parseFloat(row["geo_loc_lat"])
	rec.GeoLocLon = parseFloat(row["geo_loc_lon"])
	rec.GeoLocPincode = cleanPincode(row["geo_loc_pincode"])
	rec.Model = cleanText(row["model"])
	rec.InstrumentSerialNo = cleanText(row["instrument_serial_no"])
	rec.WarrantyExpiryDate = cleanDate(row["warranty_expiry_date"])
	rec.Zone = cleanText(row["zone"])
	rec.Priority = cleanText(row["priority"])
	rec.VisitedEngineerName = cleanText(row["visited_engineer_name"])
	if ticket, ok := parseInt(row["ticket_no"]); ok {
		rec.TicketNo = &ticket
	}
	rec.CallEntryDatetime = cleanDatetime(row["call_entry_datetime"])
	rec.StartCallDatetime = cleanDatetime(row["start_call_datetime"])
	rec.CallSolvedDatetime = cleanDatetime(row["call_solved_datetime"])
	rec.CallAging = cleanText(row["call_aging"])
	rec.ResponseTime = cleanText(row["response_time"])
	rec.RecoveryTime = cleanText(row["recovery_time"])
	rec.CustomerComplaint = cleanText(row["customer_complaint"])
	rec.CallType = cleanText(row["call_type"])
	rec.NatureOfComplaint = cleanText(row["nature_of_complaint"])
	rec.ComplaintDescription = cleanText(row["complaint_description"])
	rec.CallStatus = cleanText(row["call_status"])
	rec.Status = cleanText(row["status"])
	rec.VisitorRemarks = cleanText(row["visitor_remarks"])
	rec.ForwardEmployeeName = cleanText(row["forward_employee_name"])
	rec.InstrumentStatus = cleanText(row["instrument_status"])
	return rec, true
}

// cleanText trims whitespace; blank values become absent.
func cleanText(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}

// cleanPincode strips decimal artifacts from numeric-looking pincodes
// ("110045.0" -> "110045") and otherwise keeps the trimmed text.
func cleanPincode(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		s := strconv.FormatInt(int64(f), 10)
		return &s
	}
	return &v
}

// cleanDatetime normalizes a timestamp cell to "2006-01-02 15:04:05";
// unparsable values become absent.
func cleanDatetime(value string) *string {
	at, ok := parseAny(value)
	if !ok {
		return nil
	}
	s := at.Format(datetimeLayout)
	return &s
}

// cleanDate normalizes a calendar-date cell to "2006-01-02".
func cleanDate(value string) *string {
	at, ok := parseAny(value)
	if !ok {
		return nil
	}
	s := at.Format(dateLayout)
	return &s
}

func parseAny(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range inputTimestampLayouts {
		if at, err := time.Parse(layout, v); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

// parseInt reads an integer cell, tolerating spreadsheet float artifacts
// like "1234.0".
func parseInt(value string) (int64, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}

func parseFloat(value string) *float64 {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
