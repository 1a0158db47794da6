package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"service-call-analytics/pkg/apperrors"
	"service-call-analytics/pkg/metrics"
	"service-call-analytics/pkg/models"
	"service-call-analytics/pkg/query"
	"service-call-analytics/pkg/service"
)

// Handler wires the query services to the REST surface.
type Handler struct {
	calls    *service.CallService
	metadata *service.MetadataService
}

func NewHandler(calls *service.CallService, metadata *service.MetadataService) *Handler {
	return &Handler{calls: calls, metadata: metadata}
}

// Register mounts all call routes on the router.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/calls/all", h.getAllCalls).Methods("GET")
	r.HandleFunc("/calls/by_id/{callId}", h.getCallByID).Methods("GET")
	r.HandleFunc("/calls/filter", h.filterCalls).Methods("GET")
	r.HandleFunc("/calls/stats", h.getStats).Methods("GET")
	r.HandleFunc("/calls/filter_metadata", h.getFilterMetadata).Methods("GET")
	r.HandleFunc("/calls/latest_update", h.getLatestUpdate).Methods("GET")
	r.HandleFunc("/calls/dashboard", h.getDashboard).Methods("GET")
}

func (h *Handler) getAllCalls(w http.ResponseWriter, r *http.Request) {
	records, err := h.calls.ListAll(r.Context(), query.AllCallsLimit)
	if err != nil {
		respondError(w, "calls_all", err)
		return
	}
	if records == nil {
		records = []models.ServiceCallRecord{}
	}
	respondJSON(w, "calls_all", records)
}

func (h *Handler) getCallByID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID, err := strconv.ParseInt(vars["callId"], 10, 64)
	if err != nil {
		respondError(w, "calls_by_id", apperrors.InvalidArgumentf("call id must be an integer, got %q", vars["callId"]))
		return
	}

	record, err := h.calls.GetByID(r.Context(), callID)
	if err != nil {
		respondError(w, "calls_by_id", err)
		return
	}
	respondJSON(w, "calls_by_id", record)
}

func (h *Handler) filterCalls(w http.ResponseWriter, r *http.Request) {
	spec, err := specFromQuery(r)
	if err != nil {
		respondError(w, "calls_filter", err)
		return
	}

	records, err := h.calls.FilterCalls(r.Context(), spec)
	if err != nil {
		respondError(w, "calls_filter", err)
		return
	}
	if records == nil {
		records = []models.ServiceCallRecord{}
	}
	respondJSON(w, "calls_filter", records)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.calls.GetStats(r.Context())
	if err != nil {
		respondError(w, "calls_stats", err)
		return
	}
	respondJSON(w, "calls_stats", stats)
}

func (h *Handler) getFilterMetadata(w http.ResponseWriter, r *http.Request) {
	metadata, err := h.metadata.Get(r.Context())
	if err != nil {
		respondError(w, "calls_filter_metadata", err)
		return
	}
	respondJSON(w, "calls_filter_metadata", metadata)
}

func (h *Handler) getLatestUpdate(w http.ResponseWriter, r *http.Request) {
	update, err := h.calls.GetLatestUpdate(r.Context())
	if err != nil {
		respondError(w, "calls_latest_update", err)
		return
	}
	respondJSON(w, "calls_latest_update", update)
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	spec, err := specFromQuery(r)
	if err != nil {
		respondError(w, "calls_dashboard", err)
		return
	}

	data, err := h.calls.Dashboard(r.Context(), spec)
	if err != nil {
		respondError(w, "calls_dashboard", err)
		return
	}
	respondJSON(w, "calls_dashboard", data)
}

// specFromQuery builds a FilterSpec from repeatable query parameters, e.g.
// /calls/filter?state=TX&state=CA&start_date=2024-01-01&limit=500. A missing
// limit takes the interactive default; explicit limits are validated by the
// query builder downstream.
func specFromQuery(r *http.Request) (models.FilterSpec, error) {
	params := r.URL.Query()
	spec := models.FilterSpec{
		State:            params["state"],
		Model:            params["model"],
		AssignedTo:       params["assigned_to"],
		Engineer:         params["engineer"],
		IssueCategory:    params["issue_category"],
		InstrumentStatus: params["instrument_status"],
		Status:           params["status"],
		StartDate:        params.Get("start_date"),
		EndDate:          params.Get("end_date"),
		Limit:            query.DefaultFilterLimit,
	}

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return models.FilterSpec{}, apperrors.InvalidArgumentf("limit must be an integer, got %q", raw)
		}
		spec.Limit = limit
	}
	return spec, nil
}

func respondJSON(w http.ResponseWriter, route string, payload interface{}) {
	metrics.RequestsTotal.WithLabelValues(route, "2xx").Inc()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("api: encode %s response: %v", route, err)
	}
}

func respondError(w http.ResponseWriter, route string, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsInvalidArgument(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsStoreUnavailable(err):
		status = http.StatusServiceUnavailable
	}

	class := "5xx"
	if status < 500 {
		class = "4xx"
	}
	metrics.RequestsTotal.WithLabelValues(route, class).Inc()

	if status >= 500 {
		log.Printf("api: %s failed: %v", route, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": err.Error()})
}
