package service

import (
	"context"
	"fmt"
	"sync"

	"service-call-analytics/pkg/apperrors"
	"service-call-analytics/pkg/metrics"
	"service-call-analytics/pkg/models"
	"service-call-analytics/pkg/query"
	"service-call-analytics/pkg/repository"
)

// CallService is the query surface exposed to the presentation layer.
type CallService struct {
	repo repository.CallRepository
}

func NewCallService(repo repository.CallRepository) *CallService {
	return &CallService{repo: repo}
}

// ListAll returns the most recent calls without any filter, newest first.
// limit must be positive; it is capped at the list-all ceiling.
func (s *CallService) ListAll(ctx context.Context, limit int) ([]models.ServiceCallRecord, error) {
	return s.repo.ListAll(ctx, limit)
}

func (s *CallService) GetByID(ctx context.Context, callID int64) (*models.ServiceCallRecord, error) {
	return s.repo.GetByID(ctx, callID)
}

// FilterCalls returns the calls satisfying every criterion in spec, newest
// first. Spec validation (limit bounds, date format) happens in the query
// builder before anything reaches the store.
func (s *CallService) FilterCalls(ctx context.Context, spec models.FilterSpec) ([]models.ServiceCallRecord, error) {
	return s.repo.Filter(ctx, spec)
}

// GetStats computes the store-wide KPI numbers and headline distributions.
func (s *CallService) GetStats(ctx context.Context) (*models.KPIStats, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute totals: %w", err)
	}

	stateDist, err := s.repo.Distribution(ctx, "state", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to compute state distribution: %w", err)
	}
	modelDist, err := s.repo.Distribution(ctx, "model", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to compute model distribution: %w", err)
	}
	engineerWorkload, err := s.repo.Distribution(ctx, "engineer", 25)
	if err != nil {
		return nil, fmt.Errorf("failed to compute engineer workload: %w", err)
	}

	return &models.KPIStats{
		TotalCalls:             totals.TotalCalls,
		ClosedCalls:            totals.ClosedCalls,
		PendingCalls:           totals.PendingCalls,
		AverageResolutionHours: totals.AverageResolutionHours,
		StateDistribution:      stateDist,
		ModelDistribution:      modelDist,
		EngineerWorkload:       engineerWorkload,
	}, nil
}

// GetLatestUpdate prefers the ingestion history; with no history it falls
// back to a summary derived from the record store, and with an empty store
// it reports NotFound.
func (s *CallService) GetLatestUpdate(ctx context.Context) (*models.LatestUpdate, error) {
	update, err := s.repo.LatestUpdateFromHistory(ctx)
	if err != nil {
		return nil, err
	}
	if update != nil {
		return update, nil
	}

	update, err = s.repo.LatestUpdateFallback(ctx)
	if err != nil {
		return nil, err
	}
	if update != nil {
		return update, nil
	}
	return nil, apperrors.NotFoundf("no update information available")
}

// Dashboard runs one filtered query and derives every widget of the
// dashboard from the same record set: KPI cards, per-day series,
// distributions, resolution histogram samples, and map points.
func (s *CallService) Dashboard(ctx context.Context, spec models.FilterSpec) (*models.DashboardData, error) {
	records, err := s.repo.Filter(ctx, spec)
	if err != nil {
		return nil, err
	}

	entryTime := func(r models.ServiceCallRecord) *string { return r.CallEntryDatetime }
	solvedTime := func(r models.ServiceCallRecord) *string { return r.CallSolvedDatetime }

	data := &models.DashboardData{
		KPIs:              ComputeKPIs(records),
		CallsLoggedPerDay: CallsPerDay(records, entryTime),
		CallsClosedPerDay: CallsPerDay(records, solvedTime),
		TopIssues: Distribution(records, func(r models.ServiceCallRecord) *string {
			return r.CustomerComplaint
		}, 10),
		StateDistribution: Distribution(records, func(r models.ServiceCallRecord) *string {
			return r.State
		}, 0),
		EngineerWorkload: Distribution(records, func(r models.ServiceCallRecord) *string {
			return r.VisitedEngineerName
		}, 15),
		ModelDistribution: Distribution(records, func(r models.ServiceCallRecord) *string {
			return r.Model
		}, 15),
		InstrumentDistribution: Distribution(records, func(r models.ServiceCallRecord) *string {
			return r.InstrumentStatus
		}, 0),
		CallTypeDistribution: Distribution(records, func(r models.ServiceCallRecord) *string {
			return r.CallType
		}, 0),
		ResolutionDays: ResolutionDays(records),
		MapPoints:      MapPoints(records),
	}
	return data, nil
}

// MetadataService caches the filter-control metadata. The cached snapshot is
// process-wide shared state: reads may serve a value computed before the most
// recent ingestion until Invalidate is called, typically by the ingest side
// after a batch lands.
type MetadataService struct {
	repo repository.CallRepository

	mu     sync.Mutex
	cached *models.FilterMetadata
}

func NewMetadataService(repo repository.CallRepository) *MetadataService {
	return &MetadataService{repo: repo}
}

// Get returns the cached metadata, computing it on first use or after an
// invalidation. Callers must treat the result as read-only.
func (m *MetadataService) Get(ctx context.Context) (*models.FilterMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil {
		return m.cached, nil
	}

	metadata, err := m.compute(ctx)
	if err != nil {
		return nil, err
	}
	m.cached = metadata
	return metadata, nil
}

// Invalidate drops the cached snapshot; the next Get recomputes it.
func (m *MetadataService) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
}

func (m *MetadataService) compute(ctx context.Context) (*models.FilterMetadata, error) {
	metrics.MetadataRecomputes.Inc()

	min, max, err := m.repo.EntryDateRange(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read date range: %w", err)
	}

	options := make(map[string][]string, len(query.FilterFields()))
	for _, field := range query.FilterFields() {
		values, err := m.repo.DistinctValues(ctx, field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s options: %w", field, err)
		}
		options[field] = values
	}

	return &models.FilterMetadata{
		DateMin:                 min,
		DateMax:                 max,
		StateOptions:            options["state"],
		ModelOptions:            options["model"],
		AssignedToOptions:       options["assigned_to"],
		EngineerOptions:         options["engineer"],
		IssueCategoryOptions:    options["issue_category"],
		InstrumentStatusOptions: options["instrument_status"],
		StatusOptions:           options["status"],
	}, nil
}
