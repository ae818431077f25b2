package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/domain/shared/strategy"
	"github.com/erp/shopfloor/internal/infrastructure/logger"
	"github.com/erp/shopfloor/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const serviceName = "attribution"

// ReportCache stores serialized reports by key
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// PolicyProvider resolves time-credit policies by name
type PolicyProvider interface {
	GetTimeCreditPolicy(name string) (domain.TimeCreditPolicy, error)
	ListTimeCreditPolicies() []string
	GetDefault(strategyType strategy.StrategyType) string
}

// Config holds the engine settings of the service
type Config struct {
	// TargetStation names the station checked by the detector when none is given
	TargetStation string
	// OfficeWindowPadding widens the fetch window for Office events
	OfficeWindowPadding time.Duration
	// QueryTimeout bounds every event store round trip
	QueryTimeout time.Duration
	Synthesizer  domain.SynthesizerConfig
}

// DefaultConfig returns the standard engine settings
func DefaultConfig() Config {
	return Config{
		TargetStation:       production.StageSewing.String(),
		OfficeWindowPadding: 72 * time.Hour,
		QueryTimeout:        30 * time.Second,
		Synthesizer:         domain.DefaultSynthesizerConfig(),
	}
}

// Service exposes the station attribution operations
type Service struct {
	events    production.ScanEventRepository
	items     production.ProductionItemRepository
	employees production.EmployeeRepository
	stations  production.StationRepository
	policies  PolicyProvider
	cfg       Config

	cache     ReportCache
	publisher shared.EventPublisher
	metrics   *telemetry.AttributionMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// ServiceOption configures optional collaborators
type ServiceOption func(*Service)

// WithReportCache enables report caching
func WithReportCache(cache ReportCache) ServiceOption {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithEventPublisher publishes audit events after backfills
func WithEventPublisher(publisher shared.EventPublisher) ServiceOption {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithMetrics records operation metrics
func WithMetrics(metrics *telemetry.AttributionMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new attribution Service
func NewService(
	events production.ScanEventRepository,
	items production.ProductionItemRepository,
	employees production.EmployeeRepository,
	stations production.StationRepository,
	policies PolicyProvider,
	cfg Config,
	opts ...ServiceOption,
) *Service {
	def := DefaultConfig()
	if cfg.TargetStation == "" {
		cfg.TargetStation = def.TargetStation
	}
	if cfg.OfficeWindowPadding <= 0 {
		cfg.OfficeWindowPadding = def.OfficeWindowPadding
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}

	s := &Service{
		events:    events,
		items:     items,
		employees: employees,
		stations:  stations,
		policies:  policies,
		cfg:       cfg,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPolicies returns the registered time-credit policies
func (s *Service) ListPolicies() []PolicyInfo {
	return DescribePolicies(s.policies)
}

// DescribePolicies lists the policies known to a provider, flagging the
// default. Names that no longer resolve are skipped.
func DescribePolicies(policies PolicyProvider) []PolicyInfo {
	def := policies.GetDefault(strategy.StrategyTypeTimeCredit)
	names := policies.ListTimeCreditPolicies()
	out := make([]PolicyInfo, 0, len(names))
	for _, name := range names {
		p, err := policies.GetTimeCreditPolicy(name)
		if err != nil {
			continue
		}
		out = append(out, PolicyInfo{Name: p.Name(), Description: p.Description(), Default: name == def})
	}
	return out
}

// ComputeProductivity builds the per employee and station productivity report.
// An empty valid event set yields a report with status no_data, not an error.
func (s *Service) ComputeProductivity(ctx context.Context, q ReportQuery) (*ProductivityReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "compute_productivity")
	defer span.End()
	started := s.now()

	policy, err := s.resolvePolicy(q.Policy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPolicy, policy.Name(), "bypass_cache", q.BypassCache)

	key := q.Filter.Hash("policy=" + policy.Name())
	if !q.BypassCache {
		if cached, ok := s.cachedReport(ctx, key); ok {
			s.metrics.RecordReport(ctx, policy.Name(), string(cached.Status), true, s.now().Sub(started))
			return cached, nil
		}
	}

	run, err := s.compute(ctx, q.Filter, policy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &ProductivityReport{
		Status:         ReportStatusOK,
		Policy:         policy.Name(),
		DateFrom:       q.Filter.DateFrom,
		DateTo:         q.Filter.DateTo,
		Rows:           []domain.EmployeeStationMetric{},
		Warnings:       run.warnings(),
		ExcludedEvents: len(run.norm.Excluded),
		Quality:        domain.QualityScore(run.norm, run.attr),
		GeneratedAt:    s.now().UTC(),
	}
	if run.norm.Empty() {
		report.Status = ReportStatusNoData
		report.Message = production.ErrNoDataAvailable.Message
	} else {
		credits := domain.FilterCredits(run.attr.Credits, q.Filter.StationID, q.Filter.EmployeeID)
		report.Rows, report.Summary = domain.Aggregate(credits, run.employees, run.catalog)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrEventCount, report.Quality.ValidEvents)

	s.storeReport(ctx, key, report)
	s.metrics.RecordReport(ctx, policy.Name(), string(report.Status), false, s.now().Sub(started))
	s.metrics.RecordWarnings(ctx, warningCounts(report.Quality.WarningsByKind))
	s.metrics.RecordQuality(ctx, policy.Name(), report.Quality.Score)

	logger.WithLogger(ctx, s.logger).Info("productivity report computed",
		zap.String("policy", policy.Name()),
		zap.String("status", string(report.Status)),
		zap.Int("rows", len(report.Rows)),
		zap.Int("valid_events", report.Quality.ValidEvents),
		zap.Int("excluded_events", report.ExcludedEvents),
		zap.String("grade", report.Quality.Grade),
	)
	if report.ExcludedEvents > 0 {
		logger.WithLogger(ctx, s.logger).Warn("events excluded from report",
			zap.Int("excluded_events", report.ExcludedEvents),
			zap.Any("warnings_by_kind", report.Quality.WarningsByKind),
		)
	}
	return report, nil
}

// ComputeItemsForEmployee lists the items credited to one employee, most recent first
func (s *Service) ComputeItemsForEmployee(ctx context.Context, employeeID uuid.UUID, q ReportQuery) ([]EmployeeItem, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "compute_items_for_employee",
		telemetry.WithAttribute(telemetry.SpanAttrEmployeeID, employeeID.String()))
	defer span.End()

	if employeeID == uuid.Nil {
		return nil, fmt.Errorf("%w: employee id is required", shared.ErrInvalidInput)
	}
	if _, err := s.employees.FindByID(ctx, employeeID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	policy, err := s.resolvePolicy(q.Policy)
	if err != nil {
		return nil, err
	}
	run, err := s.compute(ctx, q.Filter, policy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	credits := domain.FilterCredits(run.attr.CreditsFor(employeeID), q.Filter.StationID, nil)
	if len(credits) == 0 {
		return []EmployeeItem{}, nil
	}

	itemIDs := make([]uuid.UUID, 0, len(credits))
	for _, c := range credits {
		itemIDs = append(itemIDs, c.ItemID)
	}
	items, err := s.items.FindByIDs(ctx, uniqueIDs(itemIDs))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	byID := make(map[uuid.UUID]production.ProductionItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	out := make([]EmployeeItem, 0, len(credits))
	for _, c := range credits {
		row := EmployeeItem{
			ItemID:                  c.ItemID,
			StationID:               c.StationID,
			Stage:                   run.catalog.StageOf(c.StationID),
			CreditedDurationSeconds: c.CreditedDurationSeconds,
			ScanCount:               c.ScanCount,
			LastScanAt:              c.LastScanAt,
		}
		if st, ok := run.catalog.Lookup(c.StationID); ok {
			row.StationName = st.Name
		}
		if it, ok := byID[c.ItemID]; ok {
			row.OrderNumber = it.OrderNumber
			row.CustomerName = it.CustomerName
			row.Description = it.Description
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastScanAt.After(out[j].LastScanAt)
	})
	return out, nil
}

// DetectMissingAttribution lists produced items past the target station that
// carry no event at it. A nil station ID selects the configured default.
func (s *Service) DetectMissingAttribution(ctx context.Context, targetStationID uuid.UUID, filter production.ItemFilter) ([]domain.MissingAttributionItem, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "detect_missing_attribution")
	defer span.End()

	target, missing, candidates, err := s.detect(ctx, targetStationID, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "target_station", target.Name, "missing", len(missing))

	s.metrics.RecordDetection(ctx, target.Name, len(missing))
	logger.WithLogger(ctx, s.logger).Info("missing attribution detected",
		zap.String("target_station", target.Name),
		zap.Int("candidates", candidates),
		zap.Int("missing", len(missing)),
	)
	return missing, nil
}

// CountMissingAttribution counts the items missing at the default target
// station. It feeds the periodic backlog gauge.
func (s *Service) CountMissingAttribution(ctx context.Context) (string, int, error) {
	target, missing, _, err := s.detect(ctx, uuid.Nil, production.ItemFilter{})
	if err != nil {
		return "", 0, err
	}
	return target.Name, len(missing), nil
}

// StationForStage returns the station that runs a workflow stage
func (s *Service) StationForStage(ctx context.Context, stage production.Stage) (production.Station, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return production.Station{}, err
	}
	st, ok := catalog.ForStage(stage)
	if !ok {
		return production.Station{}, fmt.Errorf("%w: no station for stage %s", shared.ErrNotFound, stage)
	}
	return st, nil
}

func (s *Service) detect(ctx context.Context, targetStationID uuid.UUID, filter production.ItemFilter) (production.Station, []domain.MissingAttributionItem, int, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return production.Station{}, nil, 0, err
	}
	target, err := s.resolveTarget(catalog, targetStationID)
	if err != nil {
		return production.Station{}, nil, 0, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	candidates, err := s.items.FindCandidateItems(qctx, target.ID, production.StatusesBeyond(target.Stage), filter)
	if err != nil {
		return target, nil, 0, s.queryError(qctx, err)
	}
	if len(candidates) == 0 {
		return target, []domain.MissingAttributionItem{}, 0, nil
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	events, err := s.events.FetchEventsForItems(qctx, ids)
	if err != nil {
		return target, nil, len(candidates), s.queryError(qctx, err)
	}
	byItem := make(map[uuid.UUID][]production.ScanEvent, len(candidates))
	employeeIDs := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		byItem[e.ItemID] = append(byItem[e.ItemID], e)
		employeeIDs = append(employeeIDs, e.EmployeeID)
	}
	employees, err := s.employeeDirectory(ctx, employeeIDs)
	if err != nil {
		return target, nil, len(candidates), err
	}

	missing := domain.NewDetector(catalog).Detect(target, candidates, byItem, employees)
	return target, missing, len(candidates), nil
}

// BackfillAttribution synthesizes and stores a scan event for an item that
// skipped the target station. Calling it twice for the same item and station
// stores one event and rejects the second call with ErrDuplicateAttribution.
func (s *Service) BackfillAttribution(ctx context.Context, cmd BackfillCommand) (*production.ScanEvent, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "backfill_attribution",
		telemetry.WithAttribute(telemetry.SpanAttrItemID, cmd.ItemID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrActorID, cmd.ActorID))
	defer span.End()

	res, err := s.backfill(ctx, cmd)
	s.metrics.RecordBackfill(ctx, res.target.Name, backfillOutcome(err))
	if err != nil {
		telemetry.RecordError(span, err)
		logger.WithLogger(ctx, s.logger).Error("backfill rejected",
			zap.String("item_id", cmd.ItemID.String()),
			zap.String("actor_id", cmd.ActorID),
			zap.Error(err),
		)
		return nil, err
	}

	event, plan := res.event, res.plan
	telemetry.AddEvent(span, "scan_event_stored",
		telemetry.SpanAttrStationID, event.StationID.String(),
		"used_fallback", plan.UsedFallback)
	s.invalidateReports(ctx)
	if s.publisher != nil {
		audit := production.NewAttributionBackfilledEvent(*event, cmd.ActorID, plan.UsedFallback)
		if perr := s.publisher.Publish(ctx, audit); perr != nil {
			logger.WithLogger(ctx, s.logger).Warn("failed to publish backfill audit event",
				zap.String("scan_event_id", event.ID.String()),
				zap.Error(perr),
			)
		}
	}

	log := logger.WithLogger(ctx, s.logger)
	if plan.UsedFallback {
		log.Warn("backfill window fell back to recent time",
			zap.String("item_id", event.ItemID.String()),
			zap.Time("window_start", plan.WindowStart),
		)
	}
	log.Info("attribution backfilled",
		zap.String("scan_event_id", event.ID.String()),
		zap.String("item_id", event.ItemID.String()),
		zap.String("station", res.target.Name),
		zap.String("employee_id", event.EmployeeID.String()),
		zap.String("actor_id", cmd.ActorID),
		zap.Int64("duration_seconds", event.Duration()),
	)
	return event, nil
}

// backfillResult carries what is known about a backfill, even when it failed
type backfillResult struct {
	target production.Station
	plan   *domain.SynthesisPlan
	event  *production.ScanEvent
}

func (s *Service) backfill(ctx context.Context, cmd BackfillCommand) (backfillResult, error) {
	var res backfillResult
	if err := domain.ValidateActor(cmd.ActorID); err != nil {
		return res, err
	}
	if cmd.ItemID == uuid.Nil {
		return res, fmt.Errorf("%w: item id is required", shared.ErrInvalidInput)
	}

	catalog, err := s.catalog(ctx)
	if err != nil {
		return res, err
	}
	res.target, err = s.resolveTarget(catalog, cmd.TargetStationID)
	if err != nil {
		return res, err
	}

	item, err := s.items.FindByID(ctx, cmd.ItemID)
	if err != nil {
		return res, err
	}
	if !item.IsProduced {
		return res, fmt.Errorf("%w: item %s is not a produced item", shared.ErrInvalidInput, item.ID)
	}

	employee, err := s.employees.FindByID(ctx, cmd.EmployeeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return res, fmt.Errorf("%w: employee %s not found", production.ErrEmployeeInvalid, cmd.EmployeeID)
		}
		return res, err
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()
	events, err := s.events.FetchEventsForItems(qctx, []uuid.UUID{item.ID})
	if err != nil {
		return res, s.queryError(qctx, err)
	}

	res.plan, err = domain.NewSynthesizer(catalog, s.cfg.Synthesizer).
		Plan(*item, events, res.target, *employee, cmd.ActorID, s.now())
	if err != nil {
		return res, err
	}

	event := res.plan.Event
	if err := s.events.InsertIfAbsent(ctx, &event); err != nil {
		return res, err
	}
	res.event = &event
	return res, nil
}

// computation is the intermediate state of one report run
type computation struct {
	catalog   *production.StationCatalog
	norm      domain.NormalizationResult
	attr      domain.AttributionResult
	employees map[uuid.UUID]production.Employee
}

func (r *computation) warnings() []domain.Warning {
	out := make([]domain.Warning, 0, len(r.norm.Warnings)+len(r.attr.Warnings))
	out = append(out, r.norm.Warnings...)
	return append(out, r.attr.Warnings...)
}

func (s *Service) compute(ctx context.Context, filter production.EventFilter, policy domain.TimeCreditPolicy) (*computation, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := s.fetchWorkingSet(ctx, catalog, filter)
	if err != nil {
		return nil, err
	}

	r := &computation{catalog: catalog}
	r.norm = domain.NewDefaultNormalizer(catalog).Normalize(raw)
	if r.norm.Empty() {
		return r, nil
	}
	r.attr = domain.NewAttributor(catalog, policy).Attribute(domain.BuildTimelines(r.norm.Valid))

	ids := make([]uuid.UUID, 0, len(r.attr.Credits))
	for _, c := range r.attr.Credits {
		ids = append(ids, c.EmployeeID)
	}
	r.employees, err = s.employeeDirectory(ctx, ids)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// fetchWorkingSet loads the events of the date range plus Office events of a
// widened range. Station and employee filters apply to output rows only so
// upstream events needed for forward time credit are never lost.
func (s *Service) fetchWorkingSet(ctx context.Context, catalog *production.StationCatalog, filter production.EventFilter) ([]production.ScanEvent, error) {
	qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	events, err := s.events.FetchEvents(qctx, filter.DateRangeOnly())
	if err != nil {
		return nil, s.queryError(qctx, err)
	}
	if filter.DateFrom == nil && filter.DateTo == nil {
		return events, nil
	}

	for _, officeID := range catalog.OfficeStationIDs() {
		widened := filter.Widen(s.cfg.OfficeWindowPadding)
		id := officeID
		widened.StationID = &id
		office, err := s.events.FetchEvents(qctx, widened)
		if err != nil {
			return nil, s.queryError(qctx, err)
		}
		events = append(events, office...)
	}
	return events, nil
}

func (s *Service) catalog(ctx context.Context) (*production.StationCatalog, error) {
	stations, err := s.stations.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: no stations configured", production.ErrStationNotConfigured)
	}
	return production.NewStationCatalog(stations), nil
}

func (s *Service) resolveTarget(catalog *production.StationCatalog, stationID uuid.UUID) (production.Station, error) {
	if stationID == uuid.Nil {
		stage := production.ParseStage(s.cfg.TargetStation)
		st, ok := catalog.ForStage(stage)
		if !ok {
			return production.Station{}, fmt.Errorf("%w: default target station %q", production.ErrStationNotConfigured, s.cfg.TargetStation)
		}
		return st, nil
	}
	st, ok := catalog.Lookup(stationID)
	if !ok {
		return production.Station{}, fmt.Errorf("%w: station %s", production.ErrStationNotConfigured, stationID)
	}
	if !st.Stage.InWorkflow() {
		return production.Station{}, fmt.Errorf("%w: station %q is outside the production workflow", shared.ErrInvalidInput, st.Name)
	}
	return st, nil
}

func (s *Service) resolvePolicy(name string) (domain.TimeCreditPolicy, error) {
	if name == "" {
		name = s.policies.GetDefault(strategy.StrategyTypeTimeCredit)
	}
	p, err := s.policies.GetTimeCreditPolicy(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time-credit policy %q", shared.ErrInvalidInput, name)
	}
	return p, nil
}

func (s *Service) employeeDirectory(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]production.Employee, error) {
	ids = uniqueIDs(ids)
	out := make(map[uuid.UUID]production.Employee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	employees, err := s.employees.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, e := range employees {
		out[e.ID] = e
	}
	return out, nil
}

// queryError maps an exhausted time budget to ErrQueryTimeout
func (s *Service) queryError(qctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no answer within %s", production.ErrQueryTimeout, s.cfg.QueryTimeout)
	}
	return err
}

func (s *Service) cachedReport(ctx context.Context, key string) (*ProductivityReport, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("report cache read failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var report ProductivityReport
	if err := json.Unmarshal(data, &report); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("discarding undecodable cached report", zap.Error(err))
		return nil, false
	}
	report.CacheHit = true
	return &report, true
}

func (s *Service) storeReport(ctx context.Context, key string, report *ProductivityReport) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		logger.WithLogger(ctx, s.logger).Warn("report not cacheable", zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("report cache write failed", zap.Error(err))
	}
}

func (s *Service) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("report cache invalidation failed", zap.Error(err))
	}
}

var _ telemetry.MissingAttributionCounter = (*Service)(nil)

func backfillOutcome(err error) string {
	if err == nil {
		return "created"
	}
	if code, ok := shared.CodeOf(err); ok {
		return code
	}
	return "error"
}

func warningCounts(byKind map[domain.WarningKind]int) map[string]int {
	out := make(map[string]int, len(byKind))
	for k, v := range byKind {
		out[string(k)] = v
	}
	return out
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
