package attribution

import (
	"fmt"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared"
)

// SynthesizerConfig bounds the synthetic window
type SynthesizerConfig struct {
	// StalenessBound is how old a preceding end time may be and still anchor the window
	StalenessBound time.Duration
	// FallbackOffset places the window start before now when no anchor is usable
	FallbackOffset time.Duration
	// MaxWindow caps the synthetic duration
	MaxWindow time.Duration
}

// DefaultSynthesizerConfig returns the standard bounds
func DefaultSynthesizerConfig() SynthesizerConfig {
	return SynthesizerConfig{
		StalenessBound: 30 * 24 * time.Hour,
		FallbackOffset: 2 * time.Hour,
		MaxWindow:      time.Duration(production.MaxEventDurationSeconds) * time.Second,
	}
}

// SynthesisPlan is a synthetic event ready to be inserted
type SynthesisPlan struct {
	Event        production.ScanEvent
	WindowStart  time.Time
	WindowEnd    time.Time
	UsedFallback bool
	Clamped      bool
	Preceding    *production.ScanEvent
	Following    *production.ScanEvent
}

// Synthesizer plans manual backfill events for missing attributions
type Synthesizer struct {
	catalog *production.StationCatalog
	cfg     SynthesizerConfig
}

// NewSynthesizer creates a synthesizer. Zero config fields take defaults.
func NewSynthesizer(catalog *production.StationCatalog, cfg SynthesizerConfig) *Synthesizer {
	def := DefaultSynthesizerConfig()
	if cfg.StalenessBound <= 0 {
		cfg.StalenessBound = def.StalenessBound
	}
	if cfg.FallbackOffset <= 0 {
		cfg.FallbackOffset = def.FallbackOffset
	}
	if cfg.MaxWindow <= 0 || cfg.MaxWindow > def.MaxWindow {
		cfg.MaxWindow = def.MaxWindow
	}
	return &Synthesizer{catalog: catalog, cfg: cfg}
}

// Plan computes the synthetic event for an item missing the target station.
// events must hold every recorded event of the item. Events the normalizer
// rejects never anchor the window.
func (s *Synthesizer) Plan(
	item production.ProductionItem,
	events []production.ScanEvent,
	target production.Station,
	employee production.Employee,
	actorID string,
	now time.Time,
) (*SynthesisPlan, error) {
	if !target.Stage.InWorkflow() {
		return nil, fmt.Errorf("%w: station %q is not part of the workflow", production.ErrStationNotConfigured, target.Name)
	}
	for _, e := range events {
		if e.ItemID == item.ID && e.StationID == target.ID {
			return nil, fmt.Errorf("%w: item %s already has event %s at %s",
				production.ErrDuplicateAttribution, item.ID, e.ID, target.Name)
		}
	}

	if !employee.CanBeAttributed() {
		return nil, fmt.Errorf("%w: employee %s", production.ErrEmployeeInvalid, employee.ID)
	}

	now = now.UTC()
	plan := &SynthesisPlan{}
	// neighbours come from the validated set only; the duplicate guard above
	// still sees every recorded event
	valid := NewDefaultNormalizer(s.catalog).Normalize(events).Valid
	plan.Preceding = s.nearestPreceding(valid, target.Stage)
	plan.Following = s.nearestFollowing(valid, target.Stage)

	var start time.Time
	if anchor, ok := s.usableAnchor(plan.Preceding, now); ok {
		start = anchor
	} else {
		start = now.Add(-s.cfg.FallbackOffset)
		plan.UsedFallback = true
	}
	start = start.UTC().Truncate(time.Second)

	end := start.Add(time.Second)
	if plan.Following != nil && plan.Following.StartTime != nil {
		if fs := plan.Following.StartTime.UTC().Truncate(time.Second); fs.After(start) {
			end = fs
		}
	}

	if !end.After(start) {
		end = start.Add(time.Second)
		plan.Clamped = true
	}
	if end.Sub(start) > s.cfg.MaxWindow {
		end = start.Add(s.cfg.MaxWindow)
		plan.Clamped = true
	}

	duration := int64(end.Sub(start) / time.Second)
	if duration <= 0 || duration > production.MaxEventDurationSeconds {
		return nil, fmt.Errorf("%w: %ds between %s and %s", production.ErrSynthesisUnsafeWindow,
			duration, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	plan.WindowStart = start
	plan.WindowEnd = end
	plan.Event = production.NewCompletedScanEvent(item.ID, target.ID, employee.ID, start, end,
		production.ManualAttributionNote(actorID, now))
	plan.Event.CreatedAt = now
	return plan, nil
}

func (s *Synthesizer) usableAnchor(preceding *production.ScanEvent, now time.Time) (time.Time, bool) {
	if preceding == nil {
		return time.Time{}, false
	}
	end, ok := endOf(*preceding)
	if !ok || end.After(now) || now.Sub(end) > s.cfg.StalenessBound {
		return time.Time{}, false
	}
	return end, true
}

// nearestPreceding picks the event at the highest stage below the target,
// preferring the latest end on ties
func (s *Synthesizer) nearestPreceding(events []production.ScanEvent, target production.Stage) *production.ScanEvent {
	var best *production.ScanEvent
	bestStage := production.StageUnknown
	var bestEnd time.Time
	for i := range events {
		stage := s.catalog.StageOf(events[i].StationID)
		if !stage.InWorkflow() || stage.Index() >= target.Index() {
			continue
		}
		end, ok := endOf(events[i])
		if !ok {
			continue
		}
		if best == nil || stage.Index() > bestStage.Index() ||
			(stage == bestStage && end.After(bestEnd)) {
			best, bestStage, bestEnd = &events[i], stage, end
		}
	}
	return cloneEvent(best)
}

// nearestFollowing picks the event at the lowest stage above the target,
// preferring the earliest start on ties
func (s *Synthesizer) nearestFollowing(events []production.ScanEvent, target production.Stage) *production.ScanEvent {
	var best *production.ScanEvent
	bestStage := production.StageUnknown
	for i := range events {
		stage := s.catalog.StageOf(events[i].StationID)
		if !stage.InWorkflow() || stage.Index() <= target.Index() || events[i].StartTime == nil {
			continue
		}
		if best == nil || stage.Index() < bestStage.Index() ||
			(stage == bestStage && events[i].StartTime.Before(*best.StartTime)) {
			best, bestStage = &events[i], stage
		}
	}
	return cloneEvent(best)
}

func endOf(e production.ScanEvent) (time.Time, bool) {
	if e.EndTime != nil {
		return *e.EndTime, true
	}
	if e.StartTime != nil && e.DurationSeconds != nil && *e.DurationSeconds > 0 {
		return e.StartTime.Add(time.Duration(*e.DurationSeconds) * time.Second), true
	}
	return time.Time{}, false
}

func cloneEvent(e *production.ScanEvent) *production.ScanEvent {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// ValidateActor rejects an empty actor identifier
func ValidateActor(actorID string) error {
	if actorID == "" {
		return fmt.Errorf("%w: actor id is required", shared.ErrInvalidInput)
	}
	return nil
}
