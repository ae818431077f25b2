package attribution

import (
	"fmt"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

// durationTolerance absorbs sub-second truncation between stored timestamps and durations
const durationTolerance int64 = 1

// RuleResult is the outcome of a single validation rule.
// A passing rule may return a corrected event for the next rule in the chain.
type RuleResult struct {
	Passed bool
	Event  production.ScanEvent
	Kind   WarningKind
	Reason string
}

// ValidationRule checks one property of a raw scan event
type ValidationRule interface {
	Name() string
	Check(event production.ScanEvent) RuleResult
}

// Exclusion is an event removed from the working set, with the reason
type Exclusion struct {
	Event  production.ScanEvent `json:"event"`
	Kind   WarningKind          `json:"kind"`
	Reason string               `json:"reason"`
}

// NormalizationResult is the validated working set for one computation
type NormalizationResult struct {
	Valid    []production.ScanEvent
	Excluded []Exclusion
	Warnings []Warning
}

// Empty reports whether no event survived validation
func (r NormalizationResult) Empty() bool {
	return len(r.Valid) == 0
}

// OpenCount returns the number of valid events still in progress
func (r NormalizationResult) OpenCount() int {
	n := 0
	for _, e := range r.Valid {
		if e.IsOpen() {
			n++
		}
	}
	return n
}

// Normalizer runs raw events through a chain of validation rules.
// The first failing rule excludes the event and records a warning.
type Normalizer struct {
	rules []ValidationRule
}

// NewNormalizer creates a normalizer with explicit rules
func NewNormalizer(rules ...ValidationRule) *Normalizer {
	return &Normalizer{rules: rules}
}

// NewDefaultNormalizer creates the standard rule chain against a station catalog
func NewDefaultNormalizer(catalog *production.StationCatalog) *Normalizer {
	return NewNormalizer(
		identifierRule{},
		knownStationRule{catalog: catalog},
		startTimeRule{},
		orderingRule{},
		derivationRule{},
		plausibleDurationRule{max: production.MaxEventDurationSeconds},
		consistencyRule{},
	)
}

// Normalize validates events. Duplicate event IDs are dropped silently so
// overlapping fetch windows never double count.
func (n *Normalizer) Normalize(events []production.ScanEvent) NormalizationResult {
	result := NormalizationResult{
		Valid: make([]production.ScanEvent, 0, len(events)),
	}
	seen := make(map[uuid.UUID]struct{}, len(events))

	for _, raw := range events {
		if raw.ID != uuid.Nil {
			if _, dup := seen[raw.ID]; dup {
				continue
			}
			seen[raw.ID] = struct{}{}
		}

		current := raw
		passed := true
		var failed RuleResult
		for _, rule := range n.rules {
			res := rule.Check(current)
			if !res.Passed {
				passed = false
				failed = res
				break
			}
			current = res.Event
		}

		if passed {
			result.Valid = append(result.Valid, current)
			continue
		}
		result.Excluded = append(result.Excluded, Exclusion{Event: raw, Kind: failed.Kind, Reason: failed.Reason})
		result.Warnings = append(result.Warnings, exclusionWarning(failed.Kind, raw, failed.Reason))
	}
	return result
}

func pass(e production.ScanEvent) RuleResult {
	return RuleResult{Passed: true, Event: e}
}

func fail(e production.ScanEvent, kind WarningKind, format string, args ...any) RuleResult {
	return RuleResult{Event: e, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

type identifierRule struct{}

func (identifierRule) Name() string { return "identifiers" }

func (identifierRule) Check(e production.ScanEvent) RuleResult {
	switch {
	case e.ItemID == uuid.Nil:
		return fail(e, WarningMissingIdentifier, "event %s has no item id", e.ID)
	case e.EmployeeID == uuid.Nil:
		return fail(e, WarningMissingIdentifier, "event %s has no employee id", e.ID)
	case e.StationID == uuid.Nil:
		return fail(e, WarningMissingIdentifier, "event %s has no station id", e.ID)
	}
	return pass(e)
}

type knownStationRule struct {
	catalog *production.StationCatalog
}

func (knownStationRule) Name() string { return "known_station" }

func (r knownStationRule) Check(e production.ScanEvent) RuleResult {
	if r.catalog == nil {
		return pass(e)
	}
	if _, ok := r.catalog.Lookup(e.StationID); !ok {
		return fail(e, WarningUnknownStation, "event %s references unconfigured station %s", e.ID, e.StationID)
	}
	return pass(e)
}

type startTimeRule struct{}

func (startTimeRule) Name() string { return "start_time" }

func (startTimeRule) Check(e production.ScanEvent) RuleResult {
	if e.StartTime == nil || e.StartTime.IsZero() {
		return fail(e, WarningMissingStartTime, "event %s has no start time", e.ID)
	}
	return pass(e)
}

type orderingRule struct{}

func (orderingRule) Name() string { return "ordering" }

func (orderingRule) Check(e production.ScanEvent) RuleResult {
	if e.EndTime != nil && e.EndTime.Before(*e.StartTime) {
		return fail(e, WarningInconsistentDuration, "event %s ends before it starts", e.ID)
	}
	return pass(e)
}

// derivationRule fills in whichever of end time and duration is missing
// when the other one is present.
type derivationRule struct{}

func (derivationRule) Name() string { return "derivation" }

func (derivationRule) Check(e production.ScanEvent) RuleResult {
	switch {
	case e.EndTime != nil && e.DurationSeconds == nil:
		d := int64(e.EndTime.Sub(*e.StartTime) / time.Second)
		e.DurationSeconds = &d
	case e.EndTime == nil && e.DurationSeconds != nil && *e.DurationSeconds > 0:
		end := e.StartTime.Add(time.Duration(*e.DurationSeconds) * time.Second)
		e.EndTime = &end
	}
	return pass(e)
}

type plausibleDurationRule struct {
	max int64
}

func (plausibleDurationRule) Name() string { return "plausible_duration" }

func (r plausibleDurationRule) Check(e production.ScanEvent) RuleResult {
	if e.DurationSeconds == nil {
		return pass(e)
	}
	d := *e.DurationSeconds
	if d <= 0 || d > r.max {
		return fail(e, WarningImplausibleDuration, "event %s has implausible duration %ds", e.ID, d)
	}
	return pass(e)
}

type consistencyRule struct{}

func (consistencyRule) Name() string { return "consistency" }

func (consistencyRule) Check(e production.ScanEvent) RuleResult {
	if e.EndTime == nil || e.DurationSeconds == nil {
		return pass(e)
	}
	span := int64(e.EndTime.Sub(*e.StartTime) / time.Second)
	diff := span - *e.DurationSeconds
	if diff < 0 {
		diff = -diff
	}
	if diff > durationTolerance {
		return fail(e, WarningInconsistentDuration, "event %s duration %ds does not match its %ds window", e.ID, *e.DurationSeconds, span)
	}
	return pass(e)
}
