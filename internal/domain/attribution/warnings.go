package attribution

import (
	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

// WarningKind classifies data-quality findings
type WarningKind string

const (
	WarningMissingIdentifier    WarningKind = "missing_identifier"
	WarningUnknownStation       WarningKind = "unknown_station"
	WarningMissingStartTime     WarningKind = "missing_start_time"
	WarningImplausibleDuration  WarningKind = "implausible_duration"
	WarningInconsistentDuration WarningKind = "inconsistent_duration"
	WarningNonForwardTransition WarningKind = "non_forward_transition"
)

// Excludes reports whether warnings of this kind remove the event from the working set
func (k WarningKind) Excludes() bool {
	return k != WarningNonForwardTransition
}

// Warning is a data-quality finding reported alongside results
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Code    string      `json:"code,omitempty"`
	ItemID  uuid.UUID   `json:"item_id"`
	EventID uuid.UUID   `json:"event_id"`
	Message string      `json:"message"`
}

func exclusionWarning(kind WarningKind, e production.ScanEvent, message string) Warning {
	return Warning{
		Kind:    kind,
		Code:    production.CodeValidationExcluded,
		ItemID:  e.ItemID,
		EventID: e.ID,
		Message: message,
	}
}

// CountByKind tallies warnings per kind
func CountByKind(warnings []Warning) map[WarningKind]int {
	counts := make(map[WarningKind]int)
	for _, w := range warnings {
		counts[w.Kind]++
	}
	return counts
}
