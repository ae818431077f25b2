package attribution

import (
	"fmt"
	"time"

	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/google/uuid"
)

// Credit is the attribution of one item to one (employee, station) pair.
// Repeated scans of the same item by the same pair merge into one credit.
type Credit struct {
	EmployeeID              uuid.UUID `json:"employee_id"`
	StationID               uuid.UUID `json:"station_id"`
	ItemID                  uuid.UUID `json:"item_id"`
	CreditedDurationSeconds int64     `json:"credited_duration_seconds"`
	ScanCount               int       `json:"scan_count"`
	LastScanAt              time.Time `json:"last_scan_at"`
}

type creditKey struct {
	employeeID uuid.UUID
	stationID  uuid.UUID
	itemID     uuid.UUID
}

// AttributionResult holds the credits of one computation
type AttributionResult struct {
	Credits               []Credit
	Warnings              []Warning
	Transitions           int
	NonForwardTransitions int
}

// CreditsFor returns the credits of one employee
func (r AttributionResult) CreditsFor(employeeID uuid.UUID) []Credit {
	out := make([]Credit, 0)
	for _, c := range r.Credits {
		if c.EmployeeID == employeeID {
			out = append(out, c)
		}
	}
	return out
}

// Attributor walks timelines and assigns item-count and time credit.
//
// Every non-Office event credits its own (employee, station) with the item.
// Time credit moves forward to the next scanner as decided by the policy.
// Office events never receive credit; their durations, summed over a run of
// consecutive Office scans, pass through to the next non-Office scanner
// without workflow gating.
type Attributor struct {
	catalog *production.StationCatalog
	policy  TimeCreditPolicy
}

// NewAttributor creates an attributor using the given time-credit policy
func NewAttributor(catalog *production.StationCatalog, policy TimeCreditPolicy) *Attributor {
	if policy == nil {
		policy = NewWorkflowGatedPolicy()
	}
	return &Attributor{catalog: catalog, policy: policy}
}

// Policy returns the policy in use
func (a *Attributor) Policy() TimeCreditPolicy {
	return a.policy
}

// Attribute computes credits for the given timelines
func (a *Attributor) Attribute(timelines []Timeline) AttributionResult {
	var result AttributionResult
	index := make(map[creditKey]int)

	credit := func(e production.ScanEvent, seconds int64, isScan bool) {
		key := creditKey{employeeID: e.EmployeeID, stationID: e.StationID, itemID: e.ItemID}
		pos, ok := index[key]
		if !ok {
			pos = len(result.Credits)
			index[key] = pos
			result.Credits = append(result.Credits, Credit{
				EmployeeID: e.EmployeeID,
				StationID:  e.StationID,
				ItemID:     e.ItemID,
			})
		}
		c := &result.Credits[pos]
		c.CreditedDurationSeconds += seconds
		if isScan {
			c.ScanCount++
			if at := lastActivity(e); at.After(c.LastScanAt) {
				c.LastScanAt = at
			}
		}
	}

	for _, tl := range timelines {
		// Office time accumulated since the last non-Office scan
		var carried int64
		for i, current := range tl.Events {
			currentStage := a.catalog.StageOf(current.StationID)
			if !currentStage.IsOffice() {
				credit(current, 0, true)
			}
			if i+1 >= len(tl.Events) {
				continue
			}

			next := tl.Events[i+1]
			nextStage := a.catalog.StageOf(next.StationID)
			if currentStage.IsOffice() {
				if current.HasDuration() {
					carried += current.Duration()
				}
				if !nextStage.IsOffice() && carried > 0 {
					credit(next, carried, false)
					carried = 0
				}
				continue
			}
			if nextStage.IsOffice() {
				continue
			}

			result.Transitions++
			decision := a.policy.Credit(CreditStep{
				Source:      current,
				SourceStage: currentStage,
				Target:      next,
				TargetStage: nextStage,
			})
			if decision.NonForward {
				result.NonForwardTransitions++
				result.Warnings = append(result.Warnings, Warning{
					Kind:    WarningNonForwardTransition,
					ItemID:  tl.ItemID,
					EventID: next.ID,
					Message: fmt.Sprintf("transition %s -> %s is not a forward workflow move, time not credited",
						currentStage, nextStage),
				})
				continue
			}
			if decision.Seconds > 0 {
				credit(next, decision.Seconds, false)
			}
		}
	}
	return result
}

func lastActivity(e production.ScanEvent) time.Time {
	if e.EndTime != nil {
		return *e.EndTime
	}
	return e.StartedAt()
}
