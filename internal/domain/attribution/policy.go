package attribution

import (
	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/domain/shared/strategy"
)

// Names of the built-in time-credit policies
const (
	PolicyWorkflowGated        = "workflow_gated"
	PolicyUnconditionalForward = "unconditional_forward"
	PolicyScanGap              = "scan_gap"
)

// CreditStep is one adjacent pair of a timeline. Neither side is an Office event.
type CreditStep struct {
	Source      production.ScanEvent
	SourceStage production.Stage
	Target      production.ScanEvent
	TargetStage production.Stage
}

// CreditDecision is the time a policy credits to the target's (employee, station)
type CreditDecision struct {
	Seconds int64
	// NonForward marks a pair rejected because it is not a forward workflow move
	NonForward bool
}

// TimeCreditPolicy decides how much elapsed time moves from one scan to the next
type TimeCreditPolicy interface {
	strategy.Strategy
	Credit(step CreditStep) CreditDecision
}

// WorkflowGatedPolicy credits the source's own duration forward, but only across
// strictly forward workflow transitions.
type WorkflowGatedPolicy struct {
	strategy.BaseStrategy
}

// NewWorkflowGatedPolicy creates the default policy
func NewWorkflowGatedPolicy() *WorkflowGatedPolicy {
	return &WorkflowGatedPolicy{
		BaseStrategy: strategy.NewBaseStrategy(
			PolicyWorkflowGated,
			strategy.StrategyTypeTimeCredit,
			"Credits the upstream scan's own duration to the next scanner on strictly forward workflow moves",
		),
	}
}

// Credit implements TimeCreditPolicy
func (p *WorkflowGatedPolicy) Credit(step CreditStep) CreditDecision {
	if !production.IsForwardTransition(step.SourceStage, step.TargetStage) {
		return CreditDecision{NonForward: true}
	}
	if !step.Source.HasDuration() {
		return CreditDecision{}
	}
	return CreditDecision{Seconds: step.Source.Duration()}
}

// UnconditionalForwardPolicy credits the source's own duration forward
// regardless of workflow order.
type UnconditionalForwardPolicy struct {
	strategy.BaseStrategy
}

// NewUnconditionalForwardPolicy creates the ungated policy
func NewUnconditionalForwardPolicy() *UnconditionalForwardPolicy {
	return &UnconditionalForwardPolicy{
		BaseStrategy: strategy.NewBaseStrategy(
			PolicyUnconditionalForward,
			strategy.StrategyTypeTimeCredit,
			"Credits the upstream scan's own duration to the next scanner regardless of workflow order",
		),
	}
}

// Credit implements TimeCreditPolicy
func (p *UnconditionalForwardPolicy) Credit(step CreditStep) CreditDecision {
	if !step.Source.HasDuration() {
		return CreditDecision{}
	}
	return CreditDecision{Seconds: step.Source.Duration()}
}

// ScanGapPolicy credits the raw gap between consecutive scan starts on
// strictly forward workflow transitions.
type ScanGapPolicy struct {
	strategy.BaseStrategy
	maxGapSeconds int64
}

// NewScanGapPolicy creates the scan-gap policy. Gaps longer than one working
// day are capped.
func NewScanGapPolicy() *ScanGapPolicy {
	return &ScanGapPolicy{
		BaseStrategy: strategy.NewBaseStrategy(
			PolicyScanGap,
			strategy.StrategyTypeTimeCredit,
			"Credits the gap between consecutive scan starts to the next scanner on strictly forward workflow moves",
		),
		maxGapSeconds: production.MaxEventDurationSeconds,
	}
}

// Credit implements TimeCreditPolicy
func (p *ScanGapPolicy) Credit(step CreditStep) CreditDecision {
	if !production.IsForwardTransition(step.SourceStage, step.TargetStage) {
		return CreditDecision{NonForward: true}
	}
	if step.Source.StartTime == nil || step.Target.StartTime == nil {
		return CreditDecision{}
	}
	gap := int64(step.Target.StartTime.Sub(*step.Source.StartTime).Seconds())
	if gap <= 0 {
		return CreditDecision{}
	}
	if gap > p.maxGapSeconds {
		gap = p.maxGapSeconds
	}
	return CreditDecision{Seconds: gap}
}

// BuiltinPolicies returns one instance of every built-in policy
func BuiltinPolicies() []TimeCreditPolicy {
	return []TimeCreditPolicy{
		NewWorkflowGatedPolicy(),
		NewUnconditionalForwardPolicy(),
		NewScanGapPolicy(),
	}
}
