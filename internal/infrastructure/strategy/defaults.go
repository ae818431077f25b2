package strategy

import (
	"github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/shared/strategy"
)

// NewRegistryWithDefaults creates a registry holding the built-in time-credit
// policies with workflow_gated as the default.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	return NewRegistryWithDefaultPolicy(attribution.PolicyWorkflowGated)
}

// NewRegistryWithDefaultPolicy registers the built-in policies and makes the
// named one the default. An empty name keeps workflow_gated.
func NewRegistryWithDefaultPolicy(defaultPolicy string) (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	for _, p := range attribution.BuiltinPolicies() {
		if err := r.RegisterTimeCreditPolicy(p); err != nil {
			return nil, err
		}
	}

	if defaultPolicy == "" {
		defaultPolicy = attribution.PolicyWorkflowGated
	}
	if err := r.SetDefault(strategy.StrategyTypeTimeCredit, defaultPolicy); err != nil {
		return nil, err
	}

	return r, nil
}
