// Package strategy keeps the named time-credit policies the engine can
// select per request.
package strategy

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/domain/shared/strategy"
)

// StrategyRegistry is safe for concurrent use. Policies are keyed by name;
// each strategy type may have one default.
type StrategyRegistry struct {
	mu       sync.RWMutex
	policies map[string]attribution.TimeCreditPolicy
	defaults map[strategy.StrategyType]string
}

func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		policies: make(map[string]attribution.TimeCreditPolicy),
		defaults: make(map[strategy.StrategyType]string),
	}
}

func (r *StrategyRegistry) RegisterTimeCreditPolicy(p attribution.TimeCreditPolicy) error {
	if p == nil {
		return fmt.Errorf("%w: nil time-credit policy", shared.ErrInvalidInput)
	}
	if p.Type() != strategy.StrategyTypeTimeCredit {
		return fmt.Errorf("%w: %q is a %s strategy", shared.ErrInvalidInput, p.Name(), p.Type())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.policies[p.Name()]; dup {
		return fmt.Errorf("%w: time-credit policy %q", shared.ErrAlreadyExists, p.Name())
	}
	r.policies[p.Name()] = p
	return nil
}

// GetTimeCreditPolicy resolves name, or the default when name is empty.
func (r *StrategyRegistry) GetTimeCreditPolicy(name string) (attribution.TimeCreditPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		if name = r.defaults[strategy.StrategyTypeTimeCredit]; name == "" {
			return nil, fmt.Errorf("%w: no default time-credit policy", shared.ErrNotFound)
		}
	}
	p, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: time-credit policy %q", shared.ErrNotFound, name)
	}
	return p, nil
}

// ListTimeCreditPolicies returns the registered names in sorted order.
func (r *StrategyRegistry) ListTimeCreditPolicies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.policies))
}

// SetDefault fails with ErrNotFound unless name is registered under kind.
func (r *StrategyRegistry) SetDefault(kind strategy.StrategyType, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.policies[name]; !ok || p.Type() != kind {
		return fmt.Errorf("%w: %s strategy %q", shared.ErrNotFound, kind, name)
	}
	r.defaults[kind] = name
	return nil
}

func (r *StrategyRegistry) GetDefault(kind strategy.StrategyType) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults[kind]
}
