package strategy

import (
	"sync"
	"testing"

	"github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/shared"
	"github.com/erp/shopfloor/internal/domain/shared/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedPolicy credits a constant number of seconds on every step
type fixedPolicy struct {
	strategy.BaseStrategy
	seconds int64
}

func newFixedPolicy(name string, seconds int64) *fixedPolicy {
	return &fixedPolicy{
		BaseStrategy: strategy.NewBaseStrategy(name, strategy.StrategyTypeTimeCredit, "Fixed credit"),
		seconds:      seconds,
	}
}

func (p *fixedPolicy) Credit(attribution.CreditStep) attribution.CreditDecision {
	return attribution.CreditDecision{Seconds: p.seconds}
}

type wrongTypePolicy struct {
	fixedPolicy
}

func (wrongTypePolicy) Type() strategy.StrategyType { return "pricing" }

func TestRegisterTimeCreditPolicy(t *testing.T) {
	r := NewStrategyRegistry()

	require.NoError(t, r.RegisterTimeCreditPolicy(newFixedPolicy("fixed", 10)))

	err := r.RegisterTimeCreditPolicy(newFixedPolicy("fixed", 20))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	err = r.RegisterTimeCreditPolicy(nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = r.RegisterTimeCreditPolicy(&wrongTypePolicy{*newFixedPolicy("odd", 1)})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetTimeCreditPolicy(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterTimeCreditPolicy(newFixedPolicy("a", 1)))
	require.NoError(t, r.RegisterTimeCreditPolicy(newFixedPolicy("b", 2)))

	t.Run("by name", func(t *testing.T) {
		p, err := r.GetTimeCreditPolicy("b")
		require.NoError(t, err)
		assert.Equal(t, "b", p.Name())
	})

	t.Run("empty name without default", func(t *testing.T) {
		_, err := r.GetTimeCreditPolicy("")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.GetTimeCreditPolicy("missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty name with default", func(t *testing.T) {
		require.NoError(t, r.SetDefault(strategy.StrategyTypeTimeCredit, "a"))
		p, err := r.GetTimeCreditPolicy("")
		require.NoError(t, err)
		assert.Equal(t, "a", p.Name())
	})
}

func TestSetDefault(t *testing.T) {
	r := NewStrategyRegistry()
	require.NoError(t, r.RegisterTimeCreditPolicy(newFixedPolicy("a", 1)))

	assert.ErrorIs(t, r.SetDefault(strategy.StrategyTypeTimeCredit, "missing"), shared.ErrNotFound)
	assert.ErrorIs(t, r.SetDefault("pricing", "a"), shared.ErrNotFound)
	assert.Empty(t, r.GetDefault(strategy.StrategyTypeTimeCredit))

	require.NoError(t, r.SetDefault(strategy.StrategyTypeTimeCredit, "a"))
	assert.Equal(t, "a", r.GetDefault(strategy.StrategyTypeTimeCredit))
}

func TestNewRegistryWithDefaults(t *testing.T) {
	r, err := NewRegistryWithDefaults()
	require.NoError(t, err)

	assert.Equal(t, []string{
		attribution.PolicyScanGap,
		attribution.PolicyUnconditionalForward,
		attribution.PolicyWorkflowGated,
	}, r.ListTimeCreditPolicies())
	assert.Equal(t, attribution.PolicyWorkflowGated, r.GetDefault(strategy.StrategyTypeTimeCredit))
}

func TestNewRegistryWithDefaultPolicy(t *testing.T) {
	r, err := NewRegistryWithDefaultPolicy(attribution.PolicyScanGap)
	require.NoError(t, err)
	assert.Equal(t, attribution.PolicyScanGap, r.GetDefault(strategy.StrategyTypeTimeCredit))

	_, err = NewRegistryWithDefaultPolicy("minutes_weighted")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r, err := NewRegistryWithDefaults()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.GetTimeCreditPolicy("")
			_ = r.ListTimeCreditPolicies()
		}()
		go func(i int) {
			defer wg.Done()
			_ = r.RegisterTimeCreditPolicy(newFixedPolicy("fixed", int64(i)))
		}(i)
	}
	wg.Wait()

	assert.Contains(t, r.ListTimeCreditPolicies(), "fixed")
}
