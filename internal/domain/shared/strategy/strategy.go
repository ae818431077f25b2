// Package strategy holds the contract shared by pluggable policies that the
// registry selects by name.
package strategy

// StrategyType groups interchangeable strategies. The registry keeps one
// default per type.
type StrategyType string

// StrategyTypeTimeCredit covers policies deciding which scanner is credited
// with elapsed time.
const StrategyTypeTimeCredit StrategyType = "time_credit"

func (t StrategyType) String() string { return string(t) }

type Strategy interface {
	Name() string
	Type() StrategyType
	Description() string
}

// BaseStrategy is embedded by concrete strategies to satisfy the identity
// half of Strategy.
type BaseStrategy struct {
	name, description string
	kind              StrategyType
}

func NewBaseStrategy(name string, kind StrategyType, description string) BaseStrategy {
	return BaseStrategy{name: name, kind: kind, description: description}
}

func (s BaseStrategy) Name() string        { return s.name }
func (s BaseStrategy) Type() StrategyType  { return s.kind }
func (s BaseStrategy) Description() string { return s.description }
