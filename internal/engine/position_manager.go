package engine

import (
	"time"

	"sentiment-trading-bot/internal/types"
)

// Position is the decision state derived from the last emitted trade.
type Position int

const (
	NoPosition Position = iota
	Long
	Short
)

func (p Position) String() string {
	switch p {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "no_position"
	}
}

// opposes reports whether entering on side a requires closing p first.
func (p Position) opposes(a types.Action) bool {
	return (p == Long && a == types.ActionSell) || (p == Short && a == types.ActionBuy)
}

func (p Position) gauge() float64 {
	switch p {
	case Long:
		return 1
	case Short:
		return -1
	}
	return 0
}

// StrategyState is owned by one Strategy. LastTrade is empty until the first
// order is emitted and only changes after a successful emission.
type StrategyState struct {
	Symbol        string        `json:"symbol"`
	CashAtRisk    float64       `json:"cash_at_risk"`
	LastTrade     types.Action  `json:"last_trade,omitempty"`
	SleepInterval time.Duration `json:"sleep_interval"`
}

func (s StrategyState) Position() Position {
	switch s.LastTrade {
	case types.ActionBuy:
		return Long
	case types.ActionSell:
		return Short
	}
	return NoPosition
}

// LastTradeName is "none" before the first trade.
func (s StrategyState) LastTradeName() string {
	if s.LastTrade == "" {
		return "none"
	}
	return string(s.LastTrade)
}
