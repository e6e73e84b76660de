package engine

import (
	"math"

	"sentiment-trading-bot/internal/types"
)

// Default bracket parameters of the decision loop.
const (
	DefaultRiskTolerance = 0.02
	DefaultProfitMargin  = 0.10
	DefaultCapLimit      = 0.30
)

// Bounds computes the bracket exit legs around lastPrice. Both legs stay inside
// lastPrice*(1 -/+ capLimit):
//
//	take_profit = min(p*(1+profitMargin), p*(1+capLimit))
//	stop_loss   = max(p*(1-riskTolerance), p*(1-capLimit))
func Bounds(lastPrice, riskTolerance, profitMargin, capLimit float64) types.RiskBounds {
	maxPrice := lastPrice * (1 + capLimit)
	minPrice := lastPrice * (1 - capLimit)
	return types.RiskBounds{
		TakeProfit: math.Min(lastPrice*(1+profitMargin), maxPrice),
		StopLoss:   math.Max(lastPrice*(1-riskTolerance), minPrice),
	}
}
