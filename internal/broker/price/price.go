// Package price does exchange tick arithmetic in decimal so bracket legs are
// sent at prices the venue accepts.
package price

import (
	"github.com/shopspring/decimal"

	"sentiment-trading-bot/internal/types"
)

// RoundToTick rounds x to the nearest multiple of tick. A non-positive tick
// leaves x unchanged.
func RoundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	t := decimal.NewFromFloat(tick)
	v, _ := decimal.NewFromFloat(x).Div(t).Round(0).Mul(t).Float64()
	return v
}

// RoundBounds rounds both legs of b to tick.
func RoundBounds(b types.RiskBounds, tick float64) types.RiskBounds {
	return types.RiskBounds{
		TakeProfit: RoundToTick(b.TakeProfit, tick),
		StopLoss:   RoundToTick(b.StopLoss, tick),
	}
}

// Points is the absolute distance between two prices rounded to tick, the form
// in which some venues take bracket legs.
func Points(from, to, tick float64) float64 {
	d := decimal.NewFromFloat(to).Sub(decimal.NewFromFloat(from)).Abs()
	if tick > 0 {
		t := decimal.NewFromFloat(tick)
		d = d.Div(t).Round(0).Mul(t)
	}
	v, _ := d.Float64()
	return v
}

// Format renders x with as many decimals as tick carries (two when tick is unset).
func Format(x, tick float64) string {
	places := int32(2)
	if tick > 0 {
		if exp := decimal.NewFromFloat(tick).Exponent(); exp < 0 {
			places = -exp
		} else {
			places = 0
		}
	}
	return decimal.NewFromFloat(RoundToTick(x, tick)).StringFixed(places)
}
