package brokerobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trading-bot/internal/broker/paper"
	"sentiment-trading-bot/internal/types"
)

func TestWrapDelegates(t *testing.T) {
	inner := paper.New(paper.Params{InitialCash: 5000, StaticPrice: 50})
	b := Wrap(inner)
	ctx := context.Background()

	px, err := b.LastPrice(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, 50.0, px)

	resp, err := b.SubmitBracket(ctx, types.BracketOrder{Symbol: "SPY", Side: types.ActionBuy, Qty: 10})
	require.NoError(t, err)
	assert.Equal(t, "SIM-1", resp.OrderID)
	assert.Equal(t, 10, inner.Position("SPY"))

	require.NoError(t, b.SellAll(ctx))
	assert.Equal(t, 0, inner.Position("SPY"))

	cash, err := b.Cash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, cash)
}
