package zerodha

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"sentiment-trading-bot/internal/types"
)

type placed struct {
	variety string
	params  kiteconnect.OrderParams
}

type fakeKite struct {
	margins   kiteconnect.AllMargins
	ltp       kiteconnect.QuoteLTP
	positions kiteconnect.Positions
	profile   kiteconnect.UserProfile
	placeErr  error
	orders    []placed
}

func (f *fakeKite) GetUserMargins() (kiteconnect.AllMargins, error) { return f.margins, nil }

func (f *fakeKite) GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error) { return f.ltp, nil }

func (f *fakeKite) PlaceOrder(variety string, p kiteconnect.OrderParams) (kiteconnect.OrderResponse, error) {
	f.orders = append(f.orders, placed{variety: variety, params: p})
	if f.placeErr != nil {
		return kiteconnect.OrderResponse{}, f.placeErr
	}
	return kiteconnect.OrderResponse{OrderID: "230410000001"}, nil
}

func (f *fakeKite) GetPositions() (kiteconnect.Positions, error) { return f.positions, nil }

func (f *fakeKite) GetUserProfile() (kiteconnect.UserProfile, error) { return f.profile, nil }

func TestReads(t *testing.T) {
	f := &fakeKite{}
	f.margins.Equity.Net = 150000.5
	require.NoError(t, json.Unmarshal([]byte(`{"NSE:INFY":{"instrument_token":408065,"last_price":1432.65}}`), &f.ltp))
	f.profile.UserID = "AB1234"

	z := newWithClient(Params{}, f)
	ctx := context.Background()

	cash, err := z.Cash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150000.5, cash)

	px, err := z.LastPrice(ctx, "INFY")
	require.NoError(t, err)
	assert.Equal(t, 1432.65, px)

	_, err = z.LastPrice(ctx, "TCS")
	assert.Error(t, err)

	acct, err := z.Account(ctx)
	require.NoError(t, err)
	assert.Equal(t, "AB1234", acct.ID)
	assert.Equal(t, 150000.5, acct.Cash)
}

func TestSubmitBracketUsesPoints(t *testing.T) {
	f := &fakeKite{}
	z := newWithClient(Params{Exchange: "NSE", Product: "MIS", MinTick: 0.05}, f)

	resp, err := z.SubmitBracket(context.Background(), types.BracketOrder{
		Symbol: "INFY", Side: types.ActionBuy, Qty: 10, EntryPrice: 1432.63,
		Bounds: types.RiskBounds{TakeProfit: 1575.9, StopLoss: 1404.0}, Tag: "SENTIMENT",
	})
	require.NoError(t, err)
	assert.Equal(t, "230410000001", resp.OrderID)

	require.Len(t, f.orders, 1)
	o := f.orders[0]
	assert.Equal(t, "bo", o.variety)
	assert.Equal(t, "LIMIT", o.params.OrderType)
	assert.Equal(t, "BUY", o.params.TransactionType)
	assert.Equal(t, 1432.65, o.params.Price)
	assert.InDelta(t, 143.25, o.params.Squareoff, 1e-9)
	assert.InDelta(t, 28.65, o.params.Stoploss, 1e-9)
	assert.Equal(t, "SENTIMENT", o.params.Tag)
}

func TestSubmitBracketRejected(t *testing.T) {
	f := &fakeKite{placeErr: errors.New("Insufficient funds")}
	z := newWithClient(Params{}, f)
	_, err := z.SubmitBracket(context.Background(), types.BracketOrder{Symbol: "INFY", Side: types.ActionSell, Qty: 1, EntryPrice: 100})
	assert.ErrorContains(t, err, "Insufficient funds")
}

func TestSellAllSquaresOffNetPositions(t *testing.T) {
	f := &fakeKite{}
	f.positions.Net = []kiteconnect.Position{
		{Tradingsymbol: "INFY", Exchange: "NSE", Product: "MIS", Quantity: 10},
		{Tradingsymbol: "TCS", Exchange: "NSE", Product: "MIS", Quantity: -3},
		{Tradingsymbol: "SBIN", Exchange: "NSE", Product: "MIS", Quantity: 0},
	}
	z := newWithClient(Params{}, f)

	require.NoError(t, z.SellAll(context.Background()))
	require.Len(t, f.orders, 2)
	assert.Equal(t, "regular", f.orders[0].variety)
	assert.Equal(t, "SELL", f.orders[0].params.TransactionType)
	assert.Equal(t, 10, f.orders[0].params.Quantity)
	assert.Equal(t, "BUY", f.orders[1].params.TransactionType)
	assert.Equal(t, 3, f.orders[1].params.Quantity)
	assert.Equal(t, "MARKET", f.orders[1].params.OrderType)
}

func TestClockUsesNSEHours(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	z := newWithClient(Params{}, &fakeKite{})
	z.now = func() (time.Time, error) { return time.Date(2024, 4, 10, 10, 0, 0, 0, ist), nil }

	c, err := z.Clock(context.Background())
	require.NoError(t, err)
	assert.True(t, c.IsOpen)
	assert.Equal(t, time.Date(2024, 4, 10, 15, 30, 0, 0, ist), c.NextClose)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := NewZerodha(Params{APIKey: "k"})
	assert.Error(t, err)
}
