package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-trading-bot/internal/types"
)

func newTestServer(t *testing.T, orders *[]orderReq) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/account", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"acc-1","status":"ACTIVE","cash":"25000.55"}`)
	})
	mux.HandleFunc("/v2/clock", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"timestamp":"2024-04-10T10:00:00-04:00","is_open":true,"next_open":"2024-04-11T09:30:00-04:00","next_close":"2024-04-10T16:00:00-04:00"}`)
	})
	mux.HandleFunc("/v2/stocks/SPY/trades/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbol":"SPY","trade":{"p":512.34,"t":"2024-04-10T14:00:00Z"}}`)
	})
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		var req orderReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		*orders = append(*orders, req)
		if req.Qty == "0" {
			http.Error(w, `{"message":"qty must be > 0"}`, http.StatusUnprocessableEntity)
			return
		}
		fmt.Fprintf(w, `{"id":"ord-1","client_order_id":%q,"status":"accepted"}`, req.ClientOrderID)
	})
	mux.HandleFunc("/v2/positions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Query().Get("cancel_orders") != "true" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusMultiStatus)
		fmt.Fprint(w, `[]`)
	})
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("APCA-API-KEY-ID") != "key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		mux.ServeHTTP(w, r)
	}))
}

func TestBrokerReads(t *testing.T) {
	var orders []orderReq
	srv := newTestServer(t, &orders)
	defer srv.Close()

	b := New(Params{BaseURL: srv.URL, DataURL: srv.URL, KeyID: "key", Secret: "s", Timeout: 5 * time.Second})
	ctx := context.Background()

	cash, err := b.Cash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25000.55, cash)

	px, err := b.LastPrice(ctx, "SPY")
	require.NoError(t, err)
	assert.Equal(t, 512.34, px)

	clock, err := b.Clock(ctx)
	require.NoError(t, err)
	assert.True(t, clock.IsOpen)

	now, err := b.Now(ctx)
	require.NoError(t, err)
	assert.True(t, now.Equal(time.Date(2024, 4, 10, 14, 0, 0, 0, time.UTC)))

	acct, err := b.Account(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", acct.Status)
}

func TestSubmitBracket(t *testing.T) {
	var orders []orderReq
	srv := newTestServer(t, &orders)
	defer srv.Close()
	b := New(Params{BaseURL: srv.URL, DataURL: srv.URL, KeyID: "key"})

	resp, err := b.SubmitBracket(context.Background(), types.BracketOrder{
		Symbol: "SPY", Side: types.ActionBuy, Qty: 48, EntryPrice: 512.34,
		Bounds: types.RiskBounds{TakeProfit: 563.57, StopLoss: 502.09}, Tag: "SENTIMENT",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", resp.OrderID)

	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, "48", o.Qty)
	assert.Equal(t, "buy", o.Side)
	assert.Equal(t, "bracket", o.OrderClass)
	assert.Equal(t, "gtc", o.TimeInForce)
	assert.Equal(t, "563.57", o.TakeProfit.LimitPrice)
	assert.Equal(t, "502.09", o.StopLoss.StopPrice)
	assert.True(t, strings.HasPrefix(o.ClientOrderID, "SENTIMENT-"))

	_, err = b.SubmitBracket(context.Background(), types.BracketOrder{Symbol: "SPY", Side: types.ActionSell, Qty: 0})
	assert.Error(t, err)
}

func TestSellAllAcceptsMultiStatus(t *testing.T) {
	var orders []orderReq
	srv := newTestServer(t, &orders)
	defer srv.Close()

	assert.NoError(t, New(Params{BaseURL: srv.URL, KeyID: "key"}).SellAll(context.Background()))
	assert.Error(t, New(Params{BaseURL: srv.URL, KeyID: "wrong"}).SellAll(context.Background()))
}
