package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/types"
)

const (
	DefaultBaseURL = "https://paper-api.alpaca.markets"
	DefaultDataURL = "https://data.alpaca.markets"
)

type Params struct {
	BaseURL string
	DataURL string
	KeyID   string
	Secret  string
	Timeout time.Duration
}

// Broker talks to the Alpaca trading and market data REST APIs.
type Broker struct {
	trading *resty.Client
	data    *resty.Client
}

var _ interfaces.Broker = (*Broker)(nil)

func New(p Params) *Broker {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.DataURL == "" {
		p.DataURL = DefaultDataURL
	}
	return &Broker{
		trading: newClient(p.BaseURL, p),
		data:    newClient(p.DataURL, p),
	}
}

func newClient(baseURL string, p Params) *resty.Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	if p.Timeout > 0 {
		client.SetTimeout(p.Timeout)
	}
	client.SetHeader("APCA-API-KEY-ID", p.KeyID)
	client.SetHeader("APCA-API-SECRET-KEY", p.Secret)
	client.SetHeader("Accept", "application/json")
	return client
}

type accountResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Cash   string `json:"cash"`
}

type clockResp struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

type latestTradeResp struct {
	Symbol string `json:"symbol"`
	Trade  struct {
		Price     float64   `json:"p"`
		Timestamp time.Time `json:"t"`
	} `json:"trade"`
}

type orderLeg struct {
	LimitPrice string `json:"limit_price,omitempty"`
	StopPrice  string `json:"stop_price,omitempty"`
}

type orderReq struct {
	Symbol        string   `json:"symbol"`
	Qty           string   `json:"qty"`
	Side          string   `json:"side"`
	Type          string   `json:"type"`
	TimeInForce   string   `json:"time_in_force"`
	OrderClass    string   `json:"order_class"`
	TakeProfit    orderLeg `json:"take_profit"`
	StopLoss      orderLeg `json:"stop_loss"`
	ClientOrderID string   `json:"client_order_id"`
}

type orderResp struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Status        string `json:"status"`
}

// get decodes a 200 response into out.
func get(ctx context.Context, c *resty.Client, path string, out any) error {
	resp, err := c.R().SetContext(ctx).Get(path)
	if err != nil {
		return fmt.Errorf("alpaca GET %s: %w", path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("alpaca API error %d on %s: %s", resp.StatusCode(), path, resp.String())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return nil
}

func (b *Broker) Account(ctx context.Context) (types.Account, error) {
	var a accountResp
	if err := get(ctx, b.trading, "/v2/account", &a); err != nil {
		return types.Account{}, err
	}
	cash, err := decimal.NewFromString(a.Cash)
	if err != nil {
		return types.Account{}, fmt.Errorf("invalid account cash %q: %w", a.Cash, err)
	}
	return types.Account{ID: a.ID, Status: a.Status, Cash: cash.InexactFloat64()}, nil
}

func (b *Broker) Cash(ctx context.Context) (float64, error) {
	a, err := b.Account(ctx)
	if err != nil {
		return 0, err
	}
	return a.Cash, nil
}

func (b *Broker) LastPrice(ctx context.Context, symbol string) (float64, error) {
	var t latestTradeResp
	if err := get(ctx, b.data, "/v2/stocks/"+url.PathEscape(symbol)+"/trades/latest", &t); err != nil {
		return 0, err
	}
	return t.Trade.Price, nil
}

func (b *Broker) Clock(ctx context.Context) (types.Clock, error) {
	var c clockResp
	if err := get(ctx, b.trading, "/v2/clock", &c); err != nil {
		return types.Clock{}, err
	}
	return types.Clock{Timestamp: c.Timestamp, IsOpen: c.IsOpen, NextOpen: c.NextOpen, NextClose: c.NextClose}, nil
}

// Now is the broker's clock timestamp.
func (b *Broker) Now(ctx context.Context) (time.Time, error) {
	c, err := b.Clock(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return c.Timestamp, nil
}

// SubmitBracket places a market entry with take-profit and stop-loss legs, good
// until cancelled.
func (b *Broker) SubmitBracket(ctx context.Context, order types.BracketOrder) (types.OrderResp, error) {
	req := orderReq{
		Symbol:        order.Symbol,
		Qty:           strconv.Itoa(order.Qty),
		Side:          string(order.Side),
		Type:          "market",
		TimeInForce:   "gtc",
		OrderClass:    "bracket",
		TakeProfit:    orderLeg{LimitPrice: decimal.NewFromFloat(order.Bounds.TakeProfit).String()},
		StopLoss:      orderLeg{StopPrice: decimal.NewFromFloat(order.Bounds.StopLoss).String()},
		ClientOrderID: order.Tag + "-" + uuid.NewString(),
	}

	resp, err := b.trading.R().SetContext(ctx).SetBody(req).Post("/v2/orders")
	if err != nil {
		return types.OrderResp{}, fmt.Errorf("alpaca submit order: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return types.OrderResp{}, fmt.Errorf("alpaca order rejected %d: %s", resp.StatusCode(), resp.String())
	}

	var o orderResp
	if err := json.Unmarshal(resp.Body(), &o); err != nil {
		return types.OrderResp{}, fmt.Errorf("failed to parse order response: %w", err)
	}
	logger.Debug(ctx, "Alpaca bracket accepted", "order_id", o.ID, "client_order_id", o.ClientOrderID, "status", o.Status)
	return types.OrderResp{OrderID: o.ID, Status: o.Status}, nil
}

// SellAll liquidates every position and cancels open orders.
func (b *Broker) SellAll(ctx context.Context) error {
	resp, err := b.trading.R().SetContext(ctx).SetQueryParam("cancel_orders", "true").Delete("/v2/positions")
	if err != nil {
		return fmt.Errorf("alpaca close positions: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusMultiStatus {
		return fmt.Errorf("alpaca close positions failed %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
