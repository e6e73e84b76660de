package paper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/piquette/finance-go/quote"

	"sentiment-trading-bot/internal/broker/session"
	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/types"
)

const (
	PriceStatic = "STATIC"
	PriceYahoo  = "YAHOO"
)

// Params configures the simulated account.
type Params struct {
	InitialCash float64
	PriceSource string
	StaticPrice float64
}

// Broker is an in-memory DRY_RUN broker. Entries fill at the last price and
// bracket legs are recorded but never triggered.
type Broker struct {
	mu        sync.Mutex
	p         Params
	cash      float64
	positions map[string]int
	orders    []types.BracketOrder
	seq       int
	quote     func(symbol string) (float64, error)
	now       func() time.Time
}

var _ interfaces.Broker = (*Broker)(nil)

func New(p Params) *Broker {
	b := &Broker{
		p:         p,
		cash:      p.InitialCash,
		positions: make(map[string]int),
		now:       time.Now,
	}
	if strings.EqualFold(p.PriceSource, PriceYahoo) {
		b.quote = yahooPrice
	} else {
		b.quote = func(string) (float64, error) { return p.StaticPrice, nil }
	}
	return b
}

func yahooPrice(symbol string) (float64, error) {
	q, err := quote.Get(symbol)
	if err != nil {
		return 0, fmt.Errorf("yahoo quote for %s: %w", symbol, err)
	}
	if q == nil {
		return 0, fmt.Errorf("no yahoo quote for %s", symbol)
	}
	return q.RegularMarketPrice, nil
}

func (b *Broker) Cash(ctx context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash, nil
}

func (b *Broker) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return b.quote(symbol)
}

func (b *Broker) Now(ctx context.Context) (time.Time, error) {
	return b.now(), nil
}

// SubmitBracket fills the entry immediately at the current price.
func (b *Broker) SubmitBracket(ctx context.Context, order types.BracketOrder) (types.OrderResp, error) {
	if order.Qty <= 0 {
		return types.OrderResp{}, fmt.Errorf("invalid quantity %d", order.Qty)
	}
	px, err := b.LastPrice(ctx, order.Symbol)
	if err != nil {
		return types.OrderResp{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	notional := px * float64(order.Qty)
	switch order.Side {
	case types.ActionBuy:
		b.cash -= notional
		b.positions[order.Symbol] += order.Qty
	case types.ActionSell:
		b.cash += notional
		b.positions[order.Symbol] -= order.Qty
	default:
		return types.OrderResp{}, fmt.Errorf("invalid side %q", order.Side)
	}
	b.seq++
	b.orders = append(b.orders, order)

	id := fmt.Sprintf("SIM-%d", b.seq)
	logger.Debug(ctx, "Paper bracket filled", "order_id", id, "symbol", order.Symbol, "side", order.Side,
		"qty", order.Qty, "price", px, "take_profit", order.Bounds.TakeProfit, "stop_loss", order.Bounds.StopLoss)
	return types.OrderResp{OrderID: id, Status: "SIMULATED", Message: "dry-run"}, nil
}

// SellAll closes every open position at the current price.
func (b *Broker) SellAll(ctx context.Context) error {
	b.mu.Lock()
	symbols := make([]string, 0, len(b.positions))
	for s, q := range b.positions {
		if q != 0 {
			symbols = append(symbols, s)
		}
	}
	b.mu.Unlock()

	var errs []error
	for _, s := range symbols {
		px, err := b.LastPrice(ctx, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		b.mu.Lock()
		b.cash += px * float64(b.positions[s])
		delete(b.positions, s)
		b.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Position returns the signed quantity held for symbol.
func (b *Broker) Position(symbol string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.positions[symbol]
}

// Orders returns the submitted brackets in order.
func (b *Broker) Orders() []types.BracketOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.BracketOrder(nil), b.orders...)
}

func (b *Broker) Account(ctx context.Context) (types.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return types.Account{ID: "PAPER", Status: "ACTIVE", Cash: b.cash}, nil
}

// Clock follows the US regular session, 09:30 to 16:00 New York time on weekdays.
func (b *Broker) Clock(ctx context.Context) (types.Clock, error) {
	loc, err := time.LoadLocation(session.NYSE.Location)
	if err != nil {
		return types.Clock{}, fmt.Errorf("load market timezone: %w", err)
	}
	return session.Clock(b.now().In(loc), session.NYSE), nil
}
