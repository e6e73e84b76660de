package zerodha

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"sentiment-trading-bot/internal/broker/price"
	"sentiment-trading-bot/internal/broker/session"
	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/types"
)

const (
	varietyBracket = "bo"
	varietyRegular = "regular"
	orderTypeLimit = "LIMIT"
	orderTypeMkt   = "MARKET"
	validityDay    = "DAY"
)

// kiteAPI is the subset of the Kite Connect client the broker uses.
type kiteAPI interface {
	GetUserMargins() (kiteconnect.AllMargins, error)
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	GetPositions() (kiteconnect.Positions, error)
	GetUserProfile() (kiteconnect.UserProfile, error)
}

var _ kiteAPI = (*kiteconnect.Client)(nil)

type Params struct {
	APIKey      string
	AccessToken string
	Exchange    string
	Product     string
	MinTick     float64
}

// Zerodha places bracket orders on NSE/BSE through Kite Connect.
type Zerodha struct {
	p   Params
	kc  kiteAPI
	now func() (time.Time, error)
}

var _ interfaces.Broker = (*Zerodha)(nil)

func NewZerodha(p Params) (*Zerodha, error) {
	if p.APIKey == "" || p.AccessToken == "" {
		return nil, errors.New("missing API key/access token")
	}
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return newWithClient(p, kc), nil
}

func newWithClient(p Params, kc kiteAPI) *Zerodha {
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	if p.Product == "" {
		p.Product = "MIS"
	}
	if p.MinTick <= 0 {
		p.MinTick = 0.05
	}
	return &Zerodha{p: p, kc: kc, now: session.NSE.Now}
}

func (z *Zerodha) instrument(symbol string) string {
	return z.p.Exchange + ":" + symbol
}

// Cash is the net equity margin available for trading.
func (z *Zerodha) Cash(ctx context.Context) (float64, error) {
	m, err := z.kc.GetUserMargins()
	if err != nil {
		return 0, fmt.Errorf("failed to fetch margins: %w", err)
	}
	return m.Equity.Net, nil
}

func (z *Zerodha) LastPrice(ctx context.Context, symbol string) (float64, error) {
	inst := z.instrument(symbol)
	q, err := z.kc.GetLTP(inst)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch LTP for %s: %w", inst, err)
	}
	ltp, ok := q[inst]
	if !ok {
		return 0, fmt.Errorf("no LTP returned for %s", inst)
	}
	logger.Debug(ctx, "Fetched LTP", "symbol", symbol, "price", ltp.LastPrice)
	return ltp.LastPrice, nil
}

func (z *Zerodha) Now(ctx context.Context) (time.Time, error) {
	return z.now()
}

// SubmitBracket places a limit entry at the order's entry price with its
// exit legs expressed as points from the entry.
func (z *Zerodha) SubmitBracket(ctx context.Context, order types.BracketOrder) (types.OrderResp, error) {
	entry := price.RoundToTick(order.EntryPrice, z.p.MinTick)
	params := kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   order.Symbol,
		Validity:        validityDay,
		Product:         z.p.Product,
		OrderType:       orderTypeLimit,
		TransactionType: transactionType(order.Side),
		Quantity:        order.Qty,
		Price:           entry,
		Squareoff:       price.Points(entry, order.Bounds.TakeProfit, z.p.MinTick),
		Stoploss:        price.Points(entry, order.Bounds.StopLoss, z.p.MinTick),
		Tag:             order.Tag,
	}

	resp, err := z.kc.PlaceOrder(varietyBracket, params)
	if err != nil {
		logger.ErrorWithErr(ctx, "Kite bracket order rejected", err, "symbol", order.Symbol, "side", order.Side, "qty", order.Qty)
		return types.OrderResp{}, fmt.Errorf("kite bracket order: %w", err)
	}
	logger.Info(ctx, "Live order placed", "symbol", order.Symbol, "side", order.Side, "qty", order.Qty,
		"order_id", resp.OrderID, "squareoff", params.Squareoff, "stoploss", params.Stoploss)
	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED", Message: "ok"}, nil
}

// SellAll squares off every open net position with a market order.
func (z *Zerodha) SellAll(ctx context.Context) error {
	pos, err := z.kc.GetPositions()
	if err != nil {
		return fmt.Errorf("failed to fetch positions: %w", err)
	}

	var errs []error
	for _, p := range pos.Net {
		if p.Quantity == 0 {
			continue
		}
		side := types.ActionSell
		if p.Quantity < 0 {
			side = types.ActionBuy
		}
		qty := int(math.Abs(float64(p.Quantity)))
		_, err := z.kc.PlaceOrder(varietyRegular, kiteconnect.OrderParams{
			Exchange:        p.Exchange,
			Tradingsymbol:   p.Tradingsymbol,
			Validity:        validityDay,
			Product:         p.Product,
			OrderType:       orderTypeMkt,
			TransactionType: transactionType(side),
			Quantity:        qty,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("square off %s: %w", p.Tradingsymbol, err))
			continue
		}
		logger.Info(ctx, "Position squared off", "symbol", p.Tradingsymbol, "side", side, "qty", qty)
	}
	return errors.Join(errs...)
}

func (z *Zerodha) Account(ctx context.Context) (types.Account, error) {
	profile, err := z.kc.GetUserProfile()
	if err != nil {
		return types.Account{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	cash, err := z.Cash(ctx)
	if err != nil {
		return types.Account{}, err
	}
	return types.Account{ID: profile.UserID, Status: "ACTIVE", Cash: cash}, nil
}

// Clock follows NSE regular hours, 09:15 to 15:30 IST on weekdays.
func (z *Zerodha) Clock(ctx context.Context) (types.Clock, error) {
	now, err := z.now()
	if err != nil {
		return types.Clock{}, err
	}
	return session.Clock(now, session.NSE), nil
}

func transactionType(a types.Action) string {
	if a == types.ActionSell {
		return "SELL"
	}
	return "BUY"
}
