package types

import (
	"fmt"
	"strings"
	"time"
)

// Action is the side of a recorded trade.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// ParseAction accepts buy/sell in any case.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionBuy:
		return ActionBuy, nil
	case ActionSell:
		return ActionSell, nil
	}
	return "", fmt.Errorf("invalid trade action %q: must be 'buy' or 'sell'", s)
}

// SentimentLabel is the dominant classification of the aggregated headlines.
type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNegative SentimentLabel = "negative"
	LabelNeutral  SentimentLabel = "neutral"
)

type SentimentSignal struct {
	Probability float64        `json:"probability"`
	Label       SentimentLabel `json:"label"`
}

// NeutralSignal is returned when there is nothing to score.
func NeutralSignal() SentimentSignal {
	return SentimentSignal{Probability: 0, Label: LabelNeutral}
}

// RiskBounds holds the exit legs of a bracket order.
type RiskBounds struct {
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
}

// Trade is an immutable ledger entry. Only Action, Price and Timestamp take part
// in performance analysis and CSV export.
type Trade struct {
	Action    Action    `json:"action"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol,omitempty"`
	Qty       int       `json:"qty,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
}

type HistorySample struct {
	Cash      float64   `json:"cash"`
	Timestamp time.Time `json:"timestamp"`
}

type Headline struct {
	Headline  string    `json:"headline"`
	Source    string    `json:"source,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BracketOrder is an entry order with take-profit and stop-loss legs, good until filled.
type BracketOrder struct {
	Symbol     string
	Side       Action
	Qty        int
	EntryPrice float64
	Bounds     RiskBounds
	Tag        string
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Account struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Cash   float64 `json:"cash"`
}

type Clock struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open,omitempty"`
	NextClose time.Time `json:"next_close,omitempty"`
}

// StepResult summarizes one iteration of the decision loop.
type StepResult struct {
	Symbol      string          `json:"symbol"`
	Time        time.Time       `json:"time"`
	Cash        float64         `json:"cash"`
	Price       float64         `json:"price"`
	Qty         int             `json:"qty"`
	Signal      SentimentSignal `json:"signal"`
	StateBefore string          `json:"state_before"`
	StateAfter  string          `json:"state_after"`
	Liquidated  bool            `json:"liquidated"`
	Trade       *Trade          `json:"trade,omitempty"`
	Reason      string          `json:"reason"`
}
