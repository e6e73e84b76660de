package interfaces

import (
	"context"

	"sentiment-trading-bot/internal/types"
)

// HistorySink receives a copy of every ledger and history append.
type HistorySink interface {
	AppendTrade(ctx context.Context, t types.Trade) error
	AppendSample(ctx context.Context, s types.HistorySample) error
}
