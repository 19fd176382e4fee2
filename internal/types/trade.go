package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason records why a position was closed. At most one reason applies
// per bar; the engine resolves simultaneous conditions by fixed priority
// (time limit, stop loss, take profit, signal reversal).
type ExitReason string

const (
	ExitReasonTimeLimit      ExitReason = "time_limit"
	ExitReasonStopLoss       ExitReason = "stop_loss"
	ExitReasonTakeProfit     ExitReason = "take_profit"
	ExitReasonSignalReversal ExitReason = "signal_reversal"
)

// TradeRecord is an append-only log entry produced when a position closes.
// Records are never mutated after creation.
type TradeRecord struct {
	ID           string       `csv:"id" yaml:"id" json:"id"`
	Symbol       string       `csv:"symbol" yaml:"symbol" json:"symbol"`
	StrategyName string       `csv:"strategy_name" yaml:"strategy_name" json:"strategy_name"`
	Side         PositionSide `csv:"side" yaml:"side" json:"side"`
	EntryTime    time.Time    `csv:"entry_time" yaml:"entry_time" json:"entry_time"`
	EntryPrice   float64      `csv:"entry_price" yaml:"entry_price" json:"entry_price"`
	ExitTime     time.Time    `csv:"exit_time" yaml:"exit_time" json:"exit_time"`
	ExitPrice    float64      `csv:"exit_price" yaml:"exit_price" json:"exit_price"`
	Quantity     float64      `csv:"quantity" yaml:"quantity" json:"quantity"`
	BarsHeld     int          `csv:"bars_held" yaml:"bars_held" json:"bars_held"`
	PnL          float64      `csv:"pnl" yaml:"pnl" json:"pnl"`
	ExitReason   ExitReason   `csv:"exit_reason" yaml:"exit_reason" json:"exit_reason"`
}

// CalculatePnL computes realized profit for a closed position using decimal
// arithmetic. Short positions profit when the exit price is below the entry.
func CalculatePnL(side PositionSide, entryPrice, exitPrice, quantity float64) float64 {
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	qty := decimal.NewFromFloat(quantity)

	var diff decimal.Decimal
	if side == PositionSideShort {
		diff = entry.Sub(exit)
	} else {
		diff = exit.Sub(entry)
	}

	pnl, _ := diff.Mul(qty).Float64()

	return pnl
}
