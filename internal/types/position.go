package types

import (
	"time"

	"github.com/moznion/go-optional"
)

type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// Position is the single open position for one instrument. The engine holds
// optional.Option[Position]; None is the flat state, never a zero-valued struct.
type Position struct {
	Symbol       string       `yaml:"symbol" json:"symbol"`
	Side         PositionSide `yaml:"side" json:"side"`
	EntryPrice   float64      `yaml:"entry_price" json:"entry_price"`
	Quantity     float64      `yaml:"quantity" json:"quantity"`
	StopPrice    float64      `yaml:"stop_price" json:"stop_price"`
	TargetPrice  float64      `yaml:"target_price" json:"target_price"`
	EntryBar     int          `yaml:"entry_bar" json:"entry_bar"`
	EntryTime    time.Time    `yaml:"entry_time" json:"entry_time"`
	StrategyName string       `yaml:"strategy_name" json:"strategy_name"`
	// TrailingStop ratchets toward price while the position is open.
	// None when the strategy variant does not trail.
	TrailingStop optional.Option[float64] `yaml:"trailing_stop" json:"trailing_stop"`
	// Provisional is true until a fill confirmation arrives from the broker.
	// Backtests fill synchronously, so it is only meaningful in live runs.
	Provisional bool `yaml:"provisional" json:"provisional"`
}

// EffectiveStop returns the trailing stop when set, otherwise the fixed stop.
func (p Position) EffectiveStop() float64 {
	if p.TrailingStop.IsSome() {
		return p.TrailingStop.Unwrap()
	}

	return p.StopPrice
}

// BarsHeld returns how many bars the position has been open as of barIndex.
func (p Position) BarsHeld(barIndex int) int {
	return barIndex - p.EntryBar
}
