package indicator

import (
	"math"

	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// ATR computes the Average True Range with Wilder smoothing. The true range
// needs the previous close, so the indicator is not ready until period+1
// bars have been observed.
type ATR struct {
	name      string
	period    int
	prevClose optional.Option[float64]
	trSum     float64
	trCount   int
	atr       float64
}

// NewATR creates an average true range accumulator under the given role name.
func NewATR(name string, period int) *ATR {
	return &ATR{
		name:      name,
		period:    period,
		prevClose: optional.None[float64](),
		trSum:     0,
		trCount:   0,
		atr:       0,
	}
}

// Name implements Indicator.
func (a *ATR) Name() string {
	return a.name
}

// Type implements Indicator.
func (a *ATR) Type() types.IndicatorType {
	return types.IndicatorTypeATR
}

// Update implements Indicator.
func (a *ATR) Update(bar types.MarketData) {
	if a.prevClose.IsNone() {
		a.prevClose = optional.Some(bar.Close)

		return
	}

	prev := a.prevClose.Unwrap()
	tr := math.Max(
		bar.High-bar.Low,
		math.Max(
			math.Abs(bar.High-prev),
			math.Abs(bar.Low-prev),
		),
	)

	a.trCount++

	switch {
	case a.trCount < a.period:
		a.trSum += tr
	case a.trCount == a.period:
		// Seed with the arithmetic mean of the first period true ranges.
		a.trSum += tr
		a.atr = a.trSum / float64(a.period)
	default:
		// Wilder smoothing.
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}

	a.prevClose = optional.Some(bar.Close)
}

// Value implements Indicator. None until period+1 bars have been observed.
func (a *ATR) Value() optional.Option[float64] {
	if a.trCount < a.period {
		return optional.None[float64]()
	}

	return optional.Some(a.atr)
}

// Reset implements Indicator.
func (a *ATR) Reset() {
	a.prevClose = optional.None[float64]()
	a.trSum = 0
	a.trCount = 0
	a.atr = 0
}
