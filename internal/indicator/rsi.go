package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// RSI computes the Relative Strength Index with Wilder smoothing over close
// deltas. Not ready until period deltas (period+1 bars) have been observed.
//
// When the average loss is zero the indicator reports 100 (a perfect
// uptrend). This is a defined policy, never a division by zero.
type RSI struct {
	name       string
	period     int
	prevClose  optional.Option[float64]
	avgGain    float64
	avgLoss    float64
	deltaCount int
}

// NewRSI creates a relative strength index accumulator under the given role name.
func NewRSI(name string, period int) *RSI {
	return &RSI{
		name:       name,
		period:     period,
		prevClose:  optional.None[float64](),
		avgGain:    0,
		avgLoss:    0,
		deltaCount: 0,
	}
}

// Name implements Indicator.
func (r *RSI) Name() string {
	return r.name
}

// Type implements Indicator.
func (r *RSI) Type() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Update implements Indicator.
func (r *RSI) Update(bar types.MarketData) {
	if r.prevClose.IsNone() {
		r.prevClose = optional.Some(bar.Close)

		return
	}

	change := bar.Close - r.prevClose.Unwrap()
	gain, loss := 0.0, 0.0

	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	r.deltaCount++

	if r.deltaCount <= r.period {
		// Simple average over the first period deltas.
		r.avgGain += gain / float64(r.period)
		r.avgLoss += loss / float64(r.period)
	} else {
		// Wilder smoothing.
		r.avgGain = (r.avgGain*float64(r.period-1) + gain) / float64(r.period)
		r.avgLoss = (r.avgLoss*float64(r.period-1) + loss) / float64(r.period)
	}

	r.prevClose = optional.Some(bar.Close)
}

// Value implements Indicator. None until period+1 bars have been observed.
func (r *RSI) Value() optional.Option[float64] {
	if r.deltaCount < r.period {
		return optional.None[float64]()
	}

	if r.avgLoss == 0 {
		return optional.Some(100.0)
	}

	rs := r.avgGain / r.avgLoss

	return optional.Some(100 - 100/(1+rs))
}

// Reset implements Indicator.
func (r *RSI) Reset() {
	r.prevClose = optional.None[float64]()
	r.avgGain = 0
	r.avgLoss = 0
	r.deltaCount = 0
}
