package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// EMA computes an exponential moving average with the recurrence
// ema = close*k + ema*(1-k), k = 2/(period+1), seeded with the first close.
//
// The recurrence is defined from the first bar, but the value is numerically
// unstable until roughly one period has elapsed. Value therefore reports None
// during the first period-1 bars so that warm-up bars never drive entries;
// the running value keeps accumulating underneath.
type EMA struct {
	name   string
	period int
	k      float64
	value  float64
	count  int
}

// NewEMA creates an exponential moving average accumulator under the given role name.
func NewEMA(name string, period int) *EMA {
	return &EMA{
		name:   name,
		period: period,
		k:      2.0 / float64(period+1),
		value:  0,
		count:  0,
	}
}

// Name implements Indicator.
func (e *EMA) Name() string {
	return e.name
}

// Type implements Indicator.
func (e *EMA) Type() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Update implements Indicator.
func (e *EMA) Update(bar types.MarketData) {
	e.updateValue(bar.Close)
}

func (e *EMA) updateValue(v float64) {
	if e.count == 0 {
		e.value = v
	} else {
		e.value = v*e.k + e.value*(1-e.k)
	}

	e.count++
}

// Value implements Indicator. None until period bars have been observed.
func (e *EMA) Value() optional.Option[float64] {
	if e.count < e.period {
		return optional.None[float64]()
	}

	return optional.Some(e.value)
}

// Reset implements Indicator.
func (e *EMA) Reset() {
	e.value = 0
	e.count = 0
}
