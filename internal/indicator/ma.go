package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// SMA computes the arithmetic mean of close prices over the trailing period.
// Not ready until period bars have been observed.
type SMA struct {
	name   string
	period int
	window []float64
	sum    float64
}

// NewSMA creates a simple moving average accumulator under the given role name.
func NewSMA(name string, period int) *SMA {
	return &SMA{
		name:   name,
		period: period,
		window: make([]float64, 0, period),
		sum:    0,
	}
}

// Name implements Indicator.
func (s *SMA) Name() string {
	return s.name
}

// Type implements Indicator.
func (s *SMA) Type() types.IndicatorType {
	return types.IndicatorTypeSMA
}

// Update implements Indicator.
func (s *SMA) Update(bar types.MarketData) {
	s.window = append(s.window, bar.Close)
	s.sum += bar.Close

	if len(s.window) > s.period {
		s.sum -= s.window[0]
		s.window = s.window[1:]
	}
}

// Value implements Indicator.
func (s *SMA) Value() optional.Option[float64] {
	if len(s.window) < s.period {
		return optional.None[float64]()
	}

	return optional.Some(s.sum / float64(s.period))
}

// Reset implements Indicator.
func (s *SMA) Reset() {
	s.window = s.window[:0]
	s.sum = 0
}
