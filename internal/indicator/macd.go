package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// MACD computes the Moving Average Convergence Divergence:
// macd = EMA(fast) - EMA(slow), signal = EMA(macd, signalPeriod),
// histogram = macd - signal.
//
// The macd line is ready once the slow EMA has warmed up; the signal line
// and histogram need a further signalPeriod macd values.
type MACD struct {
	name       string
	fastEMA    *EMA
	slowEMA    *EMA
	signalEMA  *EMA
	signalSeen int
}

// NewMACD creates a MACD accumulator under the given role name.
func NewMACD(name string, fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		name:       name,
		fastEMA:    NewEMA(name+"_fast", fastPeriod),
		slowEMA:    NewEMA(name+"_slow", slowPeriod),
		signalEMA:  NewEMA(name+"_signal", signalPeriod),
		signalSeen: 0,
	}
}

// Name implements Indicator.
func (m *MACD) Name() string {
	return m.name
}

// Type implements Indicator.
func (m *MACD) Type() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Update implements Indicator.
func (m *MACD) Update(bar types.MarketData) {
	m.fastEMA.Update(bar)
	m.slowEMA.Update(bar)

	fast := m.fastEMA.Value()
	slow := m.slowEMA.Value()

	if fast.IsNone() || slow.IsNone() {
		return
	}

	m.signalEMA.updateValue(fast.Unwrap() - slow.Unwrap())
	m.signalSeen++
}

// Value implements Indicator and returns the macd line.
func (m *MACD) Value() optional.Option[float64] {
	fast := m.fastEMA.Value()
	slow := m.slowEMA.Value()

	if fast.IsNone() || slow.IsNone() {
		return optional.None[float64]()
	}

	return optional.Some(fast.Unwrap() - slow.Unwrap())
}

// Signal returns the signal line: an EMA over the macd line.
func (m *MACD) Signal() optional.Option[float64] {
	if m.signalSeen < m.signalEMA.period {
		return optional.None[float64]()
	}

	return optional.Some(m.signalEMA.value)
}

// Histogram returns macd minus signal.
func (m *MACD) Histogram() optional.Option[float64] {
	macd := m.Value()
	signal := m.Signal()

	if macd.IsNone() || signal.IsNone() {
		return optional.None[float64]()
	}

	return optional.Some(macd.Unwrap() - signal.Unwrap())
}

// Reset implements Indicator.
func (m *MACD) Reset() {
	m.fastEMA.Reset()
	m.slowEMA.Reset()
	m.signalEMA.Reset()
	m.signalSeen = 0
}
