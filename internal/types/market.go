package types

import (
	"math"
	"time"

	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// MarketData is a single OHLCV bar for one instrument.
// Bars are immutable once produced by a data source.
type MarketData struct {
	Symbol string    `csv:"symbol" yaml:"symbol" json:"symbol"`
	Time   time.Time `csv:"time" yaml:"time" json:"time"`
	Open   float64   `csv:"open" yaml:"open" json:"open"`
	High   float64   `csv:"high" yaml:"high" json:"high"`
	Low    float64   `csv:"low" yaml:"low" json:"low"`
	Close  float64   `csv:"close" yaml:"close" json:"close"`
	Volume float64   `csv:"volume" yaml:"volume" json:"volume"`
}

// TypicalPrice returns (high + low + close) / 3, the price used for VWAP.
func (m MarketData) TypicalPrice() float64 {
	return (m.High + m.Low + m.Close) / 3
}

// Validate checks the OHLC invariant: prices must be positive and finite,
// volume non-negative, and low <= min(open, close) <= max(open, close) <= high.
func (m MarketData) Validate() error {
	for _, p := range []float64{m.Open, m.High, m.Low, m.Close} {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has non-positive or non-finite price", m.Time)
		}
	}

	if m.Volume < 0 || math.IsNaN(m.Volume) {
		return errors.Newf(errors.ErrCodeInvalidBar, "bar at %s has negative volume %f", m.Time, m.Volume)
	}

	if m.Low > math.Min(m.Open, m.Close) || m.High < math.Max(m.Open, m.Close) {
		return errors.Newf(errors.ErrCodeInvalidBar,
			"bar at %s violates OHLC invariant (o=%f h=%f l=%f c=%f)",
			m.Time, m.Open, m.High, m.Low, m.Close)
	}

	return nil
}

// ValidateSeries checks that bars are in strictly ascending timestamp order
// with no duplicates. Individual bars are not validated; see MarketData.Validate.
func ValidateSeries(bars []MarketData) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return errors.Newf(errors.ErrCodeOutOfOrderBar,
				"bar %d at %s is not after previous bar at %s",
				i, bars[i].Time, bars[i-1].Time)
		}
	}

	return nil
}
