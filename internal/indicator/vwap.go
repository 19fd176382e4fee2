package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// VWAPMode selects between a trailing-window VWAP and a session-cumulative one.
type VWAPMode string

const (
	// VWAPModeTrailing averages over the trailing period bars.
	VWAPModeTrailing VWAPMode = "trailing"
	// VWAPModeCumulative averages over all bars since the last Reset.
	VWAPModeCumulative VWAPMode = "cumulative"
)

// VWAP computes the volume-weighted average price:
// sum(typicalPrice * volume) / sum(volume), where
// typicalPrice = (high + low + close) / 3.
//
// If every bar in scope has zero volume the value is None; a zero-volume
// window has no meaningful fair price.
type VWAP struct {
	name     string
	period   int
	mode     VWAPMode
	tpVols   []float64
	vols     []float64
	tpVolSum float64
	volSum   float64
	count    int
}

// NewVWAP creates a volume-weighted average price accumulator under the given
// role name. The period is ignored in cumulative mode.
func NewVWAP(name string, period int, mode VWAPMode) *VWAP {
	return &VWAP{
		name:     name,
		period:   period,
		mode:     mode,
		tpVols:   nil,
		vols:     nil,
		tpVolSum: 0,
		volSum:   0,
		count:    0,
	}
}

// Name implements Indicator.
func (v *VWAP) Name() string {
	return v.name
}

// Type implements Indicator.
func (v *VWAP) Type() types.IndicatorType {
	return types.IndicatorTypeVWAP
}

// Update implements Indicator.
func (v *VWAP) Update(bar types.MarketData) {
	tpVol := bar.TypicalPrice() * bar.Volume

	v.tpVolSum += tpVol
	v.volSum += bar.Volume
	v.count++

	if v.mode == VWAPModeCumulative {
		return
	}

	v.tpVols = append(v.tpVols, tpVol)
	v.vols = append(v.vols, bar.Volume)

	if len(v.vols) > v.period {
		v.tpVolSum -= v.tpVols[0]
		v.volSum -= v.vols[0]
		v.tpVols = v.tpVols[1:]
		v.vols = v.vols[1:]
	}
}

// Value implements Indicator. In trailing mode, None until period bars have
// been observed; in cumulative mode, None until the first bar.
func (v *VWAP) Value() optional.Option[float64] {
	if v.mode == VWAPModeTrailing && v.count < v.period {
		return optional.None[float64]()
	}

	if v.count == 0 || v.volSum == 0 {
		return optional.None[float64]()
	}

	return optional.Some(v.tpVolSum / v.volSum)
}

// Reset implements Indicator.
func (v *VWAP) Reset() {
	v.tpVols = nil
	v.vols = nil
	v.tpVolSum = 0
	v.volSum = 0
	v.count = 0
}
