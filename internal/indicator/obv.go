package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// OBV computes On Balance Volume, a cumulative running total:
// volume is added when the close rises, subtracted when it falls, and the
// total is unchanged on an equal close. The first bar seeds the total with
// its volume, so the indicator is ready from bar one.
type OBV struct {
	name      string
	prevClose optional.Option[float64]
	obv       float64
}

// NewOBV creates an on-balance-volume accumulator under the given role name.
func NewOBV(name string) *OBV {
	return &OBV{
		name:      name,
		prevClose: optional.None[float64](),
		obv:       0,
	}
}

// Name implements Indicator.
func (o *OBV) Name() string {
	return o.name
}

// Type implements Indicator.
func (o *OBV) Type() types.IndicatorType {
	return types.IndicatorTypeOBV
}

// Update implements Indicator.
func (o *OBV) Update(bar types.MarketData) {
	if o.prevClose.IsNone() {
		o.obv = bar.Volume
		o.prevClose = optional.Some(bar.Close)

		return
	}

	prev := o.prevClose.Unwrap()

	switch {
	case bar.Close > prev:
		o.obv += bar.Volume
	case bar.Close < prev:
		o.obv -= bar.Volume
	}

	o.prevClose = optional.Some(bar.Close)
}

// Value implements Indicator.
func (o *OBV) Value() optional.Option[float64] {
	if o.prevClose.IsNone() {
		return optional.None[float64]()
	}

	return optional.Some(o.obv)
}

// Reset implements Indicator.
func (o *OBV) Reset() {
	o.prevClose = optional.None[float64]()
	o.obv = 0
}
