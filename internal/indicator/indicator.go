package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// Indicator is an incremental accumulator over a bar series. Each Update call
// consumes exactly one bar; Value returns None until the indicator has seen
// enough history. A None value is a distinct "not ready" state, never a
// silently wrong number.
//
// Indicators are pure functions of the series prefix plus O(period) internal
// state. They never read future bars.
type Indicator interface {
	// Name returns the role name of this instance, e.g. "short_ma".
	// Two instances of the same indicator type can coexist under
	// different role names.
	Name() string
	// Type returns the indicator family.
	Type() types.IndicatorType
	// Update consumes the next bar in the series.
	Update(bar types.MarketData)
	// Value returns the current value, or None while warming up.
	Value() optional.Option[float64]
	// Reset clears all accumulated state.
	Reset()
}
