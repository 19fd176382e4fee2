package risk

import (
	"math"

	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// Sizer computes position quantities from account equity and the distance to
// the initial stop. Sizing by stop distance keeps the dollar risk per trade
// constant across volatility regimes.
type Sizer struct {
	// RiskFraction is the fraction of equity risked per trade, in (0, 1].
	RiskFraction float64
	// MaxPositionFraction caps the position notional as a fraction of
	// equity, in (0, 1].
	MaxPositionFraction float64
}

// NewSizer validates the fractions and returns a Sizer.
func NewSizer(riskFraction, maxPositionFraction float64) (*Sizer, error) {
	if riskFraction <= 0 || riskFraction > 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidRiskFraction,
			"risk fraction must be in (0, 1], got %f", riskFraction)
	}

	if maxPositionFraction <= 0 || maxPositionFraction > 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidRiskFraction,
			"max position fraction must be in (0, 1], got %f", maxPositionFraction)
	}

	return &Sizer{
		RiskFraction:        riskFraction,
		MaxPositionFraction: maxPositionFraction,
	}, nil
}

// SizeFor returns the quantity for an entry with the given stop distance.
// quantity = equity*riskFraction/stopDistance, clamped to
// equity*maxPositionFraction/price.
//
// A zero or negative stop distance yields quantity zero. That is an explicit
// policy, not an error: a degenerate stop must never divide by zero or
// produce an unbounded position.
func (s *Sizer) SizeFor(stopDistance, equity, price float64) float64 {
	if stopDistance <= 0 || equity <= 0 || price <= 0 {
		return 0
	}

	quantity := (equity * s.RiskFraction) / stopDistance
	maxQuantity := (equity * s.MaxPositionFraction) / price

	return math.Min(quantity, maxQuantity)
}

// RatchetStop tightens the trailing stop of an open position toward the
// close by atr*multiplier. The stop is never loosened: for a long position
// it is monotonically non-decreasing, for a short monotonically
// non-increasing. Returns the updated stop.
func RatchetStop(pos types.Position, close, atr, multiplier float64) float64 {
	current := pos.EffectiveStop()

	if pos.Side == types.PositionSideShort {
		candidate := close + atr*multiplier

		return math.Min(current, candidate)
	}

	candidate := close - atr*multiplier

	return math.Max(current, candidate)
}
