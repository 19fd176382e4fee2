package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/indicator"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// MACrossover enters long when the short moving average crosses above the
// long moving average and exits on the opposite crossover. The bracket is a
// fixed percentage of the entry price.
type MACrossover struct {
	cfg Config
}

// NewMACrossover creates the crossover evaluator from a validated config.
func NewMACrossover(cfg Config) *MACrossover {
	return &MACrossover{cfg: cfg}
}

// Name implements Evaluator.
func (s *MACrossover) Name() string {
	return fmt.Sprintf("ma_crossover_%d_%d", s.cfg.ShortPeriod, s.cfg.LongPeriod)
}

// RegisterIndicators implements Evaluator.
func (s *MACrossover) RegisterIndicators(reg indicator.Registry) error {
	if err := reg.Register(indicator.NewSMA(RoleShortMA, s.cfg.ShortPeriod)); err != nil {
		return err
	}

	return reg.Register(indicator.NewSMA(RoleLongMA, s.cfg.LongPeriod))
}

// WarmupBars implements Evaluator. Crossover detection needs the long
// average on two consecutive bars.
func (s *MACrossover) WarmupBars() int {
	return s.cfg.LongPeriod + 1
}

// Evaluate implements Evaluator.
func (s *MACrossover) Evaluate(ctx EvalContext) (types.Decision, error) {
	up := crossedAbove(ctx.Current.ShortMA, ctx.Current.LongMA, ctx.Previous.ShortMA, ctx.Previous.LongMA)
	down := crossedAbove(ctx.Current.LongMA, ctx.Current.ShortMA, ctx.Previous.LongMA, ctx.Previous.ShortMA)

	if ctx.Position.IsSome() {
		pos := ctx.Position.Unwrap()
		if pos.Side == types.PositionSideLong && down {
			return types.DecisionExitLong, nil
		}

		if pos.Side == types.PositionSideShort && up {
			return types.DecisionExitShort, nil
		}

		return types.DecisionHold, nil
	}

	if up {
		return types.DecisionEnterLong, nil
	}

	if down && s.cfg.AllowShort {
		return types.DecisionEnterShort, nil
	}

	return types.DecisionHold, nil
}

// Bracket implements Evaluator with a fixed-percentage stop and target.
func (s *MACrossover) Bracket(side types.PositionSide, entryPrice float64, _ Snapshot) (float64, float64, error) {
	if entryPrice <= 0 {
		return 0, 0, errors.Newf(errors.ErrCodeInvalidParameter, "entry price must be positive, got %f", entryPrice)
	}

	if side == types.PositionSideShort {
		return entryPrice * (1 + s.cfg.StopLossPct), entryPrice * (1 - s.cfg.TakeProfitPct), nil
	}

	return entryPrice * (1 - s.cfg.StopLossPct), entryPrice * (1 + s.cfg.TakeProfitPct), nil
}

// TrailingMultiplier implements Evaluator. The percentage bracket is fixed.
func (s *MACrossover) TrailingMultiplier() optional.Option[float64] {
	return optional.None[float64]()
}
