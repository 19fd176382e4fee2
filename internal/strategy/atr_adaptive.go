package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/indicator"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// ATRAdaptive enters on a moving-average crossover like MACrossover, but its
// stop and target are entry +- ATR*multiplier, computed once at entry. The
// bracket is fixed for the life of the position unless trailing is enabled
// in the config.
type ATRAdaptive struct {
	cfg Config
}

// NewATRAdaptive creates the ATR-bracket evaluator from a validated config.
func NewATRAdaptive(cfg Config) *ATRAdaptive {
	return &ATRAdaptive{cfg: cfg}
}

// Name implements Evaluator.
func (s *ATRAdaptive) Name() string {
	return fmt.Sprintf("atr_adaptive_%d_%d", s.cfg.ShortPeriod, s.cfg.LongPeriod)
}

// RegisterIndicators implements Evaluator.
func (s *ATRAdaptive) RegisterIndicators(reg indicator.Registry) error {
	if err := reg.Register(indicator.NewSMA(RoleShortMA, s.cfg.ShortPeriod)); err != nil {
		return err
	}

	if err := reg.Register(indicator.NewSMA(RoleLongMA, s.cfg.LongPeriod)); err != nil {
		return err
	}

	return reg.Register(indicator.NewATR(RoleATR, s.cfg.ATRPeriod))
}

// WarmupBars implements Evaluator.
func (s *ATRAdaptive) WarmupBars() int {
	warmup := s.cfg.LongPeriod + 1
	if s.cfg.ATRPeriod+1 > warmup {
		warmup = s.cfg.ATRPeriod + 1
	}

	return warmup
}

// Evaluate implements Evaluator. Entries additionally require a ready ATR,
// since the bracket cannot be priced without it.
func (s *ATRAdaptive) Evaluate(ctx EvalContext) (types.Decision, error) {
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

	if ctx.Current.ATR.IsNone() {
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

// Bracket implements Evaluator: entry +- ATR*multiplier, asymmetric
// multipliers for stop and target.
func (s *ATRAdaptive) Bracket(side types.PositionSide, entryPrice float64, snap Snapshot) (float64, float64, error) {
	if snap.ATR.IsNone() {
		return 0, 0, errors.New(errors.ErrCodeIndicatorCalculation, "ATR not ready, cannot price bracket")
	}

	atr := snap.ATR.Unwrap()

	if side == types.PositionSideShort {
		return entryPrice + atr*s.cfg.StopLossMultiplier, entryPrice - atr*s.cfg.TakeProfitMultiplier, nil
	}

	return entryPrice - atr*s.cfg.StopLossMultiplier, entryPrice + atr*s.cfg.TakeProfitMultiplier, nil
}

// TrailingMultiplier implements Evaluator.
func (s *ATRAdaptive) TrailingMultiplier() optional.Option[float64] {
	if !s.cfg.TrailingStop {
		return optional.None[float64]()
	}

	return optional.Some(s.cfg.StopLossMultiplier)
}
