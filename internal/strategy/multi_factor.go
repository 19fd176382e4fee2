package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/indicator"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// MultiFactor determines trend with a fast/slow EMA pair and counts
// independent confirmations: price momentum sign, macd line versus signal
// line, and RSI inside the configured band. It enters only when the trend
// direction holds and the confirmation count reaches the threshold.
// Partial matches never enter; the comparison is count >= threshold,
// with no rounding.
type MultiFactor struct {
	cfg Config
}

// NewMultiFactor creates the voting evaluator from a validated config.
func NewMultiFactor(cfg Config) *MultiFactor {
	return &MultiFactor{cfg: cfg}
}

// Name implements Evaluator.
func (s *MultiFactor) Name() string {
	return fmt.Sprintf("multi_factor_%d_%d_%d", s.cfg.ShortPeriod, s.cfg.LongPeriod, s.cfg.SignalPeriod)
}

// RegisterIndicators implements Evaluator.
func (s *MultiFactor) RegisterIndicators(reg indicator.Registry) error {
	if err := reg.Register(indicator.NewEMA(RoleFastEMA, s.cfg.ShortPeriod)); err != nil {
		return err
	}

	if err := reg.Register(indicator.NewEMA(RoleSlowEMA, s.cfg.LongPeriod)); err != nil {
		return err
	}

	if err := reg.Register(indicator.NewMACD(RoleMACD, s.cfg.ShortPeriod, s.cfg.LongPeriod, s.cfg.SignalPeriod)); err != nil {
		return err
	}

	if err := reg.Register(indicator.NewRSI(RoleRSI, s.cfg.RSIPeriod)); err != nil {
		return err
	}

	return reg.Register(indicator.NewATR(RoleATR, s.cfg.ATRPeriod))
}

// WarmupBars implements Evaluator. The signal line is the slowest component.
func (s *MultiFactor) WarmupBars() int {
	warmup := s.cfg.LongPeriod + s.cfg.SignalPeriod
	if s.cfg.RSIPeriod+1 > warmup {
		warmup = s.cfg.RSIPeriod + 1
	}

	if s.cfg.ATRPeriod+1 > warmup {
		warmup = s.cfg.ATRPeriod + 1
	}

	return warmup
}

// Evaluate implements Evaluator.
func (s *MultiFactor) Evaluate(ctx EvalContext) (types.Decision, error) {
	snap := ctx.Current

	// Every factor must be ready; warm-up bars never trigger entries or
	// reversal exits.
	if snap.FastEMA.IsNone() || snap.SlowEMA.IsNone() || snap.MACD.IsNone() ||
		snap.MACDSignal.IsNone() || snap.RSI.IsNone() || snap.ATR.IsNone() ||
		snap.PrevClose.IsNone() {
		return types.DecisionHold, nil
	}

	trendUp := snap.FastEMA.Unwrap() > snap.SlowEMA.Unwrap()

	if ctx.Position.IsSome() {
		pos := ctx.Position.Unwrap()
		if pos.Side == types.PositionSideLong && !trendUp {
			return types.DecisionExitLong, nil
		}

		if pos.Side == types.PositionSideShort && trendUp {
			return types.DecisionExitShort, nil
		}

		return types.DecisionHold, nil
	}

	if trendUp && s.confirmations(snap, true) >= s.cfg.ConfirmationThreshold {
		return types.DecisionEnterLong, nil
	}

	if !trendUp && s.cfg.AllowShort && s.confirmations(snap, false) >= s.cfg.ConfirmationThreshold {
		return types.DecisionEnterShort, nil
	}

	return types.DecisionHold, nil
}

// confirmations counts the independent factors agreeing with the trend
// direction. The snapshot is known ready when this is called.
func (s *MultiFactor) confirmations(snap Snapshot, long bool) int {
	count := 0

	// 1. Price momentum sign.
	if long == (snap.Close > snap.PrevClose.Unwrap()) {
		count++
	}

	// 2. Macd line versus signal line sign.
	if long == (snap.MACD.Unwrap() > snap.MACDSignal.Unwrap()) {
		count++
	}

	// 3. RSI inside the configured band.
	rsi := snap.RSI.Unwrap()
	if rsi > s.cfg.RSILower && rsi < s.cfg.RSIUpper {
		count++
	}

	return count
}

// Bracket implements Evaluator with an ATR bracket.
func (s *MultiFactor) Bracket(side types.PositionSide, entryPrice float64, snap Snapshot) (float64, float64, error) {
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
func (s *MultiFactor) TrailingMultiplier() optional.Option[float64] {
	if !s.cfg.TrailingStop {
		return optional.None[float64]()
	}

	return optional.Some(s.cfg.StopLossMultiplier)
}
