package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/indicator"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// VWAPConfirmed is a conjunctive filter layered over a base variant: entries
// additionally require the price to clear VWAP by the configured band
// (above for longs, below for shorts). Exits and brackets are delegated to
// the base evaluator untouched.
type VWAPConfirmed struct {
	cfg  Config
	base Evaluator
}

// NewVWAPConfirmed creates the filter around the configured base variant.
// An unset base defaults to atr_adaptive.
func NewVWAPConfirmed(cfg Config) (*VWAPConfirmed, error) {
	baseCfg := cfg
	baseCfg.Kind = cfg.BaseKind

	if baseCfg.Kind == "" {
		baseCfg.Kind = KindATRAdaptive
	}

	base, err := New(baseCfg)
	if err != nil {
		return nil, err
	}

	return &VWAPConfirmed{cfg: cfg, base: base}, nil
}

// Name implements Evaluator.
func (s *VWAPConfirmed) Name() string {
	return fmt.Sprintf("vwap_confirmed(%s)", s.base.Name())
}

// RegisterIndicators implements Evaluator.
func (s *VWAPConfirmed) RegisterIndicators(reg indicator.Registry) error {
	if err := s.base.RegisterIndicators(reg); err != nil {
		return err
	}

	mode := indicator.VWAPModeTrailing
	if s.cfg.VWAPCumulative {
		mode = indicator.VWAPModeCumulative
	}

	return reg.Register(indicator.NewVWAP(RoleVWAP, s.cfg.VWAPPeriod, mode))
}

// WarmupBars implements Evaluator.
func (s *VWAPConfirmed) WarmupBars() int {
	warmup := s.base.WarmupBars()
	if !s.cfg.VWAPCumulative && s.cfg.VWAPPeriod > warmup {
		warmup = s.cfg.VWAPPeriod
	}

	return warmup
}

// Evaluate implements Evaluator. Entry decisions from the base are vetoed
// unless the VWAP confirmation holds; everything else passes through.
func (s *VWAPConfirmed) Evaluate(ctx EvalContext) (types.Decision, error) {
	decision, err := s.base.Evaluate(ctx)
	if err != nil {
		return types.DecisionHold, err
	}

	if !decision.IsEntry() {
		return decision, nil
	}

	vwap := ctx.Current.VWAP
	if vwap.IsNone() {
		return types.DecisionHold, nil
	}

	switch decision {
	case types.DecisionEnterLong:
		if ctx.Bar.Close > vwap.Unwrap()*(1+s.cfg.VWAPBand) {
			return decision, nil
		}
	case types.DecisionEnterShort:
		if ctx.Bar.Close < vwap.Unwrap()*(1-s.cfg.VWAPBand) {
			return decision, nil
		}
	}

	return types.DecisionHold, nil
}

// Bracket implements Evaluator by delegation.
func (s *VWAPConfirmed) Bracket(side types.PositionSide, entryPrice float64, snap Snapshot) (float64, float64, error) {
	return s.base.Bracket(side, entryPrice, snap)
}

// TrailingMultiplier implements Evaluator by delegation.
func (s *VWAPConfirmed) TrailingMultiplier() optional.Option[float64] {
	return s.base.TrailingMultiplier()
}
