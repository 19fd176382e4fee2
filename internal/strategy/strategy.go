package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/indicator"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// Indicator role names shared between evaluators and the engine. The
// evaluator registers the accumulators it needs under these names; the
// engine updates them each bar and snapshots their values.
const (
	RoleShortMA = "short_ma"
	RoleLongMA  = "long_ma"
	RoleFastEMA = "fast_ema"
	RoleSlowEMA = "slow_ema"
	RoleATR     = "atr"
	RoleRSI     = "rsi"
	RoleMACD    = "macd"
	RoleVWAP    = "vwap"
	RoleOBV     = "obv"
)

// Snapshot holds the indicator values derived from the series prefix ending
// at one bar. None means the indicator is still warming up.
type Snapshot struct {
	ShortMA       optional.Option[float64]
	LongMA        optional.Option[float64]
	FastEMA       optional.Option[float64]
	SlowEMA       optional.Option[float64]
	ATR           optional.Option[float64]
	RSI           optional.Option[float64]
	MACD          optional.Option[float64]
	MACDSignal    optional.Option[float64]
	MACDHistogram optional.Option[float64]
	VWAP          optional.Option[float64]
	OBV           optional.Option[float64]
	Close         float64
	PrevClose     optional.Option[float64]
}

// EvalContext is everything an evaluator may read to make a per-bar decision.
// Evaluators are side-effect-free: they never mutate indicator or engine state.
type EvalContext struct {
	Bar      types.MarketData
	BarIndex int
	Current  Snapshot
	Previous Snapshot
	// Position is the engine-held position for this instrument; None is flat.
	// Evaluators read it to decide exit legality.
	Position optional.Option[types.Position]
}

// Evaluator maps an indicator snapshot plus trade context to a decision.
// Implementations are selected by Config.Kind.
type Evaluator interface {
	// Name returns a human-readable strategy name for logs and trade records.
	Name() string
	// RegisterIndicators adds the accumulators this evaluator reads to the
	// engine's registry, under the shared role names.
	RegisterIndicators(reg indicator.Registry) error
	// WarmupBars returns how many bars the evaluator needs before its first
	// possible entry. Live runners use it to size the history prefetch.
	WarmupBars() int
	// Evaluate returns the decision for the current bar.
	Evaluate(ctx EvalContext) (types.Decision, error)
	// Bracket computes the stop and target prices for an entry at entryPrice.
	Bracket(side types.PositionSide, entryPrice float64, snap Snapshot) (stop float64, target float64, err error)
	// TrailingMultiplier returns the ATR multiplier for the trailing stop
	// ratchet, or None when this variant uses a fixed bracket.
	TrailingMultiplier() optional.Option[float64]
}

// New constructs the evaluator for the configured variant. The config is
// validated here, so an engine can never run on an invalid config.
func New(cfg Config) (Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindMACrossover:
		return NewMACrossover(cfg), nil
	case KindATRAdaptive:
		return NewATRAdaptive(cfg), nil
	case KindMultiFactor:
		return NewMultiFactor(cfg), nil
	case KindVWAPConfirmed:
		return NewVWAPConfirmed(cfg)
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownStrategyKind, "unknown strategy kind: %s", cfg.Kind)
	}
}

// SnapshotFrom collects the current values of all registered indicators.
// Roles the evaluator did not register stay None.
func SnapshotFrom(reg indicator.Registry, bar types.MarketData, prevClose optional.Option[float64]) Snapshot {
	snap := Snapshot{
		ShortMA:       valueOf(reg, RoleShortMA),
		LongMA:        valueOf(reg, RoleLongMA),
		FastEMA:       valueOf(reg, RoleFastEMA),
		SlowEMA:       valueOf(reg, RoleSlowEMA),
		ATR:           valueOf(reg, RoleATR),
		RSI:           valueOf(reg, RoleRSI),
		MACD:          optional.None[float64](),
		MACDSignal:    optional.None[float64](),
		MACDHistogram: optional.None[float64](),
		VWAP:          valueOf(reg, RoleVWAP),
		OBV:           valueOf(reg, RoleOBV),
		Close:         bar.Close,
		PrevClose:     prevClose,
	}

	if ind, err := reg.Get(RoleMACD); err == nil {
		if macd, ok := ind.(*indicator.MACD); ok {
			snap.MACD = macd.Value()
			snap.MACDSignal = macd.Signal()
			snap.MACDHistogram = macd.Histogram()
		}
	}

	return snap
}

func valueOf(reg indicator.Registry, role string) optional.Option[float64] {
	ind, err := reg.Get(role)
	if err != nil {
		return optional.None[float64]()
	}

	return ind.Value()
}

// crossedAbove reports whether a crossed above b between the previous and
// current snapshots. All four values must be ready.
func crossedAbove(currA, currB, prevA, prevB optional.Option[float64]) bool {
	if currA.IsNone() || currB.IsNone() || prevA.IsNone() || prevB.IsNone() {
		return false
	}

	return currA.Unwrap() > currB.Unwrap() && prevA.Unwrap() <= prevB.Unwrap()
}
