package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/indicator"
	"github.com/quantor-lab/quantor-trading/internal/logger"
	"github.com/quantor-lab/quantor-trading/internal/risk"
	"github.com/quantor-lab/quantor-trading/internal/strategy"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
	"go.uber.org/zap"
)

// TradeRecorder receives every closed trade. The duckdb trade log and the
// in-memory test recorder both implement it.
type TradeRecorder interface {
	RecordTrade(trade types.TradeRecord) error
}

// Engine drives one strategy over one instrument's bar stream. It owns the
// position state machine: at most one open position, exits resolved before
// entries, and no re-entry on the bar that closed a position.
//
// Engine is not safe for concurrent use; the runner gives each instrument
// its own engine.
type Engine struct {
	cfg       strategy.Config
	evaluator strategy.Evaluator
	registry  indicator.Registry
	sizer     *risk.Sizer
	broker    Broker
	recorder  TradeRecorder
	logger    *logger.Logger

	equity      float64
	warmingUp   bool
	position    optional.Option[types.Position]
	barIndex    int
	lastBarTime optional.Option[time.Time]
	prevClose   optional.Option[float64]
	prevSnap    strategy.Snapshot
	trades      []types.TradeRecord
}

// NewEngine builds an engine for one instrument. Configuration errors are
// fatal here; data errors during processing are not.
func NewEngine(cfg strategy.Config, initialCapital float64, broker Broker, recorder TradeRecorder, log *logger.Logger) (*Engine, error) {
	if initialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "initial capital must be positive, got %f", initialCapital)
	}

	evaluator, err := strategy.New(cfg)
	if err != nil {
		return nil, err
	}

	sizer, err := risk.NewSizer(cfg.RiskPerTrade, cfg.MaxPositionFraction)
	if err != nil {
		return nil, err
	}

	registry := indicator.NewRegistry()
	if err := evaluator.RegisterIndicators(registry); err != nil {
		return nil, err
	}

	if broker == nil {
		broker = NewRecordingBroker()
	}

	return &Engine{
		cfg:       cfg,
		evaluator: evaluator,
		registry:  registry,
		sizer:     sizer,
		broker:    broker,
		recorder:  recorder,
		logger:    log,
		equity:    initialCapital,
		position:  optional.None[types.Position](),
	}, nil
}

// ProcessBar advances the state machine by one bar. The full transition
// runs atomically: callers never observe a half-applied bar.
//
// Returned errors with a data quality code mean the bar was rejected and
// state is unchanged; the stream can continue. Any other error is a fault
// and the run should stop.
func (e *Engine) ProcessBar(ctx context.Context, bar types.MarketData) error {
	if err := bar.Validate(); err != nil {
		e.logger.Warn("rejected bar",
			zap.String("symbol", bar.Symbol),
			zap.Time("time", bar.Time),
			zap.Error(err),
		)

		return err
	}

	if e.lastBarTime.IsSome() && !bar.Time.After(e.lastBarTime.Unwrap()) {
		err := errors.Newf(errors.ErrCodeOutOfOrderBar,
			"bar at %s does not advance past %s", bar.Time, e.lastBarTime.Unwrap())
		e.logger.Warn("rejected bar", zap.String("symbol", bar.Symbol), zap.Error(err))

		return err
	}

	e.registry.UpdateAll(bar)
	snap := strategy.SnapshotFrom(e.registry, bar, e.prevClose)

	closedThisBar := false

	if e.position.IsSome() {
		closed, err := e.resolveExit(ctx, bar, snap)
		if err != nil {
			return err
		}

		closedThisBar = closed

		if !closed {
			e.ratchetTrailingStop(bar, snap)
		}
	}

	if e.position.IsNone() && !closedThisBar {
		if err := e.tryEntry(ctx, bar, snap); err != nil {
			return err
		}
	}

	e.barIndex++
	e.lastBarTime = optional.Some(bar.Time)
	e.prevClose = optional.Some(bar.Close)
	e.prevSnap = snap

	return nil
}

// resolveExit checks exit conditions in priority order: time limit, stop
// loss, take profit, signal reversal. The first condition that holds wins
// and the rest are not evaluated.
func (e *Engine) resolveExit(ctx context.Context, bar types.MarketData, snap strategy.Snapshot) (bool, error) {
	pos := e.position.Unwrap()

	if e.cfg.MaxHoldingBars > 0 && pos.BarsHeld(e.barIndex) > e.cfg.MaxHoldingBars {
		return true, e.closePosition(ctx, bar, types.ExitReasonTimeLimit)
	}

	stop := pos.EffectiveStop()
	if pos.Side == types.PositionSideLong && bar.Close <= stop {
		return true, e.closePosition(ctx, bar, types.ExitReasonStopLoss)
	}

	if pos.Side == types.PositionSideShort && bar.Close >= stop {
		return true, e.closePosition(ctx, bar, types.ExitReasonStopLoss)
	}

	if pos.TargetPrice > 0 {
		if pos.Side == types.PositionSideLong && bar.Close >= pos.TargetPrice {
			return true, e.closePosition(ctx, bar, types.ExitReasonTakeProfit)
		}

		if pos.Side == types.PositionSideShort && bar.Close <= pos.TargetPrice {
			return true, e.closePosition(ctx, bar, types.ExitReasonTakeProfit)
		}
	}

	decision, err := e.evaluator.Evaluate(strategy.EvalContext{
		Bar:      bar,
		BarIndex: e.barIndex,
		Current:  snap,
		Previous: e.prevSnap,
		Position: e.position,
	})
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeEvaluationFailed, "strategy evaluation failed", err)
	}

	switch decision {
	case types.DecisionExitLong:
		if pos.Side != types.PositionSideLong {
			return false, errors.Newf(errors.ErrCodeInvalidTransition,
				"exit long signaled against a %s position", pos.Side)
		}

		return true, e.closePosition(ctx, bar, types.ExitReasonSignalReversal)
	case types.DecisionExitShort:
		if pos.Side != types.PositionSideShort {
			return false, errors.Newf(errors.ErrCodeInvalidTransition,
				"exit short signaled against a %s position", pos.Side)
		}

		return true, e.closePosition(ctx, bar, types.ExitReasonSignalReversal)
	case types.DecisionEnterLong, types.DecisionEnterShort:
		return false, errors.Newf(errors.ErrCodeInvalidTransition,
			"entry signaled while a position is open on %s", pos.Symbol)
	case types.DecisionHold:
	}

	return false, nil
}

// ratchetTrailingStop tightens the stop of the surviving position using the
// current bar. The tightened stop takes effect from the next bar.
func (e *Engine) ratchetTrailingStop(bar types.MarketData, snap strategy.Snapshot) {
	mult := e.evaluator.TrailingMultiplier()
	if mult.IsNone() || snap.ATR.IsNone() {
		return
	}

	pos := e.position.Unwrap()
	updated := risk.RatchetStop(pos, bar.Close, snap.ATR.Unwrap(), mult.Unwrap())

	if updated != pos.EffectiveStop() {
		e.logger.Debug("trailing stop ratcheted",
			zap.String("symbol", pos.Symbol),
			zap.Float64("stop", updated),
		)
	}

	pos.TrailingStop = optional.Some(updated)
	e.position = optional.Some(pos)
}

func (e *Engine) tryEntry(ctx context.Context, bar types.MarketData, snap strategy.Snapshot) error {
	if e.warmingUp {
		return nil
	}

	decision, err := e.evaluator.Evaluate(strategy.EvalContext{
		Bar:      bar,
		BarIndex: e.barIndex,
		Current:  snap,
		Previous: e.prevSnap,
		Position: e.position,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeEvaluationFailed, "strategy evaluation failed", err)
	}

	if decision.IsExit() {
		return errors.Newf(errors.ErrCodeInvalidTransition,
			"exit signaled while flat on %s", bar.Symbol)
	}

	if !decision.IsEntry() {
		return nil
	}

	side := types.PositionSideLong
	if decision == types.DecisionEnterShort {
		if !e.cfg.AllowShort {
			return nil
		}

		side = types.PositionSideShort
	}

	entryPrice := bar.Close

	stop, target, err := e.evaluator.Bracket(side, entryPrice, snap)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEvaluationFailed, "bracket computation failed", err)
	}

	stopDistance := entryPrice - stop
	if side == types.PositionSideShort {
		stopDistance = stop - entryPrice
	}

	quantity := e.sizer.SizeFor(stopDistance, e.equity, entryPrice)
	if quantity == 0 {
		e.logger.Info("skipped entry, sizing yielded zero quantity",
			zap.String("symbol", bar.Symbol),
			zap.Float64("stop_distance", stopDistance),
			zap.Float64("equity", e.equity),
		)

		return nil
	}

	pos := types.Position{
		Symbol:       bar.Symbol,
		Side:         side,
		EntryPrice:   entryPrice,
		Quantity:     quantity,
		StopPrice:    stop,
		TargetPrice:  target,
		EntryBar:     e.barIndex,
		EntryTime:    bar.Time,
		StrategyName: e.evaluator.Name(),
		TrailingStop: optional.None[float64](),
		Provisional:  true,
	}

	orderSide := OrderSideBuy
	if side == types.PositionSideShort {
		orderSide = OrderSideSell
	}

	handle, err := e.broker.PlaceOrder(ctx, OrderIntent{
		ID:           uuid.New().String(),
		Symbol:       bar.Symbol,
		Side:         orderSide,
		PositionSide: side,
		Quantity:     quantity,
		Price:        entryPrice,
		Time:         bar.Time,
		Reason:       ReasonEntrySignal,
		Message:      e.evaluator.Name(),
		StrategyName: e.evaluator.Name(),
	})
	if err != nil {
		// The intent was not accepted, so no position exists to carry.
		e.logger.Error("entry order rejected",
			zap.String("symbol", bar.Symbol),
			zap.Error(err),
		)

		return nil
	}

	e.position = optional.Some(pos)

	e.logger.Info("opened position",
		zap.String("symbol", pos.Symbol),
		zap.String("side", string(pos.Side)),
		zap.Float64("entry", entryPrice),
		zap.Float64("quantity", quantity),
		zap.Float64("stop", stop),
		zap.Float64("target", target),
		zap.String("order_id", handle.ID),
	)

	return nil
}

func (e *Engine) closePosition(ctx context.Context, bar types.MarketData, reason types.ExitReason) error {
	pos := e.position.Unwrap()
	exitPrice := bar.Close
	pnl := types.CalculatePnL(pos.Side, pos.EntryPrice, exitPrice, pos.Quantity)

	record := types.TradeRecord{
		ID:           uuid.New().String(),
		Symbol:       pos.Symbol,
		StrategyName: pos.StrategyName,
		Side:         pos.Side,
		EntryTime:    pos.EntryTime,
		EntryPrice:   pos.EntryPrice,
		ExitTime:     bar.Time,
		ExitPrice:    exitPrice,
		Quantity:     pos.Quantity,
		BarsHeld:     pos.BarsHeld(e.barIndex),
		PnL:          pnl,
		ExitReason:   reason,
	}

	orderSide := OrderSideSell
	if pos.Side == types.PositionSideShort {
		orderSide = OrderSideBuy
	}

	if _, err := e.broker.PlaceOrder(ctx, OrderIntent{
		ID:           uuid.New().String(),
		Symbol:       pos.Symbol,
		Side:         orderSide,
		PositionSide: pos.Side,
		Quantity:     pos.Quantity,
		Price:        exitPrice,
		Time:         bar.Time,
		Reason:       string(reason),
		Message:      pos.StrategyName,
		StrategyName: pos.StrategyName,
	}); err != nil {
		e.logger.Error("exit order rejected", zap.String("symbol", pos.Symbol), zap.Error(err))
	}

	e.position = optional.None[types.Position]()
	e.equity += pnl
	e.trades = append(e.trades, record)

	if e.recorder != nil {
		if err := e.recorder.RecordTrade(record); err != nil {
			return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to record trade", err)
		}
	}

	e.logger.Info("closed position",
		zap.String("symbol", pos.Symbol),
		zap.String("side", string(pos.Side)),
		zap.String("reason", string(reason)),
		zap.Float64("exit", exitPrice),
		zap.Float64("pnl", pnl),
		zap.Float64("equity", e.equity),
	)

	return nil
}

// Warmup replays historical bars to seed the indicators and ordering
// checks. Entries are suppressed for the whole replay, so a signal that
// completes on the last historical bar never reaches the broker.
func (e *Engine) Warmup(ctx context.Context, bars []types.MarketData) error {
	e.warmingUp = true
	defer func() { e.warmingUp = false }()

	return e.Run(ctx, bars)
}

// Run feeds a bar slice through the engine. Bars with data quality problems
// are logged and skipped; the run continues with the prior state. Context
// cancellation is honored between bars, never mid-transition. A position
// still open when the stream ends stays open.
func (e *Engine) Run(ctx context.Context, bars []types.MarketData) error {
	for _, bar := range bars {
		select {
		case <-ctx.Done():
			return errors.Wrap(errors.ErrCodeRunAborted, "run canceled", ctx.Err())
		default:
		}

		if err := e.ProcessBar(ctx, bar); err != nil {
			if errors.IsDataQuality(err) {
				continue
			}

			return err
		}
	}

	return nil
}

// Position returns the open position, or None when flat.
func (e *Engine) Position() optional.Option[types.Position] {
	return e.position
}

// Equity returns current equity: initial capital plus realized profit.
// Open positions are not marked to market.
func (e *Engine) Equity() float64 {
	return e.equity
}

// Trades returns the closed trades in close order.
func (e *Engine) Trades() []types.TradeRecord {
	out := make([]types.TradeRecord, len(e.trades))
	copy(out, e.trades)

	return out
}

// BarsProcessed returns how many bars the engine accepted.
func (e *Engine) BarsProcessed() int {
	return e.barIndex
}

// WarmupBars returns how many bars the strategy needs before its first
// possible entry.
func (e *Engine) WarmupBars() int {
	return e.evaluator.WarmupBars()
}
