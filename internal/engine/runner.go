package engine

import (
	"context"
	"sync"

	"github.com/quantor-lab/quantor-trading/internal/logger"
	"github.com/quantor-lab/quantor-trading/internal/strategy"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"go.uber.org/zap"
)

// RunRequest describes one instrument's backtest: its own config, capital
// and bar series. Instruments never share state.
type RunRequest struct {
	Config         strategy.Config
	InitialCapital float64
	Bars           []types.MarketData
}

// RunResult is the outcome for one instrument.
type RunResult struct {
	Symbol  string
	Stats   types.BacktestStats
	Trades  []types.TradeRecord
	Intents []OrderIntent
	Err     error
}

// Runner fans a set of instruments out over independent engines, one
// goroutine each. Cross-instrument aggregation happens only after every
// engine has finished.
type Runner struct {
	logger *logger.Logger
}

func NewRunner(logger *logger.Logger) *Runner {
	return &Runner{logger: logger}
}

// RunAll executes every request concurrently and returns results in request
// order. Per-instrument failures are reported in the result, not returned;
// one instrument failing never stops the others. Cancellation propagates to
// each engine at its next bar boundary.
func (r *Runner) RunAll(ctx context.Context, requests []RunRequest) []RunResult {
	results := make([]RunResult, len(requests))

	var wg sync.WaitGroup

	for i, req := range requests {
		wg.Add(1)

		go func(i int, req RunRequest) {
			defer wg.Done()

			results[i] = r.runOne(ctx, req)
		}(i, req)
	}

	wg.Wait()

	return results
}

func (r *Runner) runOne(ctx context.Context, req RunRequest) RunResult {
	result := RunResult{Symbol: req.Config.Symbol}

	broker := NewRecordingBroker()

	engine, err := NewEngine(req.Config, req.InitialCapital, broker, nil, r.logger.Named(req.Config.Symbol))
	if err != nil {
		result.Err = err

		return result
	}

	if err := engine.Run(ctx, req.Bars); err != nil {
		result.Err = err

		return result
	}

	result.Trades = engine.Trades()
	result.Intents = broker.Intents()
	result.Stats = ComputeStats(result.Trades, req.Config.Symbol, string(req.Config.Kind), req.InitialCapital)

	if engine.Position().IsSome() {
		pos := engine.Position().Unwrap()
		r.logger.Info("position still open at end of stream",
			zap.String("symbol", pos.Symbol),
			zap.String("side", string(pos.Side)),
			zap.Float64("entry", pos.EntryPrice),
		)
	}

	return result
}
