package engine

import (
	"context"
	"time"

	"github.com/quantor-lab/quantor-trading/internal/logger"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
	"github.com/quantor-lab/quantor-trading/pkg/marketdata"
	"go.uber.org/zap"
)

// LiveRunner drives one engine from a realtime bar stream instead of a
// fixed slice. Before streaming it replays recent history so the indicators
// are warm when the first live bar arrives.
type LiveRunner struct {
	engine   *Engine
	provider marketdata.Provider
	symbol   string
	interval marketdata.Interval
	logger   *logger.Logger
}

func NewLiveRunner(engine *Engine, provider marketdata.Provider, symbol string, interval marketdata.Interval, log *logger.Logger) *LiveRunner {
	return &LiveRunner{
		engine:   engine,
		provider: provider,
		symbol:   symbol,
		interval: interval,
		logger:   log,
	}
}

// Run warms up from history, then consumes the stream until the context is
// canceled. Bars arriving while the market is closed are dropped. The bar
// in flight always completes before cancellation takes effect.
func (r *LiveRunner) Run(ctx context.Context) error {
	if err := r.warmup(ctx); err != nil {
		return err
	}

	for bar, err := range r.provider.Stream(ctx, r.symbol, string(r.interval)) {
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeStreamClosed) {
				r.logger.Warn("stream error", zap.Error(err))

				continue
			}

			return err
		}

		if !r.provider.IsMarketOpen(bar.Time) {
			continue
		}

		if err := r.engine.ProcessBar(ctx, bar); err != nil {
			if errors.IsDataQuality(err) {
				continue
			}

			return err
		}
	}

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(errors.ErrCodeRunAborted, "live run stopped", err)
	}

	return nil
}

// warmup replays enough history to satisfy the strategy's warm-up window.
// The replay seeds indicators only; a signal completing on the last
// historical bar must not place an order at a stale close.
func (r *LiveRunner) warmup(ctx context.Context) error {
	warmupBars := r.engine.WarmupBars()
	if warmupBars == 0 {
		return nil
	}

	// Fetch extra bars to cover market closures inside the lookback window.
	lookback := time.Duration(warmupBars*4) * r.interval.Duration()
	end := time.Now()

	bars, err := r.provider.FetchSeries(ctx, r.symbol, end.Add(-lookback), end, string(r.interval))
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeSeriesEmpty) {
			r.logger.Warn("no history available for warmup", zap.String("symbol", r.symbol))

			return nil
		}

		return err
	}

	if len(bars) > warmupBars {
		bars = bars[len(bars)-warmupBars:]
	}

	r.logger.Info("warming up from history",
		zap.String("symbol", r.symbol),
		zap.Int("bars", len(bars)),
	)

	return r.engine.Warmup(ctx, bars)
}
