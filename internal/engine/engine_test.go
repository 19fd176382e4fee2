package engine

import (
	"context"
	"testing"
	"time"

	"github.com/quantor-lab/quantor-trading/internal/logger"
	"github.com/quantor-lab/quantor-trading/internal/strategy"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
}

// crossoverConfig uses a 1/2 moving average pair so a single rising close
// produces an upward cross.
func crossoverConfig() strategy.Config {
	cfg := strategy.DefaultConfig(strategy.KindMACrossover, "TEST")
	cfg.ShortPeriod = 1
	cfg.LongPeriod = 2

	return cfg
}

func testBars(closes ...float64) []types.MarketData {
	bars := make([]types.MarketData, 0, len(closes))
	start := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	for i, close := range closes {
		bars = append(bars, types.MarketData{
			Symbol: "TEST",
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   close,
			High:   close,
			Low:    close,
			Close:  close,
			Volume: 1000,
		})
	}

	return bars
}

func (suite *EngineTestSuite) newEngine(cfg strategy.Config, broker Broker) *Engine {
	engine, err := NewEngine(cfg, 10000, broker, nil, suite.logger)
	suite.Require().NoError(err)

	return engine
}

func (suite *EngineTestSuite) TestEntryOnUpwardCross() {
	broker := NewRecordingBroker()
	engine := suite.newEngine(crossoverConfig(), broker)

	// Closes 10, 10 warm both averages; 12 crosses the short above the long.
	suite.Require().NoError(engine.Run(context.Background(), testBars(10, 10, 12)))

	suite.Require().True(engine.Position().IsSome())
	pos := engine.Position().Unwrap()
	suite.Equal(types.PositionSideLong, pos.Side)
	suite.InDelta(12.0, pos.EntryPrice, 1e-9)
	suite.InDelta(11.4, pos.StopPrice, 1e-9)
	suite.InDelta(13.2, pos.TargetPrice, 1e-9)

	// quantity = 10000*0.02 / 0.6, below the notional cap.
	suite.InDelta(10000*0.02/0.6, pos.Quantity, 1e-6)

	// A position left open at stream end stays open with no trade record.
	suite.Empty(engine.Trades())

	intents := broker.Intents()
	suite.Require().Len(intents, 1)
	suite.Equal(OrderSideBuy, intents[0].Side)
	suite.Equal(ReasonEntrySignal, intents[0].Reason)
}

func (suite *EngineTestSuite) TestStopLossExitsAtCloseNotStopPrice() {
	engine := suite.newEngine(crossoverConfig(), nil)

	// Entry at 12 puts the stop at 11.4; the close of 11 gaps through it.
	suite.Require().NoError(engine.Run(context.Background(), testBars(10, 10, 12, 11)))

	suite.True(engine.Position().IsNone())

	trades := engine.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonStopLoss, trades[0].ExitReason)
	suite.InDelta(11.0, trades[0].ExitPrice, 1e-9, "exit fills at the close, not the stop level")

	quantity := 10000 * 0.02 / 0.6
	suite.InDelta(-quantity, trades[0].PnL, 1e-6)
	suite.InDelta(10000-quantity, engine.Equity(), 1e-6)
}

func (suite *EngineTestSuite) TestTakeProfitExit() {
	engine := suite.newEngine(crossoverConfig(), nil)

	suite.Require().NoError(engine.Run(context.Background(), testBars(10, 10, 12, 13.5)))

	trades := engine.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonTakeProfit, trades[0].ExitReason)
	suite.InDelta(13.5, trades[0].ExitPrice, 1e-9)
	suite.Greater(trades[0].PnL, 0.0)
}

func (suite *EngineTestSuite) TestSignalReversalExit() {
	engine := suite.newEngine(crossoverConfig(), nil)

	// 11.5 stays above the 11.4 stop but crosses the short average back
	// below the long one.
	suite.Require().NoError(engine.Run(context.Background(), testBars(10, 10, 12, 11.5)))

	trades := engine.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonSignalReversal, trades[0].ExitReason)
	suite.InDelta(11.5, trades[0].ExitPrice, 1e-9)
}

func (suite *EngineTestSuite) TestTimeLimitBeatsStopLoss() {
	cfg := crossoverConfig()
	cfg.MaxHoldingBars = 1
	engine := suite.newEngine(cfg, nil)

	// The close of 11 breaches the stop on the same bar the holding limit
	// expires; the time limit wins.
	suite.Require().NoError(engine.Run(context.Background(), testBars(10, 10, 12, 12, 11)))

	trades := engine.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonTimeLimit, trades[0].ExitReason)
	suite.Equal(2, trades[0].BarsHeld)
}

func (suite *EngineTestSuite) TestTimeLimitHoldsThroughLimitBar() {
	cfg := crossoverConfig()
	cfg.MaxHoldingBars = 2
	engine := suite.newEngine(cfg, nil)

	// Entry at index 2; two more flat bars reach the holding limit without
	// exceeding it, so the position survives the stream.
	suite.Require().NoError(engine.Run(context.Background(), testBars(10, 10, 12, 12, 12)))

	suite.True(engine.Position().IsSome(), "the position closes only once the limit is exceeded")
	suite.Empty(engine.Trades())

	// One further bar pushes the holding time past the limit.
	suite.Require().NoError(engine.ProcessBar(context.Background(), testBars(10, 10, 12, 12, 12, 12)[5]))

	suite.True(engine.Position().IsNone())

	trades := engine.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonTimeLimit, trades[0].ExitReason)
	suite.Equal(3, trades[0].BarsHeld)
}

func (suite *EngineTestSuite) TestNoReentryOnExitBar() {
	cfg := crossoverConfig()
	cfg.MaxHoldingBars = 2
	broker := NewRecordingBroker()
	engine := suite.newEngine(cfg, broker)

	// The final bar both expires the holding limit and shows an upward
	// cross; the engine must close and stay flat until the next bar.
	suite.Require().NoError(engine.Run(context.Background(), testBars(10, 10, 12, 12, 12, 13)))

	suite.True(engine.Position().IsNone(), "no re-entry on the bar that closed a position")

	trades := engine.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonTimeLimit, trades[0].ExitReason)

	// One entry and one exit intent only.
	suite.Len(broker.Intents(), 2)
}

func (suite *EngineTestSuite) TestAtMostOnePosition() {
	engine := suite.newEngine(crossoverConfig(), nil)

	// Repeated upward pressure while a position is open must not stack
	// positions.
	bars := testBars(10, 10, 12, 12.5, 12.8, 13)
	for _, bar := range bars {
		suite.Require().NoError(engine.ProcessBar(context.Background(), bar))

		if engine.Position().IsSome() {
			suite.InDelta(12.0, engine.Position().Unwrap().EntryPrice, 1e-9,
				"the open position must never be replaced")
		}
	}
}

func (suite *EngineTestSuite) TestInvalidBarSkippedRunContinues() {
	engine := suite.newEngine(crossoverConfig(), nil)

	bars := testBars(10, 10, 12, 11)
	// Corrupt the third bar: high below low.
	bars[2].High = 5

	suite.Require().NoError(engine.Run(context.Background(), bars))

	// The corrupt bar is dropped; the remaining series is 10, 10, 11 with
	// a cross at the final bar.
	suite.Equal(3, engine.BarsProcessed())
	suite.Require().True(engine.Position().IsSome())
	suite.InDelta(11.0, engine.Position().Unwrap().EntryPrice, 1e-9)
}

func (suite *EngineTestSuite) TestOutOfOrderBarSkipped() {
	engine := suite.newEngine(crossoverConfig(), nil)

	bars := testBars(10, 10, 12)
	bars[2].Time = bars[1].Time // duplicate timestamp

	suite.Require().NoError(engine.Run(context.Background(), bars))

	suite.Equal(2, engine.BarsProcessed())
	suite.True(engine.Position().IsNone())
}

func (suite *EngineTestSuite) TestProcessBarReturnsDataQualityError() {
	engine := suite.newEngine(crossoverConfig(), nil)

	bad := testBars(10)[0]
	bad.Close = -1

	err := engine.ProcessBar(context.Background(), bad)
	suite.Require().Error(err)
	suite.True(engine.Position().IsNone())
	suite.Zero(engine.BarsProcessed(), "a rejected bar must not advance state")
}

func (suite *EngineTestSuite) TestCancellationStopsBetweenBars() {
	engine := suite.newEngine(crossoverConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := engine.Run(ctx, testBars(10, 10, 12))
	suite.Require().Error(err)
	suite.Zero(engine.BarsProcessed())
}

func (suite *EngineTestSuite) TestConfigErrorsAreFatal() {
	cfg := crossoverConfig()
	cfg.ShortPeriod = 5
	cfg.LongPeriod = 5

	_, err := NewEngine(cfg, 10000, nil, nil, suite.logger)
	suite.Error(err)

	_, err = NewEngine(crossoverConfig(), 0, nil, nil, suite.logger)
	suite.Error(err, "non-positive capital must be rejected")
}

func (suite *EngineTestSuite) TestDecisionsDependOnlyOnPastBars() {
	prefix := testBars(10, 10, 12, 12.5, 11.5, 10, 10, 11)

	up := testBars(13, 14)
	down := testBars(9, 8)

	for i := range up {
		shifted := prefix[len(prefix)-1].Time.Add(time.Duration(i+1) * time.Minute)
		up[i].Time = shifted
		down[i].Time = shifted
	}

	type observation struct {
		equity     float64
		trades     int
		open       bool
		entryPrice float64
	}

	// replay runs a fresh engine over prefix plus suffix and records the
	// state transition after every prefix bar.
	replay := func(suffix []types.MarketData) []observation {
		engine := suite.newEngine(crossoverConfig(), nil)
		recorded := make([]observation, 0, len(prefix))

		for i, bar := range append(append([]types.MarketData{}, prefix...), suffix...) {
			suite.Require().NoError(engine.ProcessBar(context.Background(), bar))

			if i < len(prefix) {
				obs := observation{
					equity: engine.Equity(),
					trades: len(engine.Trades()),
					open:   engine.Position().IsSome(),
				}
				if obs.open {
					obs.entryPrice = engine.Position().Unwrap().EntryPrice
				}

				recorded = append(recorded, obs)
			}
		}

		return recorded
	}

	baseline := replay(nil)
	suite.Equal(baseline, replay(up), "future bars must not change past decisions")
	suite.Equal(baseline, replay(down), "future bars must not change past decisions")
}

func (suite *EngineTestSuite) TestTrailingStopRatchets() {
	cfg := strategy.DefaultConfig(strategy.KindATRAdaptive, "TEST")
	cfg.ShortPeriod = 1
	cfg.LongPeriod = 2
	cfg.ATRPeriod = 2
	cfg.TrailingStop = true
	engine := suite.newEngine(cfg, nil)

	// Gently rising closes after entry; the trailing stop must only move up.
	bars := testBars(10, 10, 10.5, 11, 11.3, 11.5)

	var lastStop float64

	for _, bar := range bars {
		suite.Require().NoError(engine.ProcessBar(context.Background(), bar))

		if engine.Position().IsSome() {
			stop := engine.Position().Unwrap().EffectiveStop()
			if lastStop != 0 {
				suite.GreaterOrEqual(stop, lastStop, "trailing stop must never loosen")
			}

			lastStop = stop
		}
	}

	suite.True(engine.Position().IsSome(), "rising closes should keep the position open")
	suite.Greater(lastStop, 0.0)
}
