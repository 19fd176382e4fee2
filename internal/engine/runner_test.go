package engine

import (
	"context"
	"testing"

	"github.com/quantor-lab/quantor-trading/internal/logger"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/stretchr/testify/suite"
)

type RunnerTestSuite struct {
	suite.Suite
	runner *Runner
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

func (suite *RunnerTestSuite) SetupTest() {
	suite.runner = NewRunner(logger.NewNopLogger())
}

func (suite *RunnerTestSuite) TestInstrumentsRunIndependently() {
	cfgA := crossoverConfig()
	cfgA.Symbol = "AAA"

	cfgB := crossoverConfig()
	cfgB.Symbol = "BBB"

	requests := []RunRequest{
		{Config: cfgA, InitialCapital: 10000, Bars: symbolBars("AAA", 10, 10, 12, 13.5)},
		{Config: cfgB, InitialCapital: 10000, Bars: symbolBars("BBB", 10, 10, 12, 11)},
	}

	results := suite.runner.RunAll(context.Background(), requests)
	suite.Require().Len(results, 2)

	suite.Equal("AAA", results[0].Symbol)
	suite.Require().NoError(results[0].Err)
	suite.Require().Len(results[0].Trades, 1)
	suite.Greater(results[0].Trades[0].PnL, 0.0)

	suite.Equal("BBB", results[1].Symbol)
	suite.Require().NoError(results[1].Err)
	suite.Require().Len(results[1].Trades, 1)
	suite.Less(results[1].Trades[0].PnL, 0.0)
}

func (suite *RunnerTestSuite) TestFailureDoesNotStopOthers() {
	bad := crossoverConfig()
	bad.Symbol = "BAD"
	bad.ShortPeriod = 9
	bad.LongPeriod = 9 // invalid: must be strictly increasing

	good := crossoverConfig()
	good.Symbol = "GOOD"

	requests := []RunRequest{
		{Config: bad, InitialCapital: 10000, Bars: symbolBars("BAD", 10, 11)},
		{Config: good, InitialCapital: 10000, Bars: symbolBars("GOOD", 10, 10, 12, 13.5)},
	}

	results := suite.runner.RunAll(context.Background(), requests)
	suite.Require().Len(results, 2)

	suite.Error(results[0].Err)
	suite.NoError(results[1].Err)
	suite.Len(results[1].Trades, 1)
}

func (suite *RunnerTestSuite) TestStatsComputedPerInstrument() {
	cfg := crossoverConfig()
	cfg.Symbol = "AAA"

	results := suite.runner.RunAll(context.Background(), []RunRequest{
		{Config: cfg, InitialCapital: 10000, Bars: symbolBars("AAA", 10, 10, 12, 13.5)},
	})

	suite.Require().Len(results, 1)
	suite.Equal("AAA", results[0].Stats.Symbol)
	suite.Equal(1, results[0].Stats.TradeResult.NumberOfTrades)
	suite.Greater(results[0].Stats.TotalReturn, 0.0)
	suite.NotEmpty(results[0].Intents)
}

func symbolBars(symbol string, closes ...float64) []types.MarketData {
	bars := testBars(closes...)
	for i := range bars {
		bars[i].Symbol = symbol
	}

	return bars
}
