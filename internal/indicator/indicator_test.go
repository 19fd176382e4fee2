package indicator

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

// barsFromCloses builds a flat-range bar series from close prices.
func barsFromCloses(closes ...float64) []types.MarketData {
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

func (suite *IndicatorTestSuite) TestSMAWarmup() {
	sma := NewSMA("short_ma", 3)

	bars := barsFromCloses(10, 11, 12, 13)

	sma.Update(bars[0])
	suite.True(sma.Value().IsNone(), "one bar is not enough for a 3 period SMA")

	sma.Update(bars[1])
	suite.True(sma.Value().IsNone(), "two bars are not enough for a 3 period SMA")

	sma.Update(bars[2])
	suite.Require().True(sma.Value().IsSome())
	suite.InDelta(11.0, sma.Value().Unwrap(), 1e-9)

	sma.Update(bars[3])
	suite.InDelta(12.0, sma.Value().Unwrap(), 1e-9)
}

func (suite *IndicatorTestSuite) TestSMASlidingWindow() {
	sma := NewSMA("short_ma", 2)

	for _, bar := range barsFromCloses(1, 2, 100) {
		sma.Update(bar)
	}

	suite.InDelta(51.0, sma.Value().Unwrap(), 1e-9, "window must drop the oldest close")
}

func (suite *IndicatorTestSuite) TestEMAWarmupAndSmoothing() {
	ema := NewEMA("fast_ema", 3)

	bars := barsFromCloses(10, 12, 14, 16)

	ema.Update(bars[0])
	suite.True(ema.Value().IsNone())

	ema.Update(bars[1])
	suite.True(ema.Value().IsNone())

	ema.Update(bars[2])
	suite.Require().True(ema.Value().IsSome())

	// Seeded with the first close, k = 2/(3+1) = 0.5:
	// 10 -> 11 -> 12.5
	suite.InDelta(12.5, ema.Value().Unwrap(), 1e-9)

	ema.Update(bars[3])
	suite.InDelta(14.25, ema.Value().Unwrap(), 1e-9)
}

func (suite *IndicatorTestSuite) TestATRWarmupAndWilderSmoothing() {
	atr := NewATR("atr", 2)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.MarketData{
		{Symbol: "TEST", Time: start, Open: 10, High: 11, Low: 9, Close: 10, Volume: 1},
		{Symbol: "TEST", Time: start.Add(time.Minute), Open: 10, High: 12, Low: 10, Close: 11, Volume: 1},
		{Symbol: "TEST", Time: start.Add(2 * time.Minute), Open: 11, High: 13, Low: 11, Close: 12, Volume: 1},
		{Symbol: "TEST", Time: start.Add(3 * time.Minute), Open: 12, High: 12.5, Low: 11.5, Close: 12, Volume: 1},
	}

	atr.Update(bars[0])
	suite.True(atr.Value().IsNone(), "first bar has no true range")

	atr.Update(bars[1])
	suite.True(atr.Value().IsNone(), "one true range is not enough for period 2")

	atr.Update(bars[2])
	suite.Require().True(atr.Value().IsSome())

	// TR2 = max(12-10, |12-10|, |10-10|) = 2, TR3 = max(2, 2, 0) = 2.
	suite.InDelta(2.0, atr.Value().Unwrap(), 1e-9)

	atr.Update(bars[3])

	// TR4 = max(1, 0.5, 0.5) = 1; Wilder: (2*1 + 1)/2 = 1.5.
	suite.InDelta(1.5, atr.Value().Unwrap(), 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIWarmup() {
	rsi := NewRSI("rsi", 3)

	bars := barsFromCloses(10, 11, 10.5, 11.5, 12)

	for i := 0; i < 3; i++ {
		rsi.Update(bars[i])
		suite.True(rsi.Value().IsNone(), "rsi needs period deltas, so period+1 bars")
	}

	rsi.Update(bars[3])
	suite.True(rsi.Value().IsSome())

	value := rsi.Value().Unwrap()
	suite.Greater(value, 0.0)
	suite.Less(value, 100.0)
}

func (suite *IndicatorTestSuite) TestRSIAllGainsIsHundred() {
	rsi := NewRSI("rsi", 3)

	// Monotonically rising closes: average loss stays zero.
	for _, bar := range barsFromCloses(10, 11, 12, 13, 14, 15) {
		rsi.Update(bar)
	}

	suite.Require().True(rsi.Value().IsSome())
	suite.InDelta(100.0, rsi.Value().Unwrap(), 1e-9)
}

func (suite *IndicatorTestSuite) TestMACDLinesAndHistogram() {
	macd := NewMACD("macd", 2, 4, 2)

	bars := barsFromCloses(10, 11, 12, 13, 14, 15, 16)

	for i := 0; i < 3; i++ {
		macd.Update(bars[i])
	}

	suite.True(macd.Value().IsNone(), "macd line needs the slow ema ready")

	for i := 3; i < 7; i++ {
		macd.Update(bars[i])
	}

	suite.Require().True(macd.Value().IsSome())
	suite.Require().True(macd.Signal().IsSome())
	suite.Require().True(macd.Histogram().IsSome())

	// Rising closes keep the fast EMA above the slow one.
	suite.Greater(macd.Value().Unwrap(), 0.0)
	suite.InDelta(
		macd.Value().Unwrap()-macd.Signal().Unwrap(),
		macd.Histogram().Unwrap(),
		1e-9,
	)
}

func (suite *IndicatorTestSuite) TestVWAPTrailingWindow() {
	vwap := NewVWAP("vwap", 2, VWAPModeTrailing)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.MarketData{
		{Symbol: "TEST", Time: start, Open: 10, High: 12, Low: 8, Close: 10, Volume: 100},
		{Symbol: "TEST", Time: start.Add(time.Minute), Open: 20, High: 24, Low: 16, Close: 20, Volume: 300},
		{Symbol: "TEST", Time: start.Add(2 * time.Minute), Open: 30, High: 36, Low: 24, Close: 30, Volume: 100},
	}

	vwap.Update(bars[0])
	suite.True(vwap.Value().IsNone(), "trailing vwap needs period bars")

	vwap.Update(bars[1])
	suite.Require().True(vwap.Value().IsSome())

	// Typical prices 10 and 20 weighted 100:300.
	suite.InDelta(17.5, vwap.Value().Unwrap(), 1e-9)

	vwap.Update(bars[2])

	// Window of 2 drops the first bar: (20*300 + 30*100) / 400.
	suite.InDelta(22.5, vwap.Value().Unwrap(), 1e-9)
}

func (suite *IndicatorTestSuite) TestVWAPZeroVolume() {
	vwap := NewVWAP("vwap", 0, VWAPModeCumulative)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vwap.Update(types.MarketData{Symbol: "TEST", Time: start, Open: 10, High: 10, Low: 10, Close: 10, Volume: 0})

	suite.True(vwap.Value().IsNone(), "zero cumulative volume has no vwap")
}

func (suite *IndicatorTestSuite) TestOBVAccumulation() {
	obv := NewOBV("obv")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.MarketData{
		{Symbol: "TEST", Time: start, Open: 10, High: 10, Low: 10, Close: 10, Volume: 100},
		{Symbol: "TEST", Time: start.Add(time.Minute), Open: 11, High: 11, Low: 11, Close: 11, Volume: 50},
		{Symbol: "TEST", Time: start.Add(2 * time.Minute), Open: 10, High: 10, Low: 10, Close: 10, Volume: 30},
		{Symbol: "TEST", Time: start.Add(3 * time.Minute), Open: 10, High: 10, Low: 10, Close: 10, Volume: 99},
	}

	obv.Update(bars[0])
	suite.InDelta(100.0, obv.Value().Unwrap(), 1e-9)

	obv.Update(bars[1])
	suite.InDelta(150.0, obv.Value().Unwrap(), 1e-9)

	obv.Update(bars[2])
	suite.InDelta(120.0, obv.Value().Unwrap(), 1e-9)

	// Unchanged close leaves obv unchanged.
	obv.Update(bars[3])
	suite.InDelta(120.0, obv.Value().Unwrap(), 1e-9)
}

func (suite *IndicatorTestSuite) TestValuesDependOnlyOnPastBars() {
	prefix := barsFromCloses(10, 11, 12, 11.5, 12.5, 13)

	// Two different continuations of the same prefix, timestamped past its
	// end so either series stays strictly ordered.
	up := barsFromCloses(14, 15)
	down := barsFromCloses(9, 8)

	for i := range up {
		shifted := prefix[len(prefix)-1].Time.Add(time.Duration(i+1) * time.Minute)
		up[i].Time = shifted
		down[i].Time = shifted
	}

	// replay runs fresh indicators over prefix plus suffix and records every
	// value observed while still inside the prefix.
	replay := func(suffix []types.MarketData) []optional.Option[float64] {
		ema := NewEMA("fast_ema", 3)
		rsi := NewRSI("rsi", 3)
		obv := NewOBV("obv")

		recorded := make([]optional.Option[float64], 0, 3*len(prefix))

		for i, bar := range append(append([]types.MarketData{}, prefix...), suffix...) {
			ema.Update(bar)
			rsi.Update(bar)
			obv.Update(bar)

			if i < len(prefix) {
				recorded = append(recorded, ema.Value(), rsi.Value(), obv.Value())
			}
		}

		return recorded
	}

	baseline := replay(nil)
	suite.Equal(baseline, replay(up), "future bars must not change past values")
	suite.Equal(baseline, replay(down), "future bars must not change past values")
}

func (suite *IndicatorTestSuite) TestResetClearsState() {
	sma := NewSMA("short_ma", 2)

	for _, bar := range barsFromCloses(10, 11) {
		sma.Update(bar)
	}

	suite.True(sma.Value().IsSome())

	sma.Reset()
	suite.True(sma.Value().IsNone())
}

type RegistryTestSuite struct {
	suite.Suite
	registry Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewRegistry()
}

func (suite *RegistryTestSuite) TestRegisterAndGet() {
	sma := NewSMA("short_ma", 3)
	suite.Require().NoError(suite.registry.Register(sma))

	got, err := suite.registry.Get("short_ma")
	suite.Require().NoError(err)
	suite.Equal(sma, got)
}

func (suite *RegistryTestSuite) TestRegisterDuplicateFails() {
	suite.Require().NoError(suite.registry.Register(NewSMA("short_ma", 3)))
	suite.Error(suite.registry.Register(NewSMA("short_ma", 5)))
}

func (suite *RegistryTestSuite) TestGetMissingFails() {
	_, err := suite.registry.Get("missing")
	suite.Error(err)
}

func (suite *RegistryTestSuite) TestUpdateAllPreservesRegistrationOrder() {
	short := NewSMA("short_ma", 1)
	long := NewSMA("long_ma", 2)

	suite.Require().NoError(suite.registry.Register(short))
	suite.Require().NoError(suite.registry.Register(long))

	for _, bar := range barsFromCloses(10, 20) {
		suite.registry.UpdateAll(bar)
	}

	suite.InDelta(20.0, short.Value().Unwrap(), 1e-9)
	suite.InDelta(15.0, long.Value().Unwrap(), 1e-9)
	suite.Equal([]string{"short_ma", "long_ma"}, suite.registry.List())
}

func (suite *RegistryTestSuite) TestResetAll() {
	sma := NewSMA("short_ma", 1)
	suite.Require().NoError(suite.registry.Register(sma))

	suite.registry.UpdateAll(barsFromCloses(10)[0])
	suite.True(sma.Value().IsSome())

	suite.registry.ResetAll()
	suite.True(sma.Value().IsNone())
}
