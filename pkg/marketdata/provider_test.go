package marketdata

import (
	"testing"
	"time"

	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ProviderTestSuite struct {
	suite.Suite
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

func seriesBar(ts time.Time, close float64) types.MarketData {
	return types.MarketData{
		Symbol: "AAPL",
		Time:   ts,
		Open:   close, High: close, Low: close, Close: close,
		Volume: 100,
	}
}

func (suite *ProviderTestSuite) TestNormalizeSeriesSorts() {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	series := []types.MarketData{
		seriesBar(base.Add(2*time.Minute), 3),
		seriesBar(base, 1),
		seriesBar(base.Add(time.Minute), 2),
	}

	normalized, err := NormalizeSeries(series)
	suite.Require().NoError(err)
	suite.Require().Len(normalized, 3)
	suite.InDelta(1, normalized[0].Close, 1e-9)
	suite.InDelta(3, normalized[2].Close, 1e-9)
	suite.NoError(types.ValidateSeries(normalized))
}

func (suite *ProviderTestSuite) TestNormalizeSeriesDedupKeepsFirst() {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	series := []types.MarketData{
		seriesBar(base, 1),
		seriesBar(base, 99),
		seriesBar(base.Add(time.Minute), 2),
	}

	normalized, err := NormalizeSeries(series)
	suite.Require().NoError(err)
	suite.Require().Len(normalized, 2)
	suite.InDelta(1, normalized[0].Close, 1e-9, "first bar at a timestamp wins")
}

func (suite *ProviderTestSuite) TestNormalizeSeriesDoesNotMutateInput() {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	series := []types.MarketData{
		seriesBar(base.Add(time.Minute), 2),
		seriesBar(base, 1),
	}

	_, err := NormalizeSeries(series)
	suite.Require().NoError(err)
	suite.InDelta(2, series[0].Close, 1e-9, "caller's slice order is preserved")
}

func (suite *ProviderTestSuite) TestNormalizeSeriesRejectsInvalidBar() {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	corrupt := seriesBar(base, 10)
	corrupt.High = 5

	_, err := NormalizeSeries([]types.MarketData{corrupt})
	suite.Require().Error(err)
	suite.True(errors.IsDataQuality(err))
}

func (suite *ProviderTestSuite) TestNormalizeSeriesEmpty() {
	_, err := NormalizeSeries(nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSeriesEmpty))
}

func (suite *ProviderTestSuite) TestNewProvider() {
	provider, err := NewProvider(SourceCSV, "", "bars.csv")
	suite.Require().NoError(err)
	suite.Equal("csv", provider.Name())

	provider, err = NewProvider(SourceBinance, "", "")
	suite.Require().NoError(err)
	suite.Equal("binance", provider.Name())

	provider, err = NewProvider(SourcePolygon, "test-key", "")
	suite.Require().NoError(err)
	suite.Equal("polygon", provider.Name())
}

func (suite *ProviderTestSuite) TestNewProviderPolygonRequiresKey() {
	_, err := NewProvider(SourcePolygon, "", "")
	suite.Require().Error(err)
}

func (suite *ProviderTestSuite) TestNewProviderUnknownSource() {
	_, err := NewProvider(SourceType("carrier-pigeon"), "", "")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}

func (suite *ProviderTestSuite) TestTradingHoursContinuousVenue() {
	hours := NewBinanceSource().TradingHours()

	saturdayNight := time.Date(2024, 1, 6, 3, 0, 0, 0, time.UTC)
	suite.True(hours.Contains(saturdayNight))
}

func (suite *ProviderTestSuite) TestTradingHoursSessionVenue() {
	source, err := NewPolygonSource("test-key")
	suite.Require().NoError(err)

	hours := source.TradingHours()

	// 2024-01-03 is a Wednesday.
	midSession := time.Date(2024, 1, 3, 12, 0, 0, 0, hours.Location)
	beforeOpen := time.Date(2024, 1, 3, 9, 29, 0, 0, hours.Location)
	atOpen := time.Date(2024, 1, 3, 9, 30, 0, 0, hours.Location)
	atClose := time.Date(2024, 1, 3, 16, 0, 0, 0, hours.Location)
	saturday := time.Date(2024, 1, 6, 12, 0, 0, 0, hours.Location)

	suite.True(hours.Contains(midSession))
	suite.False(hours.Contains(beforeOpen))
	suite.True(hours.Contains(atOpen))
	suite.False(hours.Contains(atClose))
	suite.False(hours.Contains(saturday))

	suite.True(source.IsMarketOpen(midSession))
	suite.False(source.IsMarketOpen(saturday))
}

type IntervalTestSuite struct {
	suite.Suite
}

func TestIntervalSuite(t *testing.T) {
	suite.Run(t, new(IntervalTestSuite))
}

func (suite *IntervalTestSuite) TestDuration() {
	suite.Equal(time.Minute, IntervalOneMinute.Duration())
	suite.Equal(15*time.Minute, IntervalFifteenMinutes.Duration())
	suite.Equal(4*time.Hour, IntervalFourHours.Duration())
	suite.Equal(24*time.Hour, IntervalOneDay.Duration())
}

func (suite *IntervalTestSuite) TestMultiplier() {
	suite.Equal(5, IntervalFiveMinutes.Multiplier())
	suite.Equal(4, IntervalFourHours.Multiplier())
	suite.Equal(1, IntervalOneWeek.Multiplier())
}
