package types

import (
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type TypesTestSuite struct {
	suite.Suite
}

func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}

func validBar(ts time.Time) MarketData {
	return MarketData{
		Symbol: "AAPL",
		Time:   ts,
		Open:   100, High: 102, Low: 99, Close: 101,
		Volume: 1000,
	}
}

func (suite *TypesTestSuite) TestValidateAcceptsWellFormedBar() {
	suite.NoError(validBar(time.Now()).Validate())
}

func (suite *TypesTestSuite) TestValidateRejectsBadPrices() {
	cases := []func(*MarketData){
		func(m *MarketData) { m.Close = 0 },
		func(m *MarketData) { m.Open = -1 },
		func(m *MarketData) { m.High = math.NaN() },
		func(m *MarketData) { m.Low = math.Inf(1) },
	}

	for _, mutate := range cases {
		bar := validBar(time.Now())
		mutate(&bar)

		err := bar.Validate()
		suite.Require().Error(err)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidBar))
	}
}

func (suite *TypesTestSuite) TestValidateRejectsOHLCViolations() {
	bar := validBar(time.Now())
	bar.High = 100.5 // below close

	err := bar.Validate()
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBar))

	bar = validBar(time.Now())
	bar.Low = 100.5 // above open

	suite.Error(bar.Validate())
}

func (suite *TypesTestSuite) TestValidateRejectsNegativeVolume() {
	bar := validBar(time.Now())
	bar.Volume = -1

	suite.Error(bar.Validate())
}

func (suite *TypesTestSuite) TestValidateSeries() {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	ordered := []MarketData{
		validBar(base),
		validBar(base.Add(time.Minute)),
	}
	suite.NoError(ValidateSeries(ordered))

	duplicate := []MarketData{
		validBar(base),
		validBar(base),
	}
	err := ValidateSeries(duplicate)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeOutOfOrderBar))
}

func (suite *TypesTestSuite) TestTypicalPrice() {
	bar := validBar(time.Now())
	suite.InDelta((102.0+99.0+101.0)/3, bar.TypicalPrice(), 1e-9)
}

func (suite *TypesTestSuite) TestCalculatePnL() {
	suite.InDelta(50, CalculatePnL(PositionSideLong, 100, 105, 10), 1e-9)
	suite.InDelta(-50, CalculatePnL(PositionSideLong, 100, 95, 10), 1e-9)
	suite.InDelta(50, CalculatePnL(PositionSideShort, 100, 95, 10), 1e-9)
	suite.InDelta(-50, CalculatePnL(PositionSideShort, 100, 105, 10), 1e-9)
}

func (suite *TypesTestSuite) TestEffectiveStopPrefersTrailing() {
	pos := Position{
		Side:         PositionSideLong,
		StopPrice:    95,
		TrailingStop: optional.None[float64](),
	}
	suite.InDelta(95, pos.EffectiveStop(), 1e-9)

	pos.TrailingStop = optional.Some(98.0)
	suite.InDelta(98, pos.EffectiveStop(), 1e-9)
}

func (suite *TypesTestSuite) TestBarsHeld() {
	pos := Position{EntryBar: 3}
	suite.Equal(0, pos.BarsHeld(3))
	suite.Equal(4, pos.BarsHeld(7))
}
