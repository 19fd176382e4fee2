package marketdata

import (
	"context"
	"iter"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// PolygonSource fetches US equity aggregates from the Polygon.io REST API.
type PolygonSource struct {
	client *polygon.Client
}

func NewPolygonSource(apiKey string) (*PolygonSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "polygon source requires an api key")
	}

	return &PolygonSource{client: polygon.New(apiKey)}, nil
}

func (s *PolygonSource) Name() string {
	return "polygon"
}

func (s *PolygonSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.MarketData, error) {
	span := Interval(interval)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: span.Multiplier(),
		Timespan:   span.Timespan(),
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	var bars []types.MarketData

	aggs := s.client.ListAggs(ctx, params)
	for aggs.Next() {
		agg := aggs.Item()
		bars = append(bars, types.MarketData{
			Symbol: symbol,
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if err := aggs.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to list aggregates for %s", symbol)
	}

	return NormalizeSeries(bars)
}

// Stream is not implemented for the REST-only source. Realtime runs use the
// Binance source; equity runs replay historical series.
func (s *PolygonSource) Stream(_ context.Context, _ string, _ string) iter.Seq2[types.MarketData, error] {
	return func(yield func(types.MarketData, error) bool) {
		yield(types.MarketData{}, errors.New(errors.ErrCodeStreamClosed, "polygon source has no realtime stream"))
	}
}

// IsMarketOpen reports whether t falls inside regular NYSE trading hours,
// 9:30 to 16:00 Eastern on weekdays. Holidays are not modeled.
func (s *PolygonSource) IsMarketOpen(t time.Time) bool {
	return s.TradingHours().Contains(t)
}

func (s *PolygonSource) TradingHours() TradingHours {
	return TradingHours{
		Open:     9*time.Hour + 30*time.Minute,
		Close:    16 * time.Hour,
		Location: easternTime(),
	}
}

func easternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}

	return loc
}
