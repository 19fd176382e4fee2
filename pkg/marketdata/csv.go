package marketdata

import (
	"context"
	"iter"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// csvBar is the on-disk row format. Timestamps are RFC 3339 so files can be
// produced by hand or exported from the trade log tooling.
type csvBar struct {
	Symbol string  `csv:"symbol"`
	Time   csvTime `csv:"time"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

type csvTime struct {
	time.Time
}

func (t *csvTime) UnmarshalCSV(field string) error {
	parsed, err := time.Parse(time.RFC3339, field)
	if err != nil {
		return err
	}

	t.Time = parsed

	return nil
}

func (t csvTime) MarshalCSV() (string, error) {
	return t.Format(time.RFC3339), nil
}

// CSVSource reads bars from a local CSV file. It is the offline counterpart
// of the API-backed sources and has no realtime stream.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string {
	return "csv"
}

// FetchSeries loads the file, keeps bars for symbol within [start, end],
// and normalizes the result. A zero start or end leaves that bound open.
func (s *CSVSource) FetchSeries(_ context.Context, symbol string, start, end time.Time, _ string) ([]types.MarketData, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to open %s", s.path)
	}
	defer file.Close()

	var rows []csvBar
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to parse %s", s.path)
	}

	var bars []types.MarketData

	for _, row := range rows {
		if symbol != "" && row.Symbol != symbol {
			continue
		}

		if !start.IsZero() && row.Time.Before(start) {
			continue
		}

		if !end.IsZero() && row.Time.After(end) {
			continue
		}

		bars = append(bars, types.MarketData{
			Symbol: row.Symbol,
			Time:   row.Time.Time,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}

	return NormalizeSeries(bars)
}

// Stream yields a single error: files have no realtime feed.
func (s *CSVSource) Stream(_ context.Context, _ string, _ string) iter.Seq2[types.MarketData, error] {
	return func(yield func(types.MarketData, error) bool) {
		yield(types.MarketData{}, errors.New(errors.ErrCodeStreamClosed, "csv source has no realtime stream"))
	}
}

func (s *CSVSource) IsMarketOpen(_ time.Time) bool {
	return true
}

func (s *CSVSource) TradingHours() TradingHours {
	return TradingHours{Open: 0, Close: 24 * time.Hour, Location: time.UTC}
}

// WriteCSV writes bars to path in the same row format FetchSeries reads.
func WriteCSV(path string, bars []types.MarketData) error {
	rows := make([]csvBar, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, csvBar{
			Symbol: bar.Symbol,
			Time:   csvTime{bar.Time},
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to write %s", path)
	}

	return nil
}
