package marketdata

import (
	"context"
	"iter"
	"sort"
	"time"

	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// SourceType selects a market data source.
type SourceType string

const (
	SourcePolygon SourceType = "polygon"
	SourceBinance SourceType = "binance"
	SourceCSV     SourceType = "csv"
)

// TradingHours is a venue's regular daily session, expressed as offsets
// from midnight at the venue's location. A zero Open with a 24h Close
// marks a continuous venue.
type TradingHours struct {
	Open     time.Duration
	Close    time.Duration
	Location *time.Location
}

// Contains reports whether t falls inside the session. Non-continuous
// venues are closed on weekends; holidays are not modeled.
func (h TradingHours) Contains(t time.Time) bool {
	if h.Open == 0 && h.Close == 24*time.Hour {
		return true
	}

	local := t.In(h.Location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}

	sinceMidnight := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute

	return sinceMidnight >= h.Open && sinceMidnight < h.Close
}

// Provider supplies historical bars and, for live sources, a realtime
// stream. Implementations return series already sorted, deduplicated and
// bar-validated; consumers can feed them straight into an engine.
type Provider interface {
	// Name identifies the source in logs.
	Name() string
	// FetchSeries returns the bars for symbol in [start, end] at the given
	// interval, for example "1m" or "1d".
	FetchSeries(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.MarketData, error)
	// Stream yields finalized realtime bars until the context is canceled.
	// Sources without a realtime feed yield a single error.
	Stream(ctx context.Context, symbol string, interval string) iter.Seq2[types.MarketData, error]
	// IsMarketOpen reports whether the instrument trades at t. Crypto
	// sources always return true.
	IsMarketOpen(t time.Time) bool
	// TradingHours returns the venue's regular session.
	TradingHours() TradingHours
}

// NewProvider builds a provider for the source type. apiKey is required for
// polygon and ignored elsewhere; path is the file for the csv source.
func NewProvider(source SourceType, apiKey, path string) (Provider, error) {
	switch source {
	case SourcePolygon:
		return NewPolygonSource(apiKey)
	case SourceBinance:
		return NewBinanceSource(), nil
	case SourceCSV:
		return NewCSVSource(path), nil
	default:
		return nil, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "unsupported market data source: %s", source)
	}
}

// NormalizeSeries sorts bars by time, drops exact-timestamp duplicates
// keeping the first occurrence, and rejects bars that fail validation.
// The returned series satisfies types.ValidateSeries.
func NormalizeSeries(bars []types.MarketData) ([]types.MarketData, error) {
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeSeriesEmpty, "no bars in series")
	}

	sorted := make([]types.MarketData, len(bars))
	copy(sorted, bars)

	// Stable sort keeps the first of two equal-timestamp bars in front so
	// the dedup below prefers it.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	out := sorted[:0]

	for _, bar := range sorted {
		if err := bar.Validate(); err != nil {
			return nil, err
		}

		if len(out) > 0 && !bar.Time.After(out[len(out)-1].Time) {
			continue
		}

		out = append(out, bar)
	}

	return out, nil
}
