package marketdata

import (
	"context"
	"iter"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
)

// Binance caps klines responses at 500 rows per request.
const binancePageSize = 500

// BinanceWsKline is the candle payload of a websocket kline event. Prices
// arrive as strings, matching the exchange wire format.
type BinanceWsKline struct {
	StartTime int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	IsFinal   bool
}

// BinanceWsKlineEvent is a single websocket kline event.
type BinanceWsKlineEvent struct {
	Symbol string
	Time   int64
	Kline  BinanceWsKline
}

type (
	WsKlineHandler func(event *BinanceWsKlineEvent)
	WsErrorHandler func(err error)
)

// BinanceWebSocketService abstracts the websocket entry point so streams
// can be tested without a network connection.
type BinanceWebSocketService interface {
	WsKlineServe(symbol string, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (doneC chan struct{}, stopC chan struct{}, err error)
}

type realBinanceWebSocketService struct{}

func (realBinanceWebSocketService) WsKlineServe(symbol string, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsKlineServe(symbol, interval, func(event *binance.WsKlineEvent) {
		handler(&BinanceWsKlineEvent{
			Symbol: event.Symbol,
			Time:   event.Time,
			Kline: BinanceWsKline{
				StartTime: event.Kline.StartTime,
				Open:      event.Kline.Open,
				High:      event.Kline.High,
				Low:       event.Kline.Low,
				Close:     event.Kline.Close,
				Volume:    event.Kline.Volume,
				IsFinal:   event.Kline.IsFinal,
			},
		})
	}, binance.ErrHandler(errHandler))
}

// BinanceSource fetches crypto klines from the Binance public API. Public
// market data needs no credentials.
type BinanceSource struct {
	client *binance.Client
	ws     BinanceWebSocketService
}

func NewBinanceSource() *BinanceSource {
	return &BinanceSource{
		client: binance.NewClient("", ""),
		ws:     realBinanceWebSocketService{},
	}
}

// NewBinanceSourceWithWebSocket injects a websocket service. Used in tests.
func NewBinanceSourceWithWebSocket(client *binance.Client, ws BinanceWebSocketService) *BinanceSource {
	return &BinanceSource{client: client, ws: ws}
}

func (s *BinanceSource) Name() string {
	return "binance"
}

// FetchSeries pages through klines in request-size chunks until the end
// time is covered.
func (s *BinanceSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time, interval string) ([]types.MarketData, error) {
	var bars []types.MarketData

	currentStart := start.UnixMilli()
	endMillis := end.UnixMilli()

	for {
		klines, err := s.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
		}

		for _, kline := range klines {
			bar, err := klineToMarketData(symbol, kline)
			if err != nil {
				return nil, err
			}

			bars = append(bars, bar)
		}

		if len(klines) < binancePageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return NormalizeSeries(bars)
}

// Stream yields finalized candles from the kline websocket until the
// context is canceled or the connection closes.
func (s *BinanceSource) Stream(ctx context.Context, symbol string, interval string) iter.Seq2[types.MarketData, error] {
	return func(yield func(types.MarketData, error) bool) {
		dataCh := make(chan types.MarketData)
		errCh := make(chan error, 1)
		consumed := make(chan struct{})
		defer close(consumed)

		handler := func(event *BinanceWsKlineEvent) {
			if !event.Kline.IsFinal {
				return
			}

			bar, err := wsKlineToMarketData(event)
			if err != nil {
				select {
				case errCh <- err:
				default:
				}

				return
			}

			select {
			case dataCh <- bar:
			case <-consumed:
			case <-ctx.Done():
			}
		}

		errHandler := func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}

		doneC, stopC, err := s.ws.WsKlineServe(symbol, interval, handler, errHandler)
		if err != nil {
			yield(types.MarketData{}, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to open kline stream", err))

			return
		}
		defer close(stopC)

		for {
			select {
			case <-ctx.Done():
				return
			case <-doneC:
				return
			case bar := <-dataCh:
				if !yield(bar, nil) {
					return
				}
			case err := <-errCh:
				if !yield(types.MarketData{}, errors.Wrap(errors.ErrCodeStreamClosed, "kline stream error", err)) {
					return
				}
			}
		}
	}
}

// IsMarketOpen always reports true; crypto markets never close.
func (s *BinanceSource) IsMarketOpen(_ time.Time) bool {
	return true
}

func (s *BinanceSource) TradingHours() TradingHours {
	return TradingHours{Open: 0, Close: 24 * time.Hour, Location: time.UTC}
}

func klineToMarketData(symbol string, kline *binance.Kline) (types.MarketData, error) {
	open, err1 := strconv.ParseFloat(kline.Open, 64)
	high, err2 := strconv.ParseFloat(kline.High, 64)
	low, err3 := strconv.ParseFloat(kline.Low, 64)
	closePrice, err4 := strconv.ParseFloat(kline.Close, 64)
	volume, err5 := strconv.ParseFloat(kline.Volume, 64)

	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return types.MarketData{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "malformed kline for %s", symbol)
		}
	}

	return types.MarketData{
		Symbol: symbol,
		Time:   time.UnixMilli(kline.OpenTime).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

func wsKlineToMarketData(event *BinanceWsKlineEvent) (types.MarketData, error) {
	return klineToMarketData(event.Symbol, &binance.Kline{
		OpenTime: event.Kline.StartTime,
		Open:     event.Kline.Open,
		High:     event.Kline.High,
		Low:      event.Kline.Low,
		Close:    event.Kline.Close,
		Volume:   event.Kline.Volume,
	})
}
