package types

import (
	"os"
	"time"

	"github.com/quantor-lab/quantor-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

type TradeResult struct {
	// Count of all closed trades.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of trades with positive pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of trades with negative pnl.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Win rate over closed trades.
	WinRate float64 `yaml:"win_rate"`
	// Maximum drawdown of the realized equity curve, as a fraction.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// Gross profit divided by gross loss. Zero when no losing trades exist
	// and no winning trades exist; +Inf is reported as 0 with all-winning runs
	// flagged by NumberOfLosingTrades == 0.
	ProfitFactor float64 `yaml:"profit_factor"`
}

type TradePnl struct {
	// Realized PnL summed over closed trades.
	RealizedPnL float64 `yaml:"realized_pnl"`
	// Most negative single-trade pnl.
	MaximumLoss float64 `yaml:"maximum_loss"`
	// Most positive single-trade pnl.
	MaximumProfit float64 `yaml:"maximum_profit"`
}

type TradeHoldingTime struct {
	// Minimum bars held per trade.
	Min int `yaml:"min"`
	// Maximum bars held per trade.
	Max int `yaml:"max"`
	// Average bars held per trade. Fractional, unlike the bounds.
	Avg float64 `yaml:"avg"`
}

// BacktestStats is the summary report for one backtest run, aggregated from
// the TradeRecord log.
type BacktestStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol of the traded instrument.
	Symbol string `yaml:"symbol"`
	// StrategyName that produced the trades.
	StrategyName string `yaml:"strategy_name"`
	// InitialCapital the run started with.
	InitialCapital float64 `yaml:"initial_capital"`
	// TotalReturn over initial capital, as a fraction.
	TotalReturn float64 `yaml:"total_return"`
	// SharpeRatio over per-trade returns. Zero when fewer than two trades.
	SharpeRatio float64 `yaml:"sharpe_ratio"`

	TradeResult      TradeResult      `yaml:"trade_result"`
	TradePnl         TradePnl         `yaml:"trade_pnl"`
	TradeHoldingTime TradeHoldingTime `yaml:"trade_holding_time"`
}

// WriteBacktestStats serializes stats to a yaml file.
func WriteBacktestStats(path string, stats []BacktestStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStatsWriteFailed, "failed to marshal backtest stats", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeStatsWriteFailed, "failed to write backtest stats", err)
	}

	return nil
}
