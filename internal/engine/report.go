package engine

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/shopspring/decimal"
)

// ComputeStats aggregates a trade log into the summary report. Trades must
// be ordered by exit time; the engine emits them that way.
func ComputeStats(trades []types.TradeRecord, symbol, strategyName string, initialCapital float64) types.BacktestStats {
	stats := types.BacktestStats{
		ID:             uuid.New().String(),
		Timestamp:      time.Now(),
		Symbol:         symbol,
		StrategyName:   strategyName,
		InitialCapital: initialCapital,
	}

	if len(trades) == 0 {
		return stats
	}

	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	totalPnl := decimal.Zero

	maxLoss := math.Inf(1)
	maxProfit := math.Inf(-1)

	minHeld := trades[0].BarsHeld
	maxHeld := trades[0].BarsHeld
	sumHeld := 0

	// Realized equity curve for drawdown. Open positions are not marked.
	equity := decimal.NewFromFloat(initialCapital)
	peak := equity
	maxDrawdown := decimal.Zero

	var returns []float64

	for _, trade := range trades {
		pnl := decimal.NewFromFloat(trade.PnL)
		totalPnl = totalPnl.Add(pnl)

		switch {
		case trade.PnL > 0:
			stats.TradeResult.NumberOfWinningTrades++
			grossProfit = grossProfit.Add(pnl)
		case trade.PnL < 0:
			stats.TradeResult.NumberOfLosingTrades++
			grossLoss = grossLoss.Add(pnl.Neg())
		}

		maxLoss = math.Min(maxLoss, trade.PnL)
		maxProfit = math.Max(maxProfit, trade.PnL)

		minHeld = min(minHeld, trade.BarsHeld)
		maxHeld = max(maxHeld, trade.BarsHeld)
		sumHeld += trade.BarsHeld

		preTrade := equity
		equity = equity.Add(pnl)

		if equity.GreaterThan(peak) {
			peak = equity
		} else if peak.IsPositive() {
			drawdown := peak.Sub(equity).Div(peak)
			if drawdown.GreaterThan(maxDrawdown) {
				maxDrawdown = drawdown
			}
		}

		if preTrade.IsPositive() {
			ret, _ := pnl.Div(preTrade).Float64()
			returns = append(returns, ret)
		}
	}

	stats.TradeResult.NumberOfTrades = len(trades)
	stats.TradeResult.WinRate = float64(stats.TradeResult.NumberOfWinningTrades) / float64(len(trades))
	stats.TradeResult.MaxDrawdown, _ = maxDrawdown.Float64()

	if grossLoss.IsPositive() {
		stats.TradeResult.ProfitFactor, _ = grossProfit.Div(grossLoss).Float64()
	}

	stats.TradePnl.RealizedPnL, _ = totalPnl.Float64()
	stats.TradePnl.MaximumLoss = math.Min(maxLoss, 0)
	stats.TradePnl.MaximumProfit = math.Max(maxProfit, 0)

	stats.TradeHoldingTime.Min = minHeld
	stats.TradeHoldingTime.Max = maxHeld
	stats.TradeHoldingTime.Avg = float64(sumHeld) / float64(len(trades))

	if initialCapital > 0 {
		stats.TotalReturn, _ = totalPnl.Div(decimal.NewFromFloat(initialCapital)).Float64()
	}

	stats.SharpeRatio = sharpe(returns)

	return stats
}

// sharpe computes the ratio of mean to standard deviation of per-trade
// returns, scaled by sqrt(n). Needs at least two trades and nonzero
// dispersion.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}

	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}

	return mean / math.Sqrt(variance) * math.Sqrt(float64(len(returns)))
}
