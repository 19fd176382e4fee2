package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/quantor-lab/quantor-trading/internal/logger"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/pkg/errors"
	"go.uber.org/zap"
)

// TradeLog persists closed trades in an embedded duckdb database. The log
// is append-only; records are never updated or deleted while a run is live.
type TradeLog struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewTradeLog(logger *logger.Logger) (*TradeLog, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to open trade database", err)
	}

	return &TradeLog{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades table.
func (t *TradeLog) Initialize() error {
	_, err := t.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			strategy_name TEXT,
			side TEXT,
			entry_time TIMESTAMP,
			entry_price DOUBLE,
			exit_time TIMESTAMP,
			exit_price DOUBLE,
			quantity DOUBLE,
			bars_held INTEGER,
			pnl DOUBLE,
			exit_reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to create trades table", err)
	}

	return nil
}

// RecordTrade appends one closed trade.
func (t *TradeLog) RecordTrade(trade types.TradeRecord) error {
	query := t.sq.Insert("trades").
		Columns("id", "symbol", "strategy_name", "side",
			"entry_time", "entry_price", "exit_time", "exit_price",
			"quantity", "bars_held", "pnl", "exit_reason").
		Values(trade.ID, trade.Symbol, trade.StrategyName, string(trade.Side),
			trade.EntryTime, trade.EntryPrice, trade.ExitTime, trade.ExitPrice,
			trade.Quantity, trade.BarsHeld, trade.PnL, string(trade.ExitReason))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to build insert", err)
	}

	if _, err := t.db.Exec(sqlStr, args...); err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to insert trade", err)
	}

	return nil
}

// Trades returns every recorded trade ordered by exit time.
func (t *TradeLog) Trades() ([]types.TradeRecord, error) {
	query := t.sq.Select("id", "symbol", "strategy_name", "side",
		"entry_time", "entry_price", "exit_time", "exit_price",
		"quantity", "bars_held", "pnl", "exit_reason").
		From("trades").
		OrderBy("exit_time ASC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build select", err)
	}

	rows, err := t.db.Query(sqlStr, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.TradeRecord

	for rows.Next() {
		var trade types.TradeRecord
		var side, reason string

		if err := rows.Scan(
			&trade.ID, &trade.Symbol, &trade.StrategyName, &side,
			&trade.EntryTime, &trade.EntryPrice, &trade.ExitTime, &trade.ExitPrice,
			&trade.Quantity, &trade.BarsHeld, &trade.PnL, &reason,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trade.Side = types.PositionSide(side)
		trade.ExitReason = types.ExitReason(reason)
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "trade iteration failed", err)
	}

	return trades, nil
}

// Count returns the number of recorded trades.
func (t *TradeLog) Count() (int, error) {
	var count int
	if err := t.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count trades", err)
	}

	return count, nil
}

// WinLossBreakdown aggregates the win/loss counts in SQL rather than in Go.
func (t *TradeLog) WinLossBreakdown(symbol string) (types.TradeResult, error) {
	query := `
		WITH trade_stats AS (
			SELECT
				COUNT(*) as total_trades,
				SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END) as winning_trades,
				SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END) as losing_trades
			FROM trades
			WHERE symbol = ?
		)
		SELECT
			total_trades,
			COALESCE(winning_trades, 0),
			COALESCE(losing_trades, 0),
			CASE WHEN total_trades > 0 THEN CAST(winning_trades AS DOUBLE) / total_trades ELSE 0 END as win_rate
		FROM trade_stats
	`

	var result types.TradeResult
	if err := t.db.QueryRow(query, symbol).Scan(
		&result.NumberOfTrades,
		&result.NumberOfWinningTrades,
		&result.NumberOfLosingTrades,
		&result.WinRate,
	); err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to aggregate trades", err)
	}

	return result, nil
}

// Write exports the trade log to a Parquet file under path.
func (t *TradeLog) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to create output directory", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")

	if _, err := t.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to export trades", err)
	}

	t.logger.Info("exported trade log", zap.String("path", tradesPath))

	return nil
}

// Cleanup drops the trades table so the log can be reused for another run.
func (t *TradeLog) Cleanup() error {
	if _, err := t.db.Exec(`DROP TABLE IF EXISTS trades`); err != nil {
		return errors.Wrap(errors.ErrCodeTradeLogFailed, "failed to drop trades table", err)
	}

	return t.Initialize()
}

// Close releases the database handle.
func (t *TradeLog) Close() error {
	return t.db.Close()
}
