package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/quantor-lab/quantor-trading/internal/engine"
	"github.com/quantor-lab/quantor-trading/internal/logger"
	"github.com/quantor-lab/quantor-trading/internal/strategy"
	"github.com/quantor-lab/quantor-trading/internal/types"
	"github.com/quantor-lab/quantor-trading/internal/version"
	"github.com/quantor-lab/quantor-trading/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// backtestAction loads one strategy config per file, fetches each
// instrument's series, runs all instruments concurrently, and writes the
// results folder.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	configPaths := cmd.StringSlice("config")
	sourceFlag := cmd.String("source")
	dataPath := cmd.String("data")
	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")
	interval := cmd.String("interval")
	capital := cmd.Float64("capital")
	outputDir := cmd.String("output")

	appLog, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = appLog.Sync() }()

	provider, err := marketdata.NewProvider(
		marketdata.SourceType(sourceFlag),
		os.Getenv("POLYGON_API_KEY"),
		dataPath,
	)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(configPaths),
		progressbar.OptionSetDescription("Loading market data"),
		progressbar.OptionShowCount(),
	)

	requests := make([]engine.RunRequest, 0, len(configPaths))

	for _, path := range configPaths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}

		cfg, err := strategy.ParseConfig(string(raw))
		if err != nil {
			return fmt.Errorf("invalid config %s: %w", path, err)
		}

		bars, err := provider.FetchSeries(ctx, cfg.Symbol, start, end, interval)
		if err != nil {
			return fmt.Errorf("failed to fetch series for %s: %w", cfg.Symbol, err)
		}

		requests = append(requests, engine.RunRequest{
			Config:         cfg,
			InitialCapital: capital,
			Bars:           bars,
		})

		_ = bar.Add(1)
	}

	results := engine.NewRunner(appLog).RunAll(ctx, requests)

	return writeResults(appLog, outputDir, results)
}

// writeResults persists stats.yaml, trades.csv and a Parquet trade log
// under a timestamped folder.
func writeResults(appLog *logger.Logger, outputDir string, results []engine.RunResult) error {
	runDir := filepath.Join(outputDir, time.Now().Format("2006-01-02T15-04-05"))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	tradeLog, err := engine.NewTradeLog(appLog)
	if err != nil {
		return err
	}
	defer tradeLog.Close()

	if err := tradeLog.Initialize(); err != nil {
		return err
	}

	var stats []types.BacktestStats

	var allTrades []types.TradeRecord

	var failed int

	for _, result := range results {
		if result.Err != nil {
			failed++

			fmt.Fprintf(os.Stderr, "backtest failed for %s: %v\n", result.Symbol, result.Err)

			continue
		}

		stats = append(stats, result.Stats)

		for _, trade := range result.Trades {
			allTrades = append(allTrades, trade)

			if err := tradeLog.RecordTrade(trade); err != nil {
				return err
			}
		}
	}

	if err := types.WriteBacktestStats(filepath.Join(runDir, "stats.yaml"), stats); err != nil {
		return err
	}

	tradesFile, err := os.Create(filepath.Join(runDir, "trades.csv"))
	if err != nil {
		return fmt.Errorf("failed to create trades file: %w", err)
	}
	defer tradesFile.Close()

	if err := gocsv.MarshalFile(&allTrades, tradesFile); err != nil {
		return fmt.Errorf("failed to write trades file: %w", err)
	}

	if err := tradeLog.Write(runDir); err != nil {
		return err
	}

	fmt.Printf("Results written to %s (%d instruments, %d failed)\n", runDir, len(results), failed)

	if failed == len(results) && len(results) > 0 {
		return fmt.Errorf("all %d backtests failed", failed)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Run strategy backtests over historical bars",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Strategy config yaml file, repeatable for multiple instruments",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   fmt.Sprintf("Market data source (%s, %s, %s)", marketdata.SourceCSV, marketdata.SourcePolygon, marketdata.SourceBinance),
				Value:   string(marketdata.SourceCSV),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "CSV file path when the source is csv",
				Value:   "data/bars.csv",
			},
			&cli.TimestampFlag{
				Name:  "start",
				Usage: "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value: time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval, for example 1m, 1h, 1d",
				Value:   string(marketdata.IntervalOneDay),
			},
			&cli.Float64Flag{
				Name:    "capital",
				Aliases: []string{"k"},
				Usage:   "Initial capital per instrument",
				Value:   10000,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for result folders",
				Value:   "results",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
