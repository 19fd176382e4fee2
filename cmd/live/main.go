package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantor-lab/quantor-trading/internal/engine"
	"github.com/quantor-lab/quantor-trading/internal/logger"
	"github.com/quantor-lab/quantor-trading/internal/strategy"
	"github.com/quantor-lab/quantor-trading/internal/version"
	"github.com/quantor-lab/quantor-trading/pkg/marketdata"
	"github.com/urfave/cli/v3"
)

// liveAction runs one strategy against a realtime stream. The engine only
// emits order intents; execution stays with the broker adapter.
func liveAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	sourceFlag := cmd.String("source")
	interval := cmd.String("interval")
	capital := cmd.Float64("capital")

	appLog, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = appLog.Sync() }()

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	cfg, err := strategy.ParseConfig(string(raw))
	if err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	provider, err := marketdata.NewProvider(
		marketdata.SourceType(sourceFlag),
		os.Getenv("POLYGON_API_KEY"),
		"",
	)
	if err != nil {
		return err
	}

	broker := engine.NewRecordingBroker()

	eng, err := engine.NewEngine(cfg, capital, broker, nil, appLog.Named(cfg.Symbol))
	if err != nil {
		return err
	}

	runner := engine.NewLiveRunner(eng, provider, cfg.Symbol, marketdata.Interval(interval), appLog)

	// Stop on SIGINT or SIGTERM; the bar in flight finishes first.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runner.Run(ctx)
}

func main() {
	cmd := &cli.Command{
		Name:    "live",
		Usage:   "Run one strategy against a realtime market data stream",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Strategy config yaml file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   fmt.Sprintf("Streaming market data source (%s)", marketdata.SourceBinance),
				Value:   string(marketdata.SourceBinance),
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval, for example 1m, 1h",
				Value:   string(marketdata.IntervalOneMinute),
			},
			&cli.Float64Flag{
				Name:    "capital",
				Aliases: []string{"k"},
				Usage:   "Initial capital",
				Value:   10000,
			},
		},
		Action: liveAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
