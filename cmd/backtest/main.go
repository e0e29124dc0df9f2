package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeromicro/go-zero/core/logx"

	"foliosim/internal/cli"
	"foliosim/internal/config"
	"foliosim/pkg/algos"
	"foliosim/pkg/backtest"
	"foliosim/pkg/report"
)

var configFile = flag.String("f", "etc/backtest.yaml", "the config file")

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad(*configFile)
	cli.LogConfigSummary(cfg)

	if err := run(ctx, cfg); err != nil {
		logx.Errorf("backtest runner: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	feed, err := backtest.LoadCSVPricesFile(cfg.PricesPath())
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}

	spec, err := backtest.LoadTreeSpecFile(cfg.TreePath())
	if err != nil {
		return fmt.Errorf("load tree: %w", err)
	}
	chain, err := rootChain(cfg)
	if err != nil {
		return err
	}
	spec.Chain = chain

	root, err := spec.Build()
	if err != nil {
		return fmt.Errorf("build tree: %w", err)
	}

	engine := &backtest.Engine{
		Root:           root,
		Feed:           feed,
		Dates:          feed.Dates(),
		InitialCapital: cfg.InitialCapital,
		LotDecimals:    int32(cfg.LotDecimals),
	}

	res, runErr := engine.Run(ctx)
	if res != nil {
		format, _ := report.ParseFormat(cfg.Output.Format)
		writer := report.NewWriter(cfg.OutputDir(), format)
		path, err := writer.Write(cfg.Name, res)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logx.Infof("backtest runner: report written to %s", path)
		logx.Infof("backtest runner: return=%.2f%% maxdd=%.2f%% sharpe=%.2f trades=%d",
			res.TotalReturnPct, res.MaxDrawdownPct, res.Sharpe, len(res.Trades))
	}
	return runErr
}

// rootChain assembles the stock decision chain: a schedule gate, a
// weighing step (explicit weights when configured, equal weight across
// all children otherwise), and the rebalance.
func rootChain(cfg *config.Config) ([]backtest.Algo, error) {
	schedule := "@monthly"
	var weights map[string]float64
	if cfg.Rebalance.IsSet() {
		if cfg.Rebalance.Value.Schedule != "" {
			schedule = cfg.Rebalance.Value.Schedule
		}
		weights = cfg.Rebalance.Value.Weights
	}

	gate, err := algos.NewSchedule(schedule)
	if err != nil {
		return nil, err
	}
	if len(weights) > 0 {
		return []backtest.Algo{gate, algos.WeighSpecified(weights), algos.Rebalance()}, nil
	}
	return []backtest.Algo{gate, algos.SelectAll(), algos.WeighEqually(), algos.Rebalance()}, nil
}
