package cli

import (
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"foliosim/internal/config"
)

// ConfigSummaryLines returns human readable lines describing the loaded
// runner config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Run name: %s", cfg.Name),
		fmt.Sprintf("Initial capital: %.2f", cfg.InitialCapital),
		fmt.Sprintf("Lot decimals: %d", cfg.LotDecimals),
		fmt.Sprintf("Tree file: %s", cfg.TreePath()),
		fmt.Sprintf("Prices file: %s", cfg.PricesPath()),
		fmt.Sprintf("Output: %s (%s)", cfg.OutputDir(), cfg.Output.Format),
	}
	if cfg.Rebalance.IsSet() {
		lines = append(lines,
			fmt.Sprintf("Rebalance schedule: %s", cfg.Rebalance.Value.Schedule),
			fmt.Sprintf("Rebalance weights: %d named", len(cfg.Rebalance.Value.Weights)))
	} else {
		lines = append(lines, "Rebalance: defaults (@monthly, equal weight)")
	}
	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}
