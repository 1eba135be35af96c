package types

import (
	"os"

	"gopkg.in/yaml.v2"
)

// ReplaySummary is the final result of a replay run.
type ReplaySummary struct {
	// TotalTrades is the number of position-changing fills.
	TotalTrades int `yaml:"total_trades"`
	// EndingEquity is the equity after the last bar.
	EndingEquity float64 `yaml:"ending_equity"`
	// TotalReturnPct is (ending - initial) / initial * 100.
	TotalReturnPct float64 `yaml:"total_return_pct"`
	// MaxDrawdownPct is the largest peak-to-trough equity loss, in percent.
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	// SharpeRatio is the annualized mean/stddev of per-bar returns.
	SharpeRatio float64 `yaml:"sharpe_ratio"`
	// Trades is the full trade log in fill order.
	Trades []TradeRecord `yaml:"trades"`
}

// WriteReplaySummary writes the summary to the given path as YAML.
func WriteReplaySummary(path string, summary ReplaySummary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
