package types

// AccountSnapshot represents the account state at a point in the replay.
type AccountSnapshot struct {
	// Balance is the cash balance (excluding unrealized P&L).
	Balance float64 `json:"balance" yaml:"balance"`
	// Equity is the total account value: initial capital + realized + unrealized.
	Equity float64 `json:"equity" yaml:"equity"`
	// Available is the amount free for new positions.
	Available float64 `json:"available" yaml:"available"`
	// PositionCount is the number of open positions (0 or 1 in a single-instrument replay).
	PositionCount int `json:"position_count" yaml:"position_count"`
	// TotalPnL is realized + unrealized P&L.
	TotalPnL float64 `json:"total_pnl" yaml:"total_pnl"`
}
