package types

import "github.com/shopspring/decimal"

// positionEpsilon is the quantity threshold below which a position is
// considered flat.
const positionEpsilon = 0.0001

// Position tracks the current holding of the replayed instrument.
// Quantity is signed: positive is long, negative is short, zero is flat.
type Position struct {
	Quantity      float64 `json:"quantity" yaml:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price" yaml:"avg_entry_price"`
	RealizedPnL   float64 `json:"realized_pnl" yaml:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl" yaml:"unrealized_pnl"`
}

// IsLong reports whether the position is long.
func (p *Position) IsLong() bool {
	return p.Quantity > positionEpsilon
}

// IsShort reports whether the position is short.
func (p *Position) IsShort() bool {
	return p.Quantity < -positionEpsilon
}

// IsFlat reports whether there is no open position.
func (p *Position) IsFlat() bool {
	return !p.IsLong() && !p.IsShort()
}

// MarkToMarket recomputes the unrealized P&L against the given mark price.
// Long: (mark - avg) * qty. Short: (avg - mark) * |qty|. Flat: 0.
func (p *Position) MarkToMarket(mark float64) {
	switch {
	case p.IsLong():
		p.UnrealizedPnL = (mark - p.AvgEntryPrice) * p.Quantity
	case p.IsShort():
		p.UnrealizedPnL = (p.AvgEntryPrice - mark) * (-p.Quantity)
	default:
		p.UnrealizedPnL = 0
	}
}

// Realize closes the current position at the given price and returns the
// realized amount for this close. The amount is accumulated into
// RealizedPnL using decimal arithmetic to avoid drift over long replays.
func (p *Position) Realize(price float64) float64 {
	if p.IsFlat() {
		return 0
	}

	var pnl decimal.Decimal

	qty := decimal.NewFromFloat(p.Quantity)
	entry := decimal.NewFromFloat(p.AvgEntryPrice)
	exit := decimal.NewFromFloat(price)

	if p.IsLong() {
		pnl = exit.Sub(entry).Mul(qty)
	} else {
		pnl = entry.Sub(exit).Mul(qty.Neg())
	}

	realized, _ := pnl.Float64()
	total, _ := decimal.NewFromFloat(p.RealizedPnL).Add(pnl).Float64()

	p.RealizedPnL = total
	p.Quantity = 0
	p.AvgEntryPrice = 0
	p.UnrealizedPnL = 0

	return realized
}

// Open establishes a new position of the given signed quantity at price.
// The caller must flatten any opposite position first.
func (p *Position) Open(quantity, price float64) {
	p.Quantity = quantity
	p.AvgEntryPrice = price
	p.UnrealizedPnL = 0
}
