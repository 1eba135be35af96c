package strategy

import (
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/history"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/indicator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
)

// Strategy turns one tick of market context into a trading signal.
// OnTick must never panic out: execution faults are recovered locally and
// reported as SignalNone.
type Strategy interface {
	// Name returns the human-readable strategy name.
	Name() string
	// OnTick evaluates one tick and returns a signal.
	OnTick(ctx *Context) types.SignalType
}

// Resettable is implemented by strategies that carry cross-tick state
// (crossover previous values, script globals) and can discard it for a
// deterministic replay from the start.
type Resettable interface {
	Reset()
}

// Context is the per-tick view handed to every strategy. It is assembled
// fresh by the replay driver for each bar; strategies must treat it as
// read-only.
type Context struct {
	// BarIndex is the zero-based index of the current bar.
	BarIndex int
	// Bar is the current price sample.
	Bar types.Bar
	// Position is a snapshot of the current position.
	Position types.Position
	// Account is a snapshot of the account state.
	Account types.AccountSnapshot
	// Engine computes indicators over the history visible so far.
	Engine *indicator.Engine
	// Series is the read-only price history up to and including Bar.
	Series *history.Series
}
