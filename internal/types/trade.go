package types

import "time"

// TradeRecord is an append-only log entry created whenever a signal causes
// a position change. Records are never mutated after creation.
type TradeRecord struct {
	// ID uniquely identifies the record.
	ID string `json:"id" yaml:"id"`
	// BarIndex is the replay bar at which the fill happened.
	BarIndex int `json:"bar_index" yaml:"bar_index"`
	// Time is the bar time of the fill.
	Time time.Time `json:"time" yaml:"time"`
	// Signal is the decision that caused the fill.
	Signal SignalType `json:"signal" yaml:"signal"`
	// Price is the fill price (the bar's mark price).
	Price float64 `json:"price" yaml:"price"`
	// Quantity is the signed fill quantity.
	Quantity float64 `json:"quantity" yaml:"quantity"`
	// Reason labels why the fill happened, e.g. "buy (majority_vote)".
	Reason string `json:"reason" yaml:"reason"`
}
