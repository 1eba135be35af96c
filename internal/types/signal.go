package types

import "strings"

// SignalType is the trading decision a strategy emits per tick.
type SignalType string

const (
	// SignalNone means the strategy has no opinion on this tick.
	// None is absorbing: it never overrides a concrete signal when aggregating.
	SignalNone SignalType = "none"
	// SignalBuy opens or flips to a long position.
	SignalBuy SignalType = "buy"
	// SignalSell opens or flips to a short position.
	SignalSell SignalType = "sell"
	// SignalCloseLong flattens an existing long position.
	SignalCloseLong SignalType = "close_long"
	// SignalCloseShort flattens an existing short position.
	SignalCloseShort SignalType = "close_short"
)

// IsActionable reports whether the signal carries a concrete decision.
func (s SignalType) IsActionable() bool {
	return s == SignalBuy || s == SignalSell || s == SignalCloseLong || s == SignalCloseShort
}

// SignalFromValue converts a loosely-typed host value into a SignalType.
// Recognized forms: a SignalType itself, a raw integer (1 buy, -1 sell),
// or a case-insensitive string name. Anything unrecognized maps to SignalNone.
func SignalFromValue(value any) SignalType {
	switch v := value.(type) {
	case SignalType:
		if v.IsActionable() {
			return v
		}

		return SignalNone
	case int:
		return signalFromInt(int64(v))
	case int32:
		return signalFromInt(int64(v))
	case int64:
		return signalFromInt(v)
	case float64:
		// Scripts frequently return whole-number floats
		if v == float64(int64(v)) {
			return signalFromInt(int64(v))
		}

		return SignalNone
	case string:
		return signalFromString(v)
	default:
		return SignalNone
	}
}

func signalFromInt(v int64) SignalType {
	switch v {
	case 1:
		return SignalBuy
	case -1:
		return SignalSell
	default:
		return SignalNone
	}
}

func signalFromString(v string) SignalType {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "BUY":
		return SignalBuy
	case "SELL":
		return SignalSell
	case "CLOSE_LONG":
		return SignalCloseLong
	case "CLOSE_SHORT":
		return SignalCloseShort
	default:
		return SignalNone
	}
}
