package indicator

import (
	"fmt"

	"github.com/moznion/go-optional"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/history"
)

// Engine computes technical indicators over one price history, memoizing
// each distinct (kind, params) request. The engine is constructed per
// series; it is not a process-wide singleton.
//
// Cache epoch rule: memoized results stay valid until the underlying
// history grows. The whole cache is cleared when the bar count differs
// from the count captured at the last population, so within one tick each
// request is computed at most once.
type Engine struct {
	series *history.Series
	cache  map[string]any
	epoch  int
}

// NewEngine creates an indicator engine over the given series.
func NewEngine(series *history.Series) *Engine {
	return &Engine{
		series: series,
		cache:  make(map[string]any),
		epoch:  -1,
	}
}

// Series returns the underlying price history.
func (e *Engine) Series() *history.Series {
	return e.series
}

// syncEpoch clears the cache if the history length changed since the
// cache was last populated.
func (e *Engine) syncEpoch() {
	n := e.series.Len()
	if n != e.epoch {
		e.cache = make(map[string]any)
		e.epoch = n
	}
}

// memoize returns the cached result for key, computing and storing it on
// a cache miss.
func memoize[T any](e *Engine, key string, compute func() optional.Option[T]) optional.Option[T] {
	e.syncEpoch()

	if cached, ok := e.cache[key]; ok {
		if value, ok := cached.(optional.Option[T]); ok {
			return value
		}
	}

	value := compute()
	e.cache[key] = value

	return value
}

// SMA returns the simple moving average over the last period prices, or
// None when the history is shorter than the period.
func (e *Engine) SMA(period int) optional.Option[float64] {
	key := fmt.Sprintf("sma:%d", period)

	return memoize(e, key, func() optional.Option[float64] {
		return computeSMA(e.series.Prices(), period)
	})
}

// EMA returns the exponential moving average seeded with the SMA of the
// first period prices, or None when the history is too short.
func (e *Engine) EMA(period int) optional.Option[float64] {
	key := fmt.Sprintf("ema:%d", period)

	return memoize(e, key, func() optional.Option[float64] {
		return computeEMA(e.series.Prices(), period)
	})
}

// RSI returns Wilder's relative strength index, or None when fewer than
// period+1 prices are available.
func (e *Engine) RSI(period int) optional.Option[float64] {
	key := fmt.Sprintf("rsi:%d", period)

	return memoize(e, key, func() optional.Option[float64] {
		return computeRSI(e.series.Prices(), period)
	})
}

// MACD returns the MACD line, signal line, and histogram.
func (e *Engine) MACD(fast, slow, signal int) optional.Option[MACDValue] {
	key := fmt.Sprintf("macd:%d:%d:%d", fast, slow, signal)

	return memoize(e, key, func() optional.Option[MACDValue] {
		return computeMACD(e.series.Prices(), fast, slow, signal)
	})
}

// Bollinger returns the Bollinger bands (SMA +/- stdDev * population sigma).
func (e *Engine) Bollinger(period int, stdDev float64) optional.Option[BollingerValue] {
	key := fmt.Sprintf("bollinger:%d:%g", period, stdDev)

	return memoize(e, key, func() optional.Option[BollingerValue] {
		return computeBollinger(e.series.Prices(), period, stdDev)
	})
}

// ATR returns the Wilder-smoothed average true range.
func (e *Engine) ATR(period int) optional.Option[float64] {
	key := fmt.Sprintf("atr:%d", period)

	return memoize(e, key, func() optional.Option[float64] {
		return computeATR(e.series.Bars(), period)
	})
}

// Stochastic returns the %K/%D stochastic oscillator.
func (e *Engine) Stochastic(kPeriod, dPeriod int) optional.Option[StochasticValue] {
	key := fmt.Sprintf("stochastic:%d:%d", kPeriod, dPeriod)

	return memoize(e, key, func() optional.Option[StochasticValue] {
		return computeStochastic(e.series.Bars(), kPeriod, dPeriod)
	})
}
