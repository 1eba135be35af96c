package indicator

import (
	"github.com/moznion/go-optional"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
)

// Uncached entry points over caller-owned slices. The script sandbox uses
// these against private history snapshots so that an abandoned worker can
// never touch shared engine state.

// SMAOf computes the simple moving average over the last period prices.
func SMAOf(prices []float64, period int) optional.Option[float64] {
	return computeSMA(prices, period)
}

// EMAOf computes the SMA-seeded exponential moving average.
func EMAOf(prices []float64, period int) optional.Option[float64] {
	return computeEMA(prices, period)
}

// RSIOf computes Wilder's relative strength index.
func RSIOf(prices []float64, period int) optional.Option[float64] {
	return computeRSI(prices, period)
}

// MACDOf computes the MACD line, signal line, and histogram.
func MACDOf(prices []float64, fast, slow, signal int) optional.Option[MACDValue] {
	return computeMACD(prices, fast, slow, signal)
}

// BollingerOf computes Bollinger bands with population sigma.
func BollingerOf(prices []float64, period int, stdDev float64) optional.Option[BollingerValue] {
	return computeBollinger(prices, period, stdDev)
}

// ATROf computes the Wilder-smoothed average true range.
func ATROf(bars []types.Bar, period int) optional.Option[float64] {
	return computeATR(bars, period)
}

// StochasticOf computes the %K/%D stochastic oscillator.
func StochasticOf(bars []types.Bar, kPeriod, dPeriod int) optional.Option[StochasticValue] {
	return computeStochastic(bars, kPeriod, dPeriod)
}
