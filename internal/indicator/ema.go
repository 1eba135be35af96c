package indicator

import "github.com/moznion/go-optional"

// computeEMA seeds the EMA with the SMA of the first period prices, then
// applies the standard smoothing recurrence for the remainder:
//
//	ema = (price - ema) * (2 / (period + 1)) + ema
func computeEMA(prices []float64, period int) optional.Option[float64] {
	if period <= 0 || len(prices) < period {
		return optional.None[float64]()
	}

	return optional.Some(seededEMA(prices, period))
}

// seededEMA computes the SMA-seeded EMA over the whole series. The caller
// guarantees len(values) >= period.
func seededEMA(values []float64, period int) float64 {
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}

	ema := seed / float64(period)
	multiplier := 2.0 / float64(period+1)

	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
	}

	return ema
}

// seededEMASeries computes the SMA-seeded EMA at every index from
// period-1 onward, returning len(values)-period+1 points. The caller
// guarantees len(values) >= period.
func seededEMASeries(values []float64, period int) []float64 {
	out := make([]float64, 0, len(values)-period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}

	ema := seed / float64(period)
	out = append(out, ema)

	multiplier := 2.0 / float64(period+1)

	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
		out = append(out, ema)
	}

	return out
}
