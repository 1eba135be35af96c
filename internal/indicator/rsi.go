package indicator

import "github.com/moznion/go-optional"

// computeRSI calculates Wilder's relative strength index: average gain and
// loss start from a simple average over the first period deltas, then are
// smoothed with avg = (avg*(period-1) + current) / period. A zero average
// loss defines RSI as 100.
func computeRSI(prices []float64, period int) optional.Option[float64] {
	if period <= 0 || len(prices) < period+1 {
		return optional.None[float64]()
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i <= period; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += -delta
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]

		gain := 0.0
		loss := 0.0

		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return optional.Some(100.0)
	}

	rs := avgGain / avgLoss

	return optional.Some(100.0 - 100.0/(1.0+rs))
}
