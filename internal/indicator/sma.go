package indicator

import "github.com/moznion/go-optional"

// computeSMA calculates the arithmetic mean of the last period prices.
func computeSMA(prices []float64, period int) optional.Option[float64] {
	if period <= 0 || len(prices) < period {
		return optional.None[float64]()
	}

	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}

	return optional.Some(sum / float64(period))
}
