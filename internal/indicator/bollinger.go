package indicator

import (
	"math"

	"github.com/moznion/go-optional"
)

// computeBollinger calculates SMA +/- stdDev * sigma over the trailing
// window. Sigma is the population standard deviation, not the sample one.
func computeBollinger(prices []float64, period int, stdDev float64) optional.Option[BollingerValue] {
	if period <= 0 || len(prices) < period {
		return optional.None[BollingerValue]()
	}

	window := prices[len(prices)-period:]

	middle := 0.0
	for _, p := range window {
		middle += p
	}

	middle /= float64(period)

	variance := 0.0
	for _, p := range window {
		variance += (p - middle) * (p - middle)
	}

	variance /= float64(period)
	sigma := math.Sqrt(variance)

	return optional.Some(BollingerValue{
		Upper:  middle + stdDev*sigma,
		Middle: middle,
		Lower:  middle - stdDev*sigma,
	})
}
