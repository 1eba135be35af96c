package indicator

import (
	"github.com/moznion/go-optional"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
)

// computeStochastic calculates %K = 100 * (close - lowestLow) /
// (highestHigh - lowestLow) over a rolling kPeriod window, with %K fixed
// at 50 when the window's range is zero. %D is the simple average of the
// last dPeriod %K values.
func computeStochastic(bars []types.Bar, kPeriod, dPeriod int) optional.Option[StochasticValue] {
	if kPeriod <= 0 || dPeriod <= 0 || len(bars) < kPeriod+dPeriod-1 {
		return optional.None[StochasticValue]()
	}

	kValues := make([]float64, 0, len(bars)-kPeriod+1)

	for i := kPeriod - 1; i < len(bars); i++ {
		highest := bars[i-kPeriod+1].HighPrice()
		lowest := bars[i-kPeriod+1].LowPrice()

		for _, bar := range bars[i-kPeriod+2 : i+1] {
			if h := bar.HighPrice(); h > highest {
				highest = h
			}

			if l := bar.LowPrice(); l < lowest {
				lowest = l
			}
		}

		k := 50.0
		if highest-lowest > 0 {
			k = 100.0 * (bars[i].MarkPrice() - lowest) / (highest - lowest)
		}

		kValues = append(kValues, k)
	}

	if len(kValues) < dPeriod {
		return optional.None[StochasticValue]()
	}

	d := 0.0
	for _, k := range kValues[len(kValues)-dPeriod:] {
		d += k
	}

	d /= float64(dPeriod)

	return optional.Some(StochasticValue{
		K: kValues[len(kValues)-1],
		D: d,
	})
}
