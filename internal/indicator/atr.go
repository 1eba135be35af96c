package indicator

import (
	"math"

	"github.com/moznion/go-optional"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
)

// computeATR calculates the Wilder-smoothed average true range. The true
// range needs a previous close, so period+1 bars are required. The seed
// is a simple average over the first period true ranges. Bars without
// OHLC degrade to |close - prevClose|.
func computeATR(bars []types.Bar, period int) optional.Option[float64] {
	if period <= 0 || len(bars) < period+1 {
		return optional.None[float64]()
	}

	trueRanges := make([]float64, 0, len(bars)-1)

	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].MarkPrice()
		high := bars[i].HighPrice()
		low := bars[i].LowPrice()

		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trueRanges = append(trueRanges, tr)
	}

	atr := 0.0
	for _, tr := range trueRanges[:period] {
		atr += tr
	}

	atr /= float64(period)

	for _, tr := range trueRanges[period:] {
		atr = (atr*float64(period-1) + tr) / float64(period)
	}

	return optional.Some(atr)
}
