package indicator

import "github.com/moznion/go-optional"

// computeMACD builds the MACD line as fastEMA - slowEMA at every bar from
// the slow warm-up onward, then applies the same SMA-seeded EMA to the
// MACD series itself to obtain the signal line.
func computeMACD(prices []float64, fast, slow, signal int) optional.Option[MACDValue] {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return optional.None[MACDValue]()
	}

	// Need enough bars to seed the slow EMA plus enough MACD points to
	// seed the signal EMA.
	if len(prices) < slow+signal {
		return optional.None[MACDValue]()
	}

	fastSeries := seededEMASeries(prices, fast)
	slowSeries := seededEMASeries(prices, slow)

	// Align both series at the slow warm-up boundary.
	offset := len(fastSeries) - len(slowSeries)

	macdSeries := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdSeries[i] = fastSeries[i+offset] - slowSeries[i]
	}

	if len(macdSeries) < signal {
		return optional.None[MACDValue]()
	}

	line := macdSeries[len(macdSeries)-1]
	signalLine := seededEMA(macdSeries, signal)

	return optional.Some(MACDValue{
		Line:      line,
		Signal:    signalLine,
		Histogram: line - signalLine,
	})
}
