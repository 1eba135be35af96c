package indicator

// Kind identifies a technical indicator family.
type Kind string

const (
	KindSMA        Kind = "sma"
	KindEMA        Kind = "ema"
	KindRSI        Kind = "rsi"
	KindMACD       Kind = "macd"
	KindBollinger  Kind = "bollinger_bands"
	KindATR        Kind = "atr"
	KindStochastic Kind = "stochastic"
)

// MACDValue is the three-part MACD result.
type MACDValue struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// BollingerValue is the three-band Bollinger result.
type BollingerValue struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// StochasticValue is the %K/%D stochastic oscillator result.
type StochasticValue struct {
	K float64
	D float64
}
