package types

import "time"

// Bar is a single immutable price/volume sample. The OHLC fields are
// optional: a zero value means the feed did not supply them, and the
// trade price stands in for the missing field.
type Bar struct {
	Time   time.Time `csv:"time" yaml:"time"`
	Price  float64   `csv:"price" yaml:"price"`
	Volume float64   `csv:"volume" yaml:"volume"`
	Open   float64   `csv:"open" yaml:"open"`
	High   float64   `csv:"high" yaml:"high"`
	Low    float64   `csv:"low" yaml:"low"`
	Close  float64   `csv:"close" yaml:"close"`
}

// MarkPrice returns the price used for fills and mark-to-market: the
// close when supplied, otherwise the trade price.
func (b Bar) MarkPrice() float64 {
	if b.Close != 0 {
		return b.Close
	}

	return b.Price
}

// HighPrice returns the bar high, falling back to the mark price.
func (b Bar) HighPrice() float64 {
	if b.High != 0 {
		return b.High
	}

	return b.MarkPrice()
}

// LowPrice returns the bar low, falling back to the mark price.
func (b Bar) LowPrice() float64 {
	if b.Low != 0 {
		return b.Low
	}

	return b.MarkPrice()
}
