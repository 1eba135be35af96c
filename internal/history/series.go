package history

import (
	"sync"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
)

// Series is an append-only price history for a single session. The
// indicator engine and replay driver hold read-only views over it; bars
// are only ever appended, never mutated in place.
type Series struct {
	bars   []types.Bar
	prices []float64

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

// NewSeries creates an empty series.
func NewSeries() *Series {
	return &Series{
		bars:   nil,
		prices: nil,
		mu:     sync.RWMutex{},
	}
}

// NewSeriesFromBars creates a series pre-populated with the given bars.
func NewSeriesFromBars(bars []types.Bar) *Series {
	s := NewSeries()
	for _, bar := range bars {
		s.Append(bar)
	}

	return s
}

// Append adds a bar to the end of the series.
func (s *Series) Append(bar types.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bars = append(s.bars, bar)
	s.prices = append(s.prices, bar.MarkPrice())
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bars)
}

// At returns the bar at index i.
func (s *Series) At(i int) types.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bars[i]
}

// Last returns the most recent bar, if any.
func (s *Series) Last() (types.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.bars) == 0 {
		return types.Bar{}, false
	}

	return s.bars[len(s.bars)-1], true
}

// Bars returns the full bar history. The returned slice shares storage
// with the series and must be treated as read-only.
func (s *Series) Bars() []types.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bars
}

// Prices returns the mark-price history. The returned slice shares
// storage with the series and must be treated as read-only.
func (s *Series) Prices() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.prices
}

// BarsCopy returns an independent copy of the bar history. Used to hand
// a private snapshot across the script sandbox boundary.
func (s *Series) BarsCopy() []types.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Bar, len(s.bars))
	copy(out, s.bars)

	return out
}

// PricesCopy returns an independent copy of the mark-price history.
// Used to hand a private snapshot across the script sandbox boundary.
func (s *Series) PricesCopy() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]float64, len(s.prices))
	copy(out, s.prices)

	return out
}
