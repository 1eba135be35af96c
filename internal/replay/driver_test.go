package replay

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/aggregator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/strategy"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
)

// seqStrategy emits a scripted signal per bar index and none afterwards.
type seqStrategy struct {
	name    string
	signals []types.SignalType
}

func (s *seqStrategy) Name() string { return s.name }

func (s *seqStrategy) OnTick(ctx *strategy.Context) types.SignalType {
	if ctx.BarIndex < len(s.signals) {
		return s.signals[ctx.BarIndex]
	}

	return types.SignalNone
}

func (s *seqStrategy) Reset() {}

type DriverTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func (suite *DriverTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
}

func TestDriverSuite(t *testing.T) {
	suite.Run(t, new(DriverTestSuite))
}

func barsFromPrices(prices []float64) []types.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bars := make([]types.Bar, 0, len(prices))
	for i, price := range prices {
		bars = append(bars, types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Price:  price,
			Volume: 1000,
		})
	}

	return bars
}

func (suite *DriverTestSuite) newDriver(prices []float64, signals []types.SignalType) *Driver {
	evaluator := NewSingleStrategyEvaluator(&seqStrategy{name: "scripted", signals: signals})

	driver, err := NewDriver(DefaultConfig(), barsFromPrices(prices), evaluator, suite.logger)
	suite.Require().NoError(err)

	return driver
}

func (suite *DriverTestSuite) TestEmptyDatasetRejected() {
	_, err := NewDriver(DefaultConfig(), nil, NewSingleStrategyEvaluator(&seqStrategy{}), suite.logger)
	suite.Error(err)
}

func (suite *DriverTestSuite) TestEquityInvariantEveryBar() {
	driver := suite.newDriver(
		[]float64{100, 102, 105, 103, 101, 99, 104},
		[]types.SignalType{types.SignalBuy, types.SignalNone, types.SignalSell, types.SignalNone, types.SignalBuy},
	)
	defer driver.Close()

	for {
		more, err := driver.Step()
		suite.Require().NoError(err)

		position := driver.Position()
		expected := DefaultConfig().InitialCapital + position.RealizedPnL + position.UnrealizedPnL
		suite.InDelta(expected, driver.Equity(), 1e-9)

		if !more {
			break
		}
	}
}

func (suite *DriverTestSuite) TestBuyThenSellFlips() {
	driver := suite.newDriver(
		[]float64{100, 110, 120},
		[]types.SignalType{types.SignalBuy, types.SignalSell},
	)
	defer driver.Close()

	_, err := driver.Step()
	suite.Require().NoError(err)
	openPosition := driver.Position()
	suite.True(openPosition.IsLong())

	// The sell at 110 realizes +10 on the long and opens a short.
	_, err = driver.Step()
	suite.Require().NoError(err)

	position := driver.Position()
	suite.True(position.IsShort())
	suite.InDelta(10.0, position.RealizedPnL, 1e-9)

	// At 120 the short is 10 underwater.
	_, err = driver.Step()
	suite.Require().NoError(err)
	suite.InDelta(-10.0, driver.Position().UnrealizedPnL, 1e-9)
	suite.InDelta(10000.0, driver.Equity(), 1e-9)
}

func (suite *DriverTestSuite) TestRepeatedBuyIsNoOp() {
	driver := suite.newDriver(
		[]float64{100, 105},
		[]types.SignalType{types.SignalBuy, types.SignalBuy},
	)
	defer driver.Close()

	suite.Require().NoError(driver.RunAll(optional.None[func(current, total int)]()))

	position := driver.Position()
	suite.InDelta(100.0, position.AvgEntryPrice, 1e-9)

	count, err := driver.store.Count()
	suite.Require().NoError(err)
	suite.Equal(1, count)
}

func (suite *DriverTestSuite) TestCloseSignalsMatchPositionSign() {
	suite.Run("close long without a long is a no-op", func() {
		driver := suite.newDriver(
			[]float64{100, 105},
			[]types.SignalType{types.SignalSell, types.SignalCloseLong},
		)
		defer driver.Close()

		suite.Require().NoError(driver.RunAll(optional.None[func(current, total int)]()))
		shortPosition := driver.Position()
		suite.True(shortPosition.IsShort())
	})

	suite.Run("close long flattens a long", func() {
		driver := suite.newDriver(
			[]float64{100, 107},
			[]types.SignalType{types.SignalBuy, types.SignalCloseLong},
		)
		defer driver.Close()

		suite.Require().NoError(driver.RunAll(optional.None[func(current, total int)]()))

		position := driver.Position()
		suite.True(position.IsFlat())
		suite.InDelta(7.0, position.RealizedPnL, 1e-9)
	})

	suite.Run("close short flattens a short", func() {
		driver := suite.newDriver(
			[]float64{100, 93},
			[]types.SignalType{types.SignalSell, types.SignalCloseShort},
		)
		defer driver.Close()

		suite.Require().NoError(driver.RunAll(optional.None[func(current, total int)]()))

		position := driver.Position()
		suite.True(position.IsFlat())
		suite.InDelta(7.0, position.RealizedPnL, 1e-9)
	})
}

func (suite *DriverTestSuite) TestSeekToIsDeterministic() {
	prices := []float64{100, 102, 104, 101, 99, 103, 106, 108}
	signals := []types.SignalType{
		types.SignalBuy, types.SignalNone, types.SignalSell,
		types.SignalNone, types.SignalBuy, types.SignalNone,
	}

	stepped := suite.newDriver(prices, signals)
	defer stepped.Close()

	for i := 0; i < 6; i++ {
		_, err := stepped.Step()
		suite.Require().NoError(err)
	}

	seeked := suite.newDriver(prices, signals)
	defer seeked.Close()

	suite.Require().NoError(seeked.SeekTo(5))

	suite.Equal(stepped.Cursor(), seeked.Cursor())
	suite.Equal(stepped.Position(), seeked.Position())
	suite.InDelta(stepped.Equity(), seeked.Equity(), 1e-9)

	steppedCount, err := stepped.store.Count()
	suite.Require().NoError(err)

	seekedCount, err := seeked.store.Count()
	suite.Require().NoError(err)
	suite.Equal(steppedCount, seekedCount)
}

func (suite *DriverTestSuite) TestSeekOutOfRange() {
	driver := suite.newDriver([]float64{100, 101}, nil)
	defer driver.Close()

	suite.Error(driver.SeekTo(-1))
	suite.Error(driver.SeekTo(2))
}

func (suite *DriverTestSuite) TestRunAllReportsProgress() {
	driver := suite.newDriver([]float64{100, 101, 102}, nil)
	defer driver.Close()

	var calls int

	progress := func(current, total int) {
		calls++

		suite.Equal(3, total)
	}

	suite.Require().NoError(driver.RunAll(optional.Some(progress)))
	suite.Equal(3, calls)
	suite.Equal(3, driver.Cursor())
}

func (suite *DriverTestSuite) TestResetRestoresInitialState() {
	driver := suite.newDriver(
		[]float64{100, 110},
		[]types.SignalType{types.SignalBuy},
	)
	defer driver.Close()

	suite.Require().NoError(driver.RunAll(optional.None[func(current, total int)]()))
	suite.Require().NoError(driver.Reset())

	suite.Zero(driver.Cursor())
	resetPosition := driver.Position()
	suite.True(resetPosition.IsFlat())
	suite.InDelta(10000.0, driver.Equity(), 1e-9)

	count, err := driver.store.Count()
	suite.Require().NoError(err)
	suite.Zero(count)
}

func (suite *DriverTestSuite) TestPlayAndPause() {
	prices := make([]float64, 200)
	for i := range prices {
		prices[i] = 100 + float64(i%10)
	}

	config := DefaultConfig()
	config.PlayDelay = 5 * time.Millisecond

	driver, err := NewDriver(config, barsFromPrices(prices), NewSingleStrategyEvaluator(&seqStrategy{name: "idle"}), suite.logger)
	suite.Require().NoError(err)

	defer driver.Close()

	suite.Require().NoError(driver.Play())

	// Stepping while playing is refused.
	_, err = driver.Step()
	suite.Error(err)

	driver.Pause()

	cursor := driver.Cursor()
	suite.Equal(cursor, driver.Cursor(), "no bars advance after pause")

	// Playback can resume and run to the end.
	suite.Require().NoError(driver.Play())
	driver.Pause()
}

func (suite *DriverTestSuite) TestBarListenerReceivesEveryBar() {
	driver := suite.newDriver(
		[]float64{100, 103, 106},
		[]types.SignalType{types.SignalNone, types.SignalBuy},
	)
	defer driver.Close()

	var events []BarEvent

	driver.SetBarListener(func(event BarEvent) {
		events = append(events, event)
	})

	suite.Require().NoError(driver.RunAll(optional.None[func(current, total int)]()))

	suite.Require().Len(events, 3)

	for i, event := range events {
		suite.Equal(i, event.BarIndex)
		suite.InDelta(event.Position.RealizedPnL+event.Position.UnrealizedPnL+10000, event.Equity, 1e-9)
	}

	// Only the buy bar carries a fill.
	suite.True(events[0].Trade.IsNone())
	suite.Require().True(events[1].Trade.IsSome())
	suite.Equal(types.SignalBuy, events[1].Trade.Unwrap().Signal)
	suite.InDelta(103.0, events[1].Trade.Unwrap().Price, 1e-9)
	suite.True(events[2].Trade.IsNone())

	equity := driver.EquityCurve()
	suite.Require().Len(equity, 3)
	suite.InDelta(events[2].Equity, equity[2], 1e-9)
}

func (suite *DriverTestSuite) TestSummary() {
	driver := suite.newDriver(
		[]float64{100, 105, 110, 108, 112},
		[]types.SignalType{types.SignalBuy, types.SignalNone, types.SignalSell},
	)
	defer driver.Close()

	suite.Require().NoError(driver.RunAll(optional.None[func(current, total int)]()))

	summary, err := driver.Summary()
	suite.Require().NoError(err)

	suite.Equal(2, summary.TotalTrades)
	suite.InDelta(driver.Equity(), summary.EndingEquity, 1e-9)
	suite.InDelta((driver.Equity()-10000)/10000*100, summary.TotalReturnPct, 1e-9)
	suite.GreaterOrEqual(summary.MaxDrawdownPct, 0.0)
	suite.Len(summary.Trades, 2)
}

func (suite *DriverTestSuite) TestAggregatedReplayAttributesPnL() {
	agg := aggregator.New(suite.logger)
	suite.Require().NoError(agg.SetMode(aggregator.ModeFirstSignal))

	_, err := agg.Add(&seqStrategy{
		name:    "opener",
		signals: []types.SignalType{types.SignalBuy, types.SignalNone, types.SignalCloseLong},
	})
	suite.Require().NoError(err)

	agg.StartAll()

	driver, err := NewDriver(DefaultConfig(), barsFromPrices([]float64{100, 104, 109}), agg, suite.logger)
	suite.Require().NoError(err)

	defer driver.Close()

	suite.Require().NoError(driver.RunAll(optional.None[func(current, total int)]()))

	handles := agg.Handles()
	suite.Require().Len(handles, 1)
	suite.InDelta(9.0, handles[0].RealizedPnL, 1e-9)
}
