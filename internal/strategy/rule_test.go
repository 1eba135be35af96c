package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/history"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/indicator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
)

type RuleStrategyTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func (suite *RuleStrategyTestSuite) SetupSuite() {
	suite.logger = logger.NewNopLogger()
}

func TestRuleStrategySuite(t *testing.T) {
	suite.Run(t, new(RuleStrategyTestSuite))
}

// tickAll replays every price through the strategy, returning the signal
// emitted on each tick.
func (suite *RuleStrategyTestSuite) tickAll(s *RuleStrategy, prices []float64) []types.SignalType {
	series := history.NewSeries()
	engine := indicator.NewEngine(series)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	signals := make([]types.SignalType, 0, len(prices))

	for i, price := range prices {
		bar := types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Price:  price,
			Volume: 1000,
		}
		series.Append(bar)

		signals = append(signals, s.OnTick(&Context{
			BarIndex: i,
			Bar:      bar,
			Engine:   engine,
			Series:   series,
		}))
	}

	return signals
}

func (suite *RuleStrategyTestSuite) TestPriceThresholdRules() {
	s, err := LoadRuleStrategy(`
name: threshold
rules:
  buy: "$price < 95"
  sell: "$price > 105"
`, suite.logger)
	suite.Require().NoError(err)

	signals := suite.tickAll(s, []float64{100, 94, 100, 106})

	suite.Equal(types.SignalNone, signals[0])
	suite.Equal(types.SignalBuy, signals[1])
	suite.Equal(types.SignalNone, signals[2])
	suite.Equal(types.SignalSell, signals[3])
}

func (suite *RuleStrategyTestSuite) TestBuyEvaluatedBeforeSell() {
	s, err := LoadRuleStrategy(`
name: overlap
rules:
  buy: "$price > 0"
  sell: "$price > 0"
`, suite.logger)
	suite.Require().NoError(err)

	signals := suite.tickAll(s, []float64{100})
	suite.Equal(types.SignalBuy, signals[0])
}

func (suite *RuleStrategyTestSuite) TestIndicatorWarmupYieldsNone() {
	s, err := LoadRuleStrategy(`
name: warmup
indicators:
  ma:
    kind: sma
    period: "5"
rules:
  buy: "$ma > 0"
  sell: "$ma < 0"
`, suite.logger)
	suite.Require().NoError(err)

	signals := suite.tickAll(s, []float64{10, 11, 12, 13, 14})

	// The SMA needs five bars; until then $ma is unset and both
	// conditions are false.
	for i := 0; i < 4; i++ {
		suite.Equal(types.SignalNone, signals[i], "tick %d", i)
	}

	suite.Equal(types.SignalBuy, signals[4])
}

func (suite *RuleStrategyTestSuite) TestCrossoverStrategy() {
	s, err := LoadRuleStrategy(`
name: ma_cross
indicators:
  fast:
    kind: sma
    period: "2"
  slow:
    kind: sma
    period: "4"
rules:
  buy: "CROSS_ABOVE($fast, $slow)"
  sell: "CROSS_BELOW($fast, $slow)"
`, suite.logger)
	suite.Require().NoError(err)

	// Downtrend then sharp reversal: the fast average crosses above the
	// slow one exactly once.
	signals := suite.tickAll(s, []float64{20, 18, 16, 14, 13, 19, 24, 25})

	buys := 0
	for _, signal := range signals {
		if signal == types.SignalBuy {
			buys++
		}
	}

	suite.Equal(1, buys)
}

func (suite *RuleStrategyTestSuite) TestParameterReferenceAndClamping() {
	s, err := LoadRuleStrategy(`
name: tunable
parameters:
  threshold:
    type: float
    default: 95
    min: 90
    max: 110
rules:
  buy: "$price < $threshold"
  sell: "$price > 200"
`, suite.logger)
	suite.Require().NoError(err)

	suite.Run("default applies", func() {
		signals := suite.tickAll(s, []float64{94})
		suite.Equal(types.SignalBuy, signals[0])
	})

	suite.Run("set parameter", func() {
		suite.Require().NoError(s.SetParameter("threshold", 93))

		signals := suite.tickAll(s, []float64{94})
		suite.Equal(types.SignalNone, signals[0])
	})

	suite.Run("clamped to max", func() {
		suite.Require().NoError(s.SetParameter("threshold", 500))

		signals := suite.tickAll(s, []float64{109})
		suite.Equal(types.SignalBuy, signals[0])

		signals = suite.tickAll(s, []float64{111})
		suite.Equal(types.SignalNone, signals[0])
	})

	suite.Run("unknown parameter rejected", func() {
		suite.Error(s.SetParameter("nope", 1))
	})
}

func (suite *RuleStrategyTestSuite) TestParameterDrivenIndicatorPeriod() {
	s, err := LoadRuleStrategy(`
name: param_period
parameters:
  window:
    type: int
    default: 3
indicators:
  ma:
    kind: sma
    period: "$window"
rules:
  buy: "$ma > 0"
  sell: "$ma < 0"
`, suite.logger)
	suite.Require().NoError(err)

	signals := suite.tickAll(s, []float64{10, 11, 12})

	suite.Equal(types.SignalNone, signals[0])
	suite.Equal(types.SignalNone, signals[1])
	suite.Equal(types.SignalBuy, signals[2])
}

func (suite *RuleStrategyTestSuite) TestResetClearsCrossoverState() {
	s, err := LoadRuleStrategy(`
name: resettable
rules:
  buy: "CROSS_ABOVE($price, 100)"
  sell: "$price < 0"
`, suite.logger)
	suite.Require().NoError(err)

	signals := suite.tickAll(s, []float64{99, 101})
	suite.Equal(types.SignalBuy, signals[1])

	s.Reset()

	// After a reset the first tick has no previous value, so the same
	// crossing price alone cannot fire.
	signals = suite.tickAll(s, []float64{101})
	suite.Equal(types.SignalNone, signals[0])
}
