package strategy

import (
	"strings"

	"go.uber.org/zap"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/expr"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/indicator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
)

// RuleStrategy evaluates a declarative configuration: named indicator
// declarations plus buy/sell condition strings. On each tick it
// recomputes the declared indicators, binds their latest values together
// with price, volume, and the strategy parameters into the evaluator's
// variable set, and evaluates buy before sell.
type RuleStrategy struct {
	config RuleConfig
	params map[string]float64
	vars   *expr.VarSet
	eval   *expr.Evaluator
	logger *logger.Logger
}

// NewRuleStrategy builds a strategy from an already-validated config.
// Parameter values start at their declared defaults.
func NewRuleStrategy(config RuleConfig, log *logger.Logger) *RuleStrategy {
	params := make(map[string]float64, len(config.Parameters))
	for name, spec := range config.Parameters {
		params[name] = spec.Default
	}

	vars := expr.NewVarSet()

	return &RuleStrategy{
		config: config,
		params: params,
		vars:   vars,
		eval:   expr.NewEvaluator(vars),
		logger: log,
	}
}

// LoadRuleStrategy parses a YAML config document and builds a strategy
// from it.
func LoadRuleStrategy(content string, log *logger.Logger) (*RuleStrategy, error) {
	config, err := ParseRuleConfig(content)
	if err != nil {
		return nil, err
	}

	return NewRuleStrategy(config, log), nil
}

// Name implements Strategy.
func (s *RuleStrategy) Name() string {
	return s.config.Name
}

// Config returns the underlying configuration document.
func (s *RuleStrategy) Config() RuleConfig {
	return s.config
}

// SetParameter overrides a declared parameter, clamped to its min/max
// bounds when they are set.
func (s *RuleStrategy) SetParameter(name string, value float64) error {
	spec, ok := s.config.Parameters[name]
	if !ok {
		return errors.Newf(errors.ErrCodeMissingParameter, "strategy %s has no parameter %q", s.config.Name, name)
	}

	if spec.Min != 0 || spec.Max != 0 {
		if value < spec.Min {
			value = spec.Min
		}

		if value > spec.Max {
			value = spec.Max
		}
	}

	s.params[name] = value

	return nil
}

// Reset implements Resettable: it discards all variable state, including
// the previous values that feed crossover predicates.
func (s *RuleStrategy) Reset() {
	s.vars.Reset()
}

// OnTick implements Strategy. Any fault in the tick sequence is recovered
// to SignalNone; the hot path never propagates a panic.
func (s *RuleStrategy) OnTick(ctx *Context) (signal types.SignalType) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("rule strategy tick recovered",
				zap.String("strategy", s.config.Name),
				zap.Any("panic", r),
			)

			signal = types.SignalNone
		}
	}()

	s.bindIndicators(ctx.Engine)

	s.vars.Set("price", ctx.Bar.MarkPrice())
	s.vars.Set("volume", ctx.Bar.Volume)

	for name, value := range s.params {
		s.vars.Set(name, value)
	}

	if s.eval.Evaluate(s.config.Rules.Buy) {
		return types.SignalBuy
	}

	if s.eval.Evaluate(s.config.Rules.Sell) {
		return types.SignalSell
	}

	return types.SignalNone
}

// bindIndicators recomputes every declared indicator and binds the
// available results. An indicator still inside its warm-up window leaves
// its variables unset, which makes conditions referencing them false.
func (s *RuleStrategy) bindIndicators(engine *indicator.Engine) {
	for name, spec := range s.config.Indicators {
		s.bindIndicator(engine, name, spec)
	}
}

func (s *RuleStrategy) bindIndicator(engine *indicator.Engine, name string, spec IndicatorSpec) {
	kind := indicator.Kind(strings.ToLower(spec.Kind))

	switch kind {
	case indicator.KindSMA, indicator.KindEMA:
		period, err := s.intParam(spec.Period, 20)
		if err != nil {
			return
		}

		value := engine.SMA(period)
		if kind == indicator.KindEMA {
			value = engine.EMA(period)
		}

		if value.IsSome() {
			s.vars.Set(name, value.Unwrap())
		}
	case indicator.KindRSI:
		period, err := s.intParam(spec.Period, 14)
		if err != nil {
			return
		}

		if value := engine.RSI(period); value.IsSome() {
			s.vars.Set(name, value.Unwrap())
		}
	case indicator.KindATR:
		period, err := s.intParam(spec.Period, 14)
		if err != nil {
			return
		}

		if value := engine.ATR(period); value.IsSome() {
			s.vars.Set(name, value.Unwrap())
		}
	case indicator.KindMACD:
		fast, errFast := s.intParam(spec.Fast, 12)
		slow, errSlow := s.intParam(spec.Slow, 26)
		signal, errSignal := s.intParam(spec.Signal, 9)

		if errFast != nil || errSlow != nil || errSignal != nil {
			return
		}

		if value := engine.MACD(fast, slow, signal); value.IsSome() {
			macd := value.Unwrap()
			s.vars.Set(name, macd.Line)
			s.vars.Set(name+"_signal", macd.Signal)
			s.vars.Set(name+"_hist", macd.Histogram)
		}
	case indicator.KindBollinger:
		period, errPeriod := s.intParam(spec.Period, 20)
		stdDev, errStd := resolveNumber(spec.StdDev, s.params, 2.0)

		if errPeriod != nil || errStd != nil {
			return
		}

		if value := engine.Bollinger(period, stdDev); value.IsSome() {
			bands := value.Unwrap()
			s.vars.Set(name, bands.Middle)
			s.vars.Set(name+"_upper", bands.Upper)
			s.vars.Set(name+"_middle", bands.Middle)
			s.vars.Set(name+"_lower", bands.Lower)
		}
	case indicator.KindStochastic:
		kPeriod, errK := s.intParam(spec.KPeriod, 14)
		dPeriod, errD := s.intParam(spec.DPeriod, 3)

		if errK != nil || errD != nil {
			return
		}

		if value := engine.Stochastic(kPeriod, dPeriod); value.IsSome() {
			stoch := value.Unwrap()
			s.vars.Set(name+"_k", stoch.K)
			s.vars.Set(name+"_d", stoch.D)
		}
	}
}

func (s *RuleStrategy) intParam(value string, fallback float64) (int, error) {
	resolved, err := resolveNumber(value, s.params, fallback)
	if err != nil {
		return 0, err
	}

	return int(resolved), nil
}
