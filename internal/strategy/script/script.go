package script

import (
	"time"

	"github.com/dop251/goja"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/indicator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/strategy"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
)

// State is the lifecycle state of a script strategy:
// Loaded -> Validated -> Ready -> Executing -> Ready | Faulted.
type State string

const (
	StateLoaded    State = "loaded"
	StateValidated State = "validated"
	StateReady     State = "ready"
	StateExecuting State = "executing"
	StateFaulted   State = "faulted"
)

// DefaultTickTimeout is the hard wall-clock budget for one script tick.
const DefaultTickTimeout = 100 * time.Millisecond

// entryPoint is the global function every script must expose.
const entryPoint = "onTick"

// Strategy executes a user-supplied JavaScript strategy inside an
// interpreter sandbox. Each tick runs on a dedicated worker with a hard
// timeout; a tick that times out is abandoned (the interpreter is
// interrupted and the result discarded) and yields SignalNone. The worker
// only ever sees private snapshot copies of the tick context, so an
// abandoned worker cannot corrupt shared state after the fact.
type Strategy struct {
	source      string
	program     *goja.Program
	name        string
	description string
	parameters  map[string]any

	state        State
	timeout      time.Duration
	timeoutCount int
	logger       *logger.Logger
}

// Load parses and compiles script source. The script is not executed
// until it has passed validation.
func Load(source string, log *logger.Logger) (*Strategy, error) {
	program, err := goja.Compile("strategy.js", source, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeScriptLoadFailed, "failed to compile script", err)
	}

	return &Strategy{
		source:     source,
		program:    program,
		name:       "unnamed script strategy",
		parameters: nil,
		state:      StateLoaded,
		timeout:    DefaultTickTimeout,
		logger:     log,
	}, nil
}

// State returns the current lifecycle state.
func (s *Strategy) State() State {
	return s.state
}

// SetTimeout overrides the per-tick wall-clock budget.
func (s *Strategy) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

// TimeoutCount reports how many ticks were abandoned on timeout. Repeated
// timeouts are reported, never fatal.
func (s *Strategy) TimeoutCount() int {
	return s.timeoutCount
}

// Name implements strategy.Strategy.
func (s *Strategy) Name() string {
	return s.name
}

// Description returns the script's self-declared description.
func (s *Strategy) Description() string {
	return s.description
}

// Parameters returns the script's self-declared parameter map.
func (s *Strategy) Parameters() map[string]any {
	return s.parameters
}

// Validate statically scans the source against the capability denylist
// and, when clean, runs the script top level once to extract metadata and
// confirm the entry point. Any violation blocks the transition to Ready.
func (s *Strategy) Validate() []Violation {
	violations := ScanSource(s.source)
	if len(violations) > 0 {
		s.state = StateFaulted

		return violations
	}

	s.state = StateValidated

	if err := s.loadMetadata(); err != nil {
		s.state = StateFaulted

		return []Violation{{
			Code:    "SBX100",
			Message: err.Error(),
			Line:    0,
		}}
	}

	s.state = StateReady

	return nil
}

// loadMetadata runs the script top level on a throwaway interpreter (with
// the same timeout budget as a tick) and reads the optional name,
// description, and parameters globals plus the required entry point.
func (s *Strategy) loadMetadata() error {
	vm := goja.New()

	type result struct {
		err error
	}

	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: errors.Newf(errors.ErrCodeScriptLoadFailed, "script top level panicked: %v", r)}
			}
		}()

		if _, err := vm.RunProgram(s.program); err != nil {
			done <- result{err: errors.Wrap(errors.ErrCodeScriptLoadFailed, "script top level failed", err)}

			return
		}

		if _, ok := goja.AssertFunction(vm.Get(entryPoint)); !ok {
			done <- result{err: errors.Newf(errors.ErrCodeScriptEntryMissing, "script does not define %s(ctx)", entryPoint)}

			return
		}

		if v := vm.Get("name"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			s.name = v.String()
		}

		if v := vm.Get("description"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			s.description = v.String()
		}

		if v := vm.Get("parameters"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			if exported, ok := v.Export().(map[string]any); ok {
				s.parameters = exported
			}
		}

		done <- result{err: nil}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.err
	case <-timer.C:
		vm.Interrupt("metadata timeout")

		return errors.New(errors.ErrCodeScriptLoadFailed, "script top level exceeded the execution budget")
	}
}

// OnTick implements strategy.Strategy. The state transitions back to
// Ready after every attempt regardless of outcome; timeouts, thrown
// errors, and unrecognized return values all yield SignalNone.
func (s *Strategy) OnTick(ctx *strategy.Context) types.SignalType {
	if s.state != StateReady {
		return types.SignalNone
	}

	s.state = StateExecuting
	defer func() { s.state = StateReady }()

	return s.execute(buildSnapshot(ctx))
}

// Reset implements strategy.Resettable. Each tick already runs on a fresh
// interpreter, so only the timeout counter carries state.
func (s *Strategy) Reset() {
	s.timeoutCount = 0
}

// Close releases the strategy: subsequent ticks are refused. Any worker
// still running stays detached until its interpreter interrupt lands.
func (s *Strategy) Close() error {
	s.state = StateFaulted

	return nil
}

// execute runs one tick on a dedicated worker and joins it with the
// configured timeout. The join is a bounded wait, not a cancellation: on
// timeout the interpreter is interrupted and the call abandoned.
func (s *Strategy) execute(snapshot map[string]any) types.SignalType {
	vm := goja.New()
	results := make(chan types.SignalType, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- types.SignalNone
			}
		}()

		if _, err := vm.RunProgram(s.program); err != nil {
			results <- types.SignalNone

			return
		}

		entry, ok := goja.AssertFunction(vm.Get(entryPoint))
		if !ok {
			results <- types.SignalNone

			return
		}

		value, err := entry(goja.Undefined(), vm.ToValue(snapshot))
		if err != nil {
			results <- types.SignalNone

			return
		}

		results <- types.SignalFromValue(value.Export())
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case signal := <-results:
		return signal
	case <-timer.C:
		vm.Interrupt("tick timeout")

		s.timeoutCount++
		s.logger.Warn("script tick abandoned on timeout",
			zap.String("strategy", s.name),
			zap.Duration("timeout", s.timeout),
			zap.Int("timeout_count", s.timeoutCount),
		)

		return types.SignalNone
	}
}

// buildSnapshot assembles the immutable context view handed to the
// script: plain values and private copies only, nothing shared.
func buildSnapshot(ctx *strategy.Context) map[string]any {
	prices := ctx.Series.PricesCopy()
	bars := ctx.Series.BarsCopy()

	return map[string]any{
		"price":     ctx.Bar.MarkPrice(),
		"volume":    ctx.Bar.Volume,
		"timestamp": ctx.Bar.Time.UnixNano(),
		"barIndex":  ctx.BarIndex,
		"history":   prices,
		"position": map[string]any{
			"quantity":      ctx.Position.Quantity,
			"averagePrice":  ctx.Position.AvgEntryPrice,
			"unrealizedPnl": ctx.Position.UnrealizedPnL,
			"isLong":        ctx.Position.IsLong(),
			"isShort":       ctx.Position.IsShort(),
		},
		"account": map[string]any{
			"balance":       ctx.Account.Balance,
			"equity":        ctx.Account.Equity,
			"available":     ctx.Account.Available,
			"positionCount": ctx.Account.PositionCount,
			"totalPnl":      ctx.Account.TotalPnL,
		},
		"indicators": map[string]any{
			"sma": func(period int) any {
				return exportScalar(indicator.SMAOf(prices, period))
			},
			"ema": func(period int) any {
				return exportScalar(indicator.EMAOf(prices, period))
			},
			"rsi": func(period int) any {
				return exportScalar(indicator.RSIOf(prices, period))
			},
			"atr": func(period int) any {
				return exportScalar(indicator.ATROf(bars, period))
			},
			"macd": func(fast, slow, signal int) any {
				value := indicator.MACDOf(prices, fast, slow, signal)
				if value.IsNone() {
					return nil
				}

				macd := value.Unwrap()

				return map[string]any{
					"line":      macd.Line,
					"signal":    macd.Signal,
					"histogram": macd.Histogram,
				}
			},
			"bollinger": func(period int, stdDev float64) any {
				value := indicator.BollingerOf(prices, period, stdDev)
				if value.IsNone() {
					return nil
				}

				bands := value.Unwrap()

				return map[string]any{
					"upper":  bands.Upper,
					"middle": bands.Middle,
					"lower":  bands.Lower,
				}
			},
			"stochastic": func(kPeriod, dPeriod int) any {
				value := indicator.StochasticOf(bars, kPeriod, dPeriod)
				if value.IsNone() {
					return nil
				}

				stoch := value.Unwrap()

				return map[string]any{
					"k": stoch.K,
					"d": stoch.D,
				}
			},
		},
	}
}

func exportScalar(value optional.Option[float64]) any {
	if value.IsNone() {
		return nil
	}

	return value.Unwrap()
}
