package replay

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/aggregator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/history"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/indicator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/strategy"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
)

// annualizationFactor is the bar count used to annualize the Sharpe
// ratio, assuming daily bars.
const annualizationFactor = 252

// TickEvaluator turns one tick context into a trading decision. The
// aggregator is the canonical implementation; a single strategy can be
// adapted with NewSingleStrategyEvaluator.
type TickEvaluator interface {
	ProcessTick(ctx *strategy.Context) aggregator.Decision
	RecordRealizedPnL(contributors []uuid.UUID, pnl float64)
	Reset()
}

// singleStrategyEvaluator adapts one strategy to the TickEvaluator
// interface for runs that do not need aggregation.
type singleStrategyEvaluator struct {
	id       uuid.UUID
	strategy strategy.Strategy
}

// NewSingleStrategyEvaluator wraps a single strategy as a TickEvaluator.
func NewSingleStrategyEvaluator(s strategy.Strategy) TickEvaluator {
	return &singleStrategyEvaluator{id: uuid.New(), strategy: s}
}

func (e *singleStrategyEvaluator) ProcessTick(ctx *strategy.Context) aggregator.Decision {
	signal := e.strategy.OnTick(ctx)
	if !signal.IsActionable() {
		return aggregator.Decision{Signal: types.SignalNone}
	}

	return aggregator.Decision{
		Signal:         signal,
		Contributors:   []string{e.strategy.Name()},
		ContributorIDs: []uuid.UUID{e.id},
	}
}

func (e *singleStrategyEvaluator) RecordRealizedPnL(contributors []uuid.UUID, pnl float64) {}

func (e *singleStrategyEvaluator) Reset() {
	if r, ok := e.strategy.(strategy.Resettable); ok {
		r.Reset()
	}
}

// BarEvent describes the outcome of replaying one bar: the bar itself,
// the post-bar position and equity, and the fill it produced, if any.
type BarEvent struct {
	BarIndex int
	Bar      types.Bar
	Position types.Position
	Equity   float64
	Trade    optional.Option[types.TradeRecord]
}

// Driver replays a fixed bar dataset through a tick evaluator one bar at
// a time, maintaining the simulated position, equity curve, and trade
// log. The full dataset is immutable; strategies only ever see the bars
// replayed so far.
type Driver struct {
	config    Config
	bars      []types.Bar
	evaluator TickEvaluator
	store     *TradeStore
	logger    *logger.Logger

	mu          sync.Mutex
	cursor      int
	visible     *history.Series
	engine      *indicator.Engine
	position    types.Position
	equityCurve []float64
	openedBy    []uuid.UUID
	onBar       optional.Option[func(BarEvent)]

	playing  atomic.Bool
	stopFlag atomic.Bool
	playDone chan struct{}
}

// NewDriver creates a driver over the given dataset. The trade store is
// owned by the driver and closed with it.
func NewDriver(config Config, bars []types.Bar, evaluator TickEvaluator, log *logger.Logger) (*Driver, error) {
	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeReplayNoData, "replay dataset is empty")
	}

	store, err := NewTradeStore(log)
	if err != nil {
		return nil, err
	}

	visible := history.NewSeries()

	return &Driver{
		config:    config,
		bars:      bars,
		evaluator: evaluator,
		store:     store,
		logger:    log,
		cursor:    0,
		visible:   visible,
		engine:    indicator.NewEngine(visible),
	}, nil
}

// SetBarListener registers a callback invoked after every replayed bar
// with that bar's outcome. Pass nil to remove the listener.
func (d *Driver) SetBarListener(fn func(BarEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fn == nil {
		d.onBar = optional.None[func(BarEvent)]()

		return
	}

	d.onBar = optional.Some(fn)
}

// EquityCurve returns a copy of the per-bar equity values so far.
func (d *Driver) EquityCurve() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]float64, len(d.equityCurve))
	copy(out, d.equityCurve)

	return out
}

// Cursor returns the number of bars replayed so far.
func (d *Driver) Cursor() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.cursor
}

// Len returns the total number of bars in the dataset.
func (d *Driver) Len() int {
	return len(d.bars)
}

// Position returns the current simulated position.
func (d *Driver) Position() types.Position {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.position
}

// Equity returns the current account equity.
func (d *Driver) Equity() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.equity()
}

func (d *Driver) equity() float64 {
	return d.config.InitialCapital + d.position.RealizedPnL + d.position.UnrealizedPnL
}

func (d *Driver) account() types.AccountSnapshot {
	balance := d.config.InitialCapital + d.position.RealizedPnL

	positionCount := 0
	if !d.position.IsFlat() {
		positionCount = 1
	}

	return types.AccountSnapshot{
		Balance:       balance,
		Equity:        d.equity(),
		Available:     balance,
		PositionCount: positionCount,
		TotalPnL:      d.position.RealizedPnL + d.position.UnrealizedPnL,
	}
}

// Step advances the replay by exactly one bar. It returns false when the
// dataset is exhausted.
func (d *Driver) Step() (bool, error) {
	if d.playing.Load() {
		return false, errors.New(errors.ErrCodeReplayAlreadyBusy, "replay is playing; pause it before stepping")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.step()
}

// step replays one bar. Caller holds d.mu.
func (d *Driver) step() (bool, error) {
	if d.cursor >= len(d.bars) {
		return false, nil
	}

	bar := d.bars[d.cursor]
	barIndex := d.cursor

	d.visible.Append(bar)
	d.cursor++

	d.position.MarkToMarket(bar.MarkPrice())

	ctx := &strategy.Context{
		BarIndex: barIndex,
		Bar:      bar,
		Position: d.position,
		Account:  d.account(),
		Engine:   d.engine,
		Series:   d.visible,
	}

	trade := optional.None[types.TradeRecord]()

	decision := d.evaluator.ProcessTick(ctx)
	if decision.Signal.IsActionable() {
		filled, err := d.apply(decision, barIndex, bar)
		if err != nil {
			return false, err
		}

		trade = filled
	}

	d.position.MarkToMarket(bar.MarkPrice())
	d.equityCurve = append(d.equityCurve, d.equity())

	if d.onBar.IsSome() {
		d.onBar.Unwrap()(BarEvent{
			BarIndex: barIndex,
			Bar:      bar,
			Position: d.position,
			Equity:   d.equity(),
			Trade:    trade,
		})
	}

	return d.cursor < len(d.bars), nil
}

// apply executes one actionable decision against the position and
// returns the resulting fill, if any. Buy and sell flatten an opposite
// position first; close signals only act when the position sign matches.
func (d *Driver) apply(decision aggregator.Decision, barIndex int, bar types.Bar) (optional.Option[types.TradeRecord], error) {
	none := optional.None[types.TradeRecord]()
	price := bar.MarkPrice()
	size := d.tradeSize()

	switch decision.Signal {
	case types.SignalBuy:
		if d.position.IsLong() {
			return none, nil
		}

		if d.position.IsShort() {
			d.realize(price)
		}

		d.position.Open(size, price)
		d.openedBy = decision.ContributorIDs

		return d.record(barIndex, bar, decision, size)
	case types.SignalSell:
		if d.position.IsShort() {
			return none, nil
		}

		if d.position.IsLong() {
			d.realize(price)
		}

		d.position.Open(-size, price)
		d.openedBy = decision.ContributorIDs

		return d.record(barIndex, bar, decision, -size)
	case types.SignalCloseLong:
		if !d.position.IsLong() {
			return none, nil
		}

		quantity := -d.position.Quantity

		d.realize(price)

		return d.record(barIndex, bar, decision, quantity)
	case types.SignalCloseShort:
		if !d.position.IsShort() {
			return none, nil
		}

		quantity := -d.position.Quantity

		d.realize(price)

		return d.record(barIndex, bar, decision, quantity)
	default:
		return none, nil
	}
}

// realize closes the open position at price and attributes the realized
// amount to the strategies that opened it.
func (d *Driver) realize(price float64) {
	realized := d.position.Realize(price)

	if len(d.openedBy) > 0 {
		d.evaluator.RecordRealizedPnL(d.openedBy, realized)
		d.openedBy = nil
	}
}

func (d *Driver) tradeSize() float64 {
	size, _ := decimal.NewFromFloat(d.config.TradeSize).
		Round(d.config.DecimalPrecision).
		Float64()

	return size
}

func (d *Driver) record(barIndex int, bar types.Bar, decision aggregator.Decision, quantity float64) (optional.Option[types.TradeRecord], error) {
	trade := types.TradeRecord{
		ID:       uuid.New().String(),
		BarIndex: barIndex,
		Time:     bar.Time,
		Signal:   decision.Signal,
		Price:    bar.MarkPrice(),
		Quantity: quantity,
		Reason:   reasonFor(decision),
	}

	d.logger.Debug("fill",
		zap.Int("bar", barIndex),
		zap.String("signal", string(decision.Signal)),
		zap.Float64("price", trade.Price),
		zap.Float64("quantity", quantity),
	)

	if err := d.store.Append(trade); err != nil {
		return optional.None[types.TradeRecord](), err
	}

	return optional.Some(trade), nil
}

func reasonFor(decision aggregator.Decision) string {
	if len(decision.Contributors) == 0 {
		return string(decision.Signal)
	}

	reason := string(decision.Signal) + " ("

	for i, name := range decision.Contributors {
		if i > 0 {
			reason += ", "
		}

		reason += name
	}

	return reason + ")"
}

// SeekTo resets the session and replays deterministically up to and
// including the bar at index.
func (d *Driver) SeekTo(index int) error {
	if d.playing.Load() {
		return errors.New(errors.ErrCodeReplayAlreadyBusy, "replay is playing; pause it before seeking")
	}

	if index < 0 || index >= len(d.bars) {
		return errors.Newf(errors.ErrCodeReplayOutOfRange, "seek index %d out of range [0, %d)", index, len(d.bars))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.reset(); err != nil {
		return err
	}

	for i := 0; i <= index; i++ {
		if _, err := d.step(); err != nil {
			return err
		}
	}

	return nil
}

// RunAll replays every remaining bar. The optional progress callback is
// invoked after each bar with (current, total).
func (d *Driver) RunAll(progress optional.Option[func(current, total int)]) error {
	if d.playing.Load() {
		return errors.New(errors.ErrCodeReplayAlreadyBusy, "replay is playing; pause it before running")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		more, err := d.step()
		if err != nil {
			return err
		}

		if progress.IsSome() {
			progress.Unwrap()(d.cursor, len(d.bars))
		}

		if !more {
			return nil
		}
	}
}

// Play starts stepping through the remaining bars on a background
// goroutine, pausing PlayDelay between bars. The stop flag is only
// checked between bars; a bar in flight always completes.
func (d *Driver) Play() error {
	if !d.playing.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeReplayAlreadyBusy, "replay is already playing")
	}

	d.stopFlag.Store(false)
	d.playDone = make(chan struct{})

	go func() {
		defer close(d.playDone)
		defer d.playing.Store(false)

		for !d.stopFlag.Load() {
			d.mu.Lock()
			more, err := d.step()
			d.mu.Unlock()

			if err != nil {
				d.logger.Error("playback stopped on error", zap.Error(err))

				return
			}

			if !more {
				return
			}

			if d.config.PlayDelay > 0 {
				time.Sleep(d.config.PlayDelay)
			}
		}
	}()

	return nil
}

// Pause requests a cooperative stop and waits for the playback goroutine
// to finish its current bar and exit.
func (d *Driver) Pause() {
	if !d.playing.Load() {
		return
	}

	d.stopFlag.Store(true)

	if d.playDone != nil {
		<-d.playDone
	}
}

// Reset restores the session to the pre-replay state: no visible bars,
// flat position, empty trade log, and reset strategies.
func (d *Driver) Reset() error {
	d.Pause()

	d.mu.Lock()
	defer d.mu.Unlock()

	return d.reset()
}

// reset restores initial state. Caller holds d.mu.
func (d *Driver) reset() error {
	d.cursor = 0
	d.visible = history.NewSeries()
	d.engine = indicator.NewEngine(d.visible)
	d.position = types.Position{}
	d.equityCurve = nil
	d.openedBy = nil

	d.evaluator.Reset()

	return d.store.Cleanup()
}

// Close releases the driver's resources.
func (d *Driver) Close() error {
	d.Pause()

	return d.store.Close()
}

// Summary computes the end-of-run statistics from the equity curve and
// trade log.
func (d *Driver) Summary() (types.ReplaySummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	trades, err := d.store.Trades()
	if err != nil {
		return types.ReplaySummary{}, err
	}

	ending := d.equity()

	summary := types.ReplaySummary{
		TotalTrades:    len(trades),
		EndingEquity:   ending,
		TotalReturnPct: (ending - d.config.InitialCapital) / d.config.InitialCapital * 100,
		MaxDrawdownPct: maxDrawdownPct(d.equityCurve),
		SharpeRatio:    sharpeRatio(d.equityCurve),
		Trades:         trades,
	}

	return summary, nil
}

// maxDrawdownPct is the largest peak-to-trough equity loss over the
// curve, in percent.
func maxDrawdownPct(curve []float64) float64 {
	var peak, maxDD float64

	for _, equity := range curve {
		if equity > peak {
			peak = equity
		}

		if peak > 0 {
			dd := (peak - equity) / peak * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// sharpeRatio is the annualized mean over standard deviation of per-bar
// returns. Zero when the curve is too short or flat.
func sharpeRatio(curve []float64) float64 {
	if len(curve) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		if curve[i-1] == 0 {
			continue
		}

		returns = append(returns, (curve[i]-curve[i-1])/curve[i-1])
	}

	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns) - 1)

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(annualizationFactor)
}
