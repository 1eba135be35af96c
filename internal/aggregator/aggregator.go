package aggregator

import (
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/strategy"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/pkg/errors"
)

// MaxStrategies is the hard cap on concurrently registered strategies.
const MaxStrategies = 10

// Mode selects how the aggregator combines per-strategy signals into one
// decision per tick.
type Mode string

const (
	// ModeFirstSignal emits the first actionable signal in registration
	// order.
	ModeFirstSignal Mode = "first_signal"
	// ModeIndependent is an alias of ModeFirstSignal kept for configs
	// that phrase the default as "run strategies independently".
	ModeIndependent Mode = "independent"
	// ModeMajorityVote emits the most common actionable signal. Ties keep
	// the signal that reached the winning count first in registration
	// order.
	ModeMajorityVote Mode = "majority_vote"
	// ModeUnanimous emits a signal only when every cast vote agrees on
	// the same actionable signal. Abstentions are discarded before
	// agreement is judged.
	ModeUnanimous Mode = "unanimous"
	// ModeWeightedVote weights each strategy's vote by its realized
	// performance.
	ModeWeightedVote Mode = "weighted_vote"
)

// ParseMode validates a mode string.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case ModeFirstSignal, ModeIndependent, ModeMajorityVote, ModeUnanimous, ModeWeightedVote:
		return Mode(value), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidAggregation, "unknown aggregation mode %q", value)
	}
}

// Handle is the aggregator's bookkeeping record for one registered
// strategy.
type Handle struct {
	ID          uuid.UUID
	Name        string
	Enabled     bool
	Running     bool
	RealizedPnL float64
	Strategy    strategy.Strategy
}

// Decision is the outcome of one aggregated tick.
type Decision struct {
	Signal types.SignalType
	// Contributors names the strategies whose signals produced the
	// decision. Empty when the decision is SignalNone.
	Contributors []string
	// ContributorIDs carries the matching handle IDs in the same order.
	// Names may collide across handles; IDs are the attribution keys.
	ContributorIDs []uuid.UUID
}

// Aggregator fans one tick out to up to MaxStrategies registered
// strategies and folds their signals into a single decision according to
// the active mode. A strategy only votes while it is both enabled and
// running; disabled or stopped strategies are skipped entirely, they do
// not vote SignalNone.
type Aggregator struct {
	mu      sync.Mutex
	mode    Mode
	handles []*Handle
	byID    map[uuid.UUID]*Handle
	logger  *logger.Logger
}

// New creates an empty aggregator in first-signal mode.
func New(log *logger.Logger) *Aggregator {
	return &Aggregator{
		mode:    ModeFirstSignal,
		handles: nil,
		byID:    make(map[uuid.UUID]*Handle),
		logger:  log,
	}
}

// Mode returns the active aggregation mode.
func (a *Aggregator) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.mode
}

// SetMode switches the aggregation mode. Takes effect from the next tick.
func (a *Aggregator) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.mode = mode

	return nil
}

// Add registers a strategy and returns its handle ID. Strategies start
// enabled but stopped.
func (a *Aggregator) Add(s strategy.Strategy) (uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.handles) >= MaxStrategies {
		return uuid.Nil, errors.Newf(errors.ErrCodeAggregatorCapacity, "cannot register more than %d strategies", MaxStrategies)
	}

	handle := &Handle{
		ID:          uuid.New(),
		Name:        s.Name(),
		Enabled:     true,
		Running:     false,
		RealizedPnL: 0,
		Strategy:    s,
	}

	a.handles = append(a.handles, handle)
	a.byID[handle.ID] = handle

	a.logger.Info("strategy registered",
		zap.String("id", handle.ID.String()),
		zap.String("name", handle.Name),
		zap.Int("count", len(a.handles)),
	)

	return handle.ID, nil
}

// Remove unregisters a strategy, closing it when it holds resources.
func (a *Aggregator) Remove(id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	handle, ok := a.byID[id]
	if !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "no strategy with id %s", id)
	}

	delete(a.byID, id)

	for i, h := range a.handles {
		if h == handle {
			a.handles = append(a.handles[:i], a.handles[i+1:]...)

			break
		}
	}

	if closer, ok := handle.Strategy.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.logger.Warn("strategy close failed",
				zap.String("id", id.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// SetEnabled toggles whether a strategy participates in decisions.
func (a *Aggregator) SetEnabled(id uuid.UUID, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	handle, ok := a.byID[id]
	if !ok {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "no strategy with id %s", id)
	}

	handle.Enabled = enabled

	return nil
}

// StartAll marks every registered strategy as running.
func (a *Aggregator) StartAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, handle := range a.handles {
		handle.Running = true
	}
}

// StopAll marks every registered strategy as stopped.
func (a *Aggregator) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, handle := range a.handles {
		handle.Running = false
	}
}

// Handles returns a snapshot of the registered strategy records.
func (a *Aggregator) Handles() []Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Handle, 0, len(a.handles))
	for _, handle := range a.handles {
		out = append(out, *handle)
	}

	return out
}

// Reset restores every strategy's internal state and clears accumulated
// performance stats.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, handle := range a.handles {
		handle.RealizedPnL = 0

		if r, ok := handle.Strategy.(strategy.Resettable); ok {
			r.Reset()
		}
	}
}

// ResetStats clears accumulated performance stats without touching
// strategy state.
func (a *Aggregator) ResetStats() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, handle := range a.handles {
		handle.RealizedPnL = 0
	}
}

// RecordRealizedPnL attributes realized profit and loss from a closed
// position to the handles that contributed the opening decision.
func (a *Aggregator) RecordRealizedPnL(contributors []uuid.UUID, pnl float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range contributors {
		if handle, ok := a.byID[id]; ok {
			handle.RealizedPnL += pnl
		}
	}
}

// vote is one strategy's actionable signal in registration order.
type vote struct {
	id     uuid.UUID
	name   string
	signal types.SignalType
	weight float64
}

// tickEntry is a point-in-time view of one votable handle, captured
// under the lock so control-surface changes cannot race a tick in
// flight.
type tickEntry struct {
	id       uuid.UUID
	name     string
	strategy strategy.Strategy
	weight   float64
}

// ProcessTick runs every enabled running strategy against the tick
// context and folds the actionable signals per the active mode.
func (a *Aggregator) ProcessTick(ctx *strategy.Context) Decision {
	a.mu.Lock()

	mode := a.mode

	entries := make([]tickEntry, 0, len(a.handles))

	for _, handle := range a.handles {
		if !handle.Enabled || !handle.Running {
			continue
		}

		entries = append(entries, tickEntry{
			id:       handle.ID,
			name:     handle.Name,
			strategy: handle.Strategy,
			weight:   voteWeight(handle.RealizedPnL),
		})
	}

	a.mu.Unlock()

	var votes []vote

	for _, entry := range entries {
		signal := entry.strategy.OnTick(ctx)
		if !signal.IsActionable() {
			continue
		}

		votes = append(votes, vote{
			id:     entry.id,
			name:   entry.name,
			signal: signal,
			weight: entry.weight,
		})

		if mode == ModeFirstSignal || mode == ModeIndependent {
			return Decision{
				Signal:         signal,
				Contributors:   []string{entry.name},
				ContributorIDs: []uuid.UUID{entry.id},
			}
		}
	}

	switch mode {
	case ModeFirstSignal, ModeIndependent:
		return Decision{Signal: types.SignalNone}
	case ModeMajorityVote:
		return tally(votes, false)
	case ModeWeightedVote:
		return tally(votes, true)
	case ModeUnanimous:
		return unanimous(votes)
	default:
		return Decision{Signal: types.SignalNone}
	}
}

// voteWeight maps realized performance to a vote weight with a floor of
// one, so a losing strategy still votes and a new strategy votes at its
// base weight.
func voteWeight(realizedPnL float64) float64 {
	weight := realizedPnL + 100
	if weight < 1 {
		return 1
	}

	return weight
}

// tally groups votes by signal and returns the heaviest group. Groups are
// kept in first-occurrence order and a later group must strictly exceed
// the leader to displace it, which makes ties stable.
func tally(votes []vote, weighted bool) Decision {
	if len(votes) == 0 {
		return Decision{Signal: types.SignalNone}
	}

	type group struct {
		signal types.SignalType
		total  float64
		names  []string
		ids    []uuid.UUID
	}

	var groups []*group

	index := make(map[types.SignalType]*group)

	for _, v := range votes {
		g, ok := index[v.signal]
		if !ok {
			g = &group{signal: v.signal}
			index[v.signal] = g
			groups = append(groups, g)
		}

		if weighted {
			g.total += v.weight
		} else {
			g.total++
		}

		g.names = append(g.names, v.name)
		g.ids = append(g.ids, v.id)
	}

	winner := groups[0]
	for _, g := range groups[1:] {
		if g.total > winner.total {
			winner = g
		}
	}

	return Decision{Signal: winner.signal, Contributors: winner.names, ContributorIDs: winner.ids}
}

// unanimous requires every cast vote to carry the same actionable
// signal. Strategies that abstained with SignalNone have already been
// discarded and do not block agreement.
func unanimous(votes []vote) Decision {
	if len(votes) == 0 {
		return Decision{Signal: types.SignalNone}
	}

	first := votes[0].signal
	names := make([]string, 0, len(votes))
	ids := make([]uuid.UUID, 0, len(votes))

	for _, v := range votes {
		if v.signal != first {
			return Decision{Signal: types.SignalNone}
		}

		names = append(names, v.name)
		ids = append(ids, v.id)
	}

	return Decision{Signal: first, Contributors: names, ContributorIDs: ids}
}
