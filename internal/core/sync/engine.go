package sync

import (
	"context"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"golang.org/x/sync/singleflight"

	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/events"
	"wcpredict/internal/telemetry"
)

// Save states as surfaced to the display layer.
const (
	StateIdle   = "idle"
	StateSaving = "saving"
	StateSaved  = "saved"
	StateError  = "error"
)

const (
	// DefaultDebounce is how long an edit sits before it is flushed to the server.
	DefaultDebounce = 800 * time.Millisecond

	savedRevertAfter = 2 * time.Second
	errorRevertAfter = 3 * time.Second
)

// Backend is the slice of the REST client the engine needs.
type Backend interface {
	MyPredictions(ctx context.Context) ([]api.Prediction, error)
	SavePrediction(ctx context.Context, matchID int64, home, away int) (*api.Prediction, error)
	CalculatePoints(ctx context.Context, matchID int64) error
}

// MatchSource answers match lookups; satisfied by the match table.
type MatchSource interface {
	Match(id int64) (api.Match, bool)
}

// Input is the raw edit buffer for one match, as typed. Scores stay strings
// until flush so a half-typed edit is never sent.
type Input struct {
	Home string
	Away string
}

// Engine owns the user's predictions: the edit buffers, the server-confirmed
// copies, and the per-match save state. Each edit is debounced per match, so
// rapid edits collapse into one save and edits to different matches never
// interfere.
type Engine struct {
	backend  Backend
	source   MatchSource
	bus      *events.Bus
	debounce time.Duration
	ctx      context.Context

	mu             gosync.Mutex
	inputs         map[int64]Input
	confirmed      map[int64]api.Prediction
	states         map[int64]string
	debounceTimers map[int64]*time.Timer
	revertTimers   map[int64]*time.Timer
	stopped        bool

	calc singleflight.Group
}

func NewEngine(backend Backend, source MatchSource, bus *events.Bus, debounce time.Duration) *Engine {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Engine{
		backend:        backend,
		source:         source,
		bus:            bus,
		debounce:       debounce,
		ctx:            context.Background(),
		inputs:         make(map[int64]Input),
		confirmed:      make(map[int64]api.Prediction),
		states:         make(map[int64]string),
		debounceTimers: make(map[int64]*time.Timer),
		revertTimers:   make(map[int64]*time.Timer),
	}
}

// Start binds the engine to ctx and subscribes it to match change events so
// finished matches trigger a points reconcile.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	e.bus.Subscribe(events.EventMatchChanged, func(evt events.Event) {
		m, ok := evt.Payload.(api.Match)
		if !ok || m.Status != api.StatusFinished {
			return
		}
		go e.Reconcile(ctx, m.ID)
	})
}

// LoadAll fetches the user's predictions and reconciles points for any
// finished match still carrying a nil score. All pending calculations share
// one refetch.
func (e *Engine) LoadAll(ctx context.Context) error {
	predictions, err := e.backend.MyPredictions(ctx)
	if err != nil {
		return err
	}

	var pending []int64
	e.mu.Lock()
	for _, p := range predictions {
		e.confirmed[p.MatchID] = p
		if p.Points == nil && e.finished(p.MatchID) {
			pending = append(pending, p.MatchID)
		}
	}
	e.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	for _, id := range pending {
		if err := e.calculate(ctx, id); err != nil {
			telemetry.Warnf("sync: calculate points for match %d: %v", id, err)
		}
	}
	return e.refetch(ctx)
}

// calculate submits the server-side points computation for one match.
// Concurrent callers for the same match (startup load overlapping a push
// trigger, or two loads racing) collapse into one request.
func (e *Engine) calculate(ctx context.Context, matchID int64) error {
	_, err, _ := e.calc.Do(strconv.FormatInt(matchID, 10), func() (any, error) {
		if err := e.backend.CalculatePoints(ctx, matchID); err != nil {
			return nil, err
		}
		telemetry.Metrics.PointsCalculations.Inc()
		return nil, nil
	})
	return err
}

// finished reports whether the table knows the match as FINISHED. Caller may
// hold mu; the source has its own lock.
func (e *Engine) finished(matchID int64) bool {
	m, ok := e.source.Match(matchID)
	return ok && m.Status == api.StatusFinished
}

// SetInput records an edit and (re)arms the debounce timer for that match.
// Validation happens at flush time, so an invalid intermediate value simply
// never reaches the server.
func (e *Engine) SetInput(matchID int64, home, away string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}

	e.inputs[matchID] = Input{Home: home, Away: away}

	if t, ok := e.debounceTimers[matchID]; ok {
		t.Stop()
	}
	e.debounceTimers[matchID] = time.AfterFunc(e.debounce, func() {
		e.flush(matchID)
	})
}

// Input returns the current edit buffer for a match, falling back to the
// confirmed prediction when nothing has been typed.
func (e *Engine) Input(matchID int64) (Input, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if in, ok := e.inputs[matchID]; ok {
		return in, true
	}
	if p, ok := e.confirmed[matchID]; ok {
		return Input{
			Home: strconv.Itoa(p.PredictedHomeScore),
			Away: strconv.Itoa(p.PredictedAwayScore),
		}, true
	}
	return Input{}, false
}

// Confirmed returns the server-confirmed prediction for a match.
func (e *Engine) Confirmed(matchID int64) (api.Prediction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.confirmed[matchID]
	return p, ok
}

// Predictions returns a copy of all server-confirmed predictions.
func (e *Engine) Predictions() []api.Prediction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]api.Prediction, 0, len(e.confirmed))
	for _, p := range e.confirmed {
		out = append(out, p)
	}
	return out
}

// State returns the save state for a match, "idle" when untracked.
func (e *Engine) State(matchID int64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.states[matchID]; ok {
		return s
	}
	return StateIdle
}

// States returns a copy of every non-idle save state.
func (e *Engine) States() map[int64]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int64]string, len(e.states))
	for id, s := range e.states {
		out[id] = s
	}
	return out
}

// flush runs when the debounce timer fires: re-read the latest input,
// validate, and save.
func (e *Engine) flush(matchID int64) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	delete(e.debounceTimers, matchID)
	in := e.inputs[matchID]
	ctx := e.ctx
	e.mu.Unlock()

	home, away, ok := parseScores(in.Home, in.Away)
	if !ok {
		return
	}

	e.setState(matchID, StateSaving, 0)
	telemetry.Metrics.SavesIssued.Inc()

	prediction, err := e.backend.SavePrediction(ctx, matchID, home, away)
	if err != nil {
		telemetry.Metrics.SaveErrors.Inc()
		telemetry.Warnf("sync: save prediction for match %d: %v", matchID, err)
		e.setState(matchID, StateError, errorRevertAfter)
		return
	}

	e.mu.Lock()
	e.confirmed[matchID] = *prediction
	e.mu.Unlock()
	e.setState(matchID, StateSaved, savedRevertAfter)
}

// parseScores accepts only complete, non-negative integer pairs.
func parseScores(home, away string) (int, int, bool) {
	h, err := strconv.Atoi(strings.TrimSpace(home))
	if err != nil || h < 0 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(away))
	if err != nil || a < 0 {
		return 0, 0, false
	}
	return h, a, true
}

// setState transitions the save state and, when revertAfter is positive, arms
// a timer that drops back to idle unless another transition lands first.
func (e *Engine) setState(matchID int64, state string, revertAfter time.Duration) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if t, ok := e.revertTimers[matchID]; ok {
		t.Stop()
		delete(e.revertTimers, matchID)
	}
	if state == StateIdle {
		delete(e.states, matchID)
	} else {
		e.states[matchID] = state
	}
	if revertAfter > 0 {
		e.revertTimers[matchID] = time.AfterFunc(revertAfter, func() {
			e.revert(matchID, state)
		})
	}
	e.mu.Unlock()

	e.bus.Publish(events.Event{
		Type:      events.EventSaveState,
		MatchID:   matchID,
		Timestamp: time.Now(),
		Payload:   events.SaveStateEvent{MatchID: matchID, State: state},
	})
}

// revert drops back to idle only if no newer transition replaced the state.
func (e *Engine) revert(matchID int64, from string) {
	e.mu.Lock()
	if e.stopped || e.states[matchID] != from {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.setState(matchID, StateIdle, 0)
}

// Reconcile asks the server to compute points for a finished match and
// refetches predictions. Concurrent triggers for the same match (push plus
// poll landing together) collapse into one calculation request.
func (e *Engine) Reconcile(ctx context.Context, matchID int64) {
	e.mu.Lock()
	p, ok := e.confirmed[matchID]
	e.mu.Unlock()
	if !ok || p.Points != nil {
		return
	}

	if err := e.calculate(ctx, matchID); err != nil {
		telemetry.Warnf("sync: reconcile match %d: %v", matchID, err)
		return
	}
	if err := e.refetch(ctx); err != nil {
		telemetry.Warnf("sync: reconcile match %d: %v", matchID, err)
	}
}

// refetch replaces the confirmed set with the server's current view.
func (e *Engine) refetch(ctx context.Context) error {
	predictions, err := e.backend.MyPredictions(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	for _, p := range predictions {
		e.confirmed[p.MatchID] = p
	}
	e.mu.Unlock()
	return nil
}

// Stop cancels every pending timer. Edits after Stop are dropped.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	for id, t := range e.debounceTimers {
		t.Stop()
		delete(e.debounceTimers, id)
	}
	for id, t := range e.revertTimers {
		t.Stop()
		delete(e.revertTimers, id)
	}
}
