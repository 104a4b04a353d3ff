package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/events"
)

type savedCall struct {
	matchID    int64
	home, away int
}

type fakeBackend struct {
	mu          gosync.Mutex
	saves       []savedCall
	saveErr     error
	predictions []api.Prediction
	fetchCalls  int
	calcCalls   int
	calcDelay   time.Duration
}

func (f *fakeBackend) MyPredictions(_ context.Context) ([]api.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	out := make([]api.Prediction, len(f.predictions))
	copy(out, f.predictions)
	return out, nil
}

func (f *fakeBackend) SavePrediction(_ context.Context, matchID int64, home, away int) (*api.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saves = append(f.saves, savedCall{matchID, home, away})
	return &api.Prediction{MatchID: matchID, PredictedHomeScore: home, PredictedAwayScore: away}, nil
}

func (f *fakeBackend) CalculatePoints(_ context.Context, matchID int64) error {
	f.mu.Lock()
	f.calcCalls++
	delay := f.calcDelay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

func (f *fakeBackend) savedCalls() []savedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]savedCall, len(f.saves))
	copy(out, f.saves)
	return out
}

type fakeSource map[int64]api.Match

func (f fakeSource) Match(id int64) (api.Match, bool) {
	m, ok := f[id]
	return m, ok
}

const testDebounce = 20 * time.Millisecond

// settle waits long enough for any armed debounce timer to fire.
func settle() { time.Sleep(8 * testDebounce) }

func newTestEngine(backend *fakeBackend, source fakeSource) (*Engine, *events.Bus) {
	bus := events.NewBus()
	e := NewEngine(backend, source, bus, testDebounce)
	return e, bus
}

func TestDebounceCollapsesRapidEdits(t *testing.T) {
	backend := &fakeBackend{}
	e, _ := newTestEngine(backend, fakeSource{})
	defer e.Stop()

	e.SetInput(1, "1", "0")
	e.SetInput(1, "2", "0")
	e.SetInput(1, "2", "1")
	settle()

	saves := backend.savedCalls()
	if len(saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(saves))
	}
	if saves[0] != (savedCall{1, 2, 1}) {
		t.Errorf("saved %+v, want last edit 2:1", saves[0])
	}
}

func TestInvalidInputNeverSaved(t *testing.T) {
	cases := []struct {
		name       string
		home, away string
	}{
		{name: "non-numeric", home: "x", away: "1"},
		{name: "negative", home: "-1", away: "0"},
		{name: "half typed", home: "2", away: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{}
			e, _ := newTestEngine(backend, fakeSource{})
			defer e.Stop()

			e.SetInput(1, tc.home, tc.away)
			settle()

			if len(backend.savedCalls()) != 0 {
				t.Errorf("invalid input was saved")
			}
		})
	}
}

func TestEditsToDifferentMatchesAreIndependent(t *testing.T) {
	backend := &fakeBackend{}
	e, _ := newTestEngine(backend, fakeSource{})
	defer e.Stop()

	e.SetInput(1, "1", "0")
	e.SetInput(2, "3", "3")
	settle()

	saves := backend.savedCalls()
	if len(saves) != 2 {
		t.Fatalf("saves = %d, want 2", len(saves))
	}
	got := map[int64]savedCall{}
	for _, s := range saves {
		got[s.matchID] = s
	}
	if got[1] != (savedCall{1, 1, 0}) || got[2] != (savedCall{2, 3, 3}) {
		t.Errorf("saves = %+v", got)
	}
}

func TestSaveStateTransitions(t *testing.T) {
	backend := &fakeBackend{}
	e, bus := newTestEngine(backend, fakeSource{})
	defer e.Stop()

	var mu gosync.Mutex
	var states []string
	bus.Subscribe(events.EventSaveState, func(evt events.Event) {
		s := evt.Payload.(events.SaveStateEvent)
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	e.SetInput(1, "2", "0")
	settle()

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != StateSaving || states[1] != StateSaved {
		t.Fatalf("states = %v, want [saving saved ...]", states)
	}
	if e.State(1) != StateSaved {
		t.Errorf("State(1) = %q, want saved", e.State(1))
	}
}

func TestSaveFailureEntersErrorState(t *testing.T) {
	backend := &fakeBackend{saveErr: errors.New("match already started")}
	e, _ := newTestEngine(backend, fakeSource{})
	defer e.Stop()

	e.SetInput(1, "2", "0")
	settle()

	if e.State(1) != StateError {
		t.Errorf("State(1) = %q, want error", e.State(1))
	}
	if _, ok := e.Confirmed(1); ok {
		t.Errorf("failed save must not confirm a prediction")
	}
}

func TestInputFallsBackToConfirmed(t *testing.T) {
	backend := &fakeBackend{predictions: []api.Prediction{
		{MatchID: 1, PredictedHomeScore: 2, PredictedAwayScore: 1},
	}}
	e, _ := newTestEngine(backend, fakeSource{})
	defer e.Stop()

	if err := e.LoadAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	in, ok := e.Input(1)
	if !ok || in.Home != "2" || in.Away != "1" {
		t.Errorf("Input(1) = %+v ok=%v, want confirmed 2:1", in, ok)
	}
	if _, ok := e.Input(2); ok {
		t.Errorf("Input(2) should be absent")
	}
}

func TestLoadAllReconcilesMissingPoints(t *testing.T) {
	backend := &fakeBackend{predictions: []api.Prediction{
		{MatchID: 1, PredictedHomeScore: 2, PredictedAwayScore: 1, Points: nil},
		{MatchID: 2, PredictedHomeScore: 0, PredictedAwayScore: 0, Points: intp(3)},
	}}
	source := fakeSource{
		1: {ID: 1, Status: api.StatusFinished},
		2: {ID: 2, Status: api.StatusFinished},
	}
	e, _ := newTestEngine(backend, source)
	defer e.Stop()

	if err := e.LoadAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.calcCalls != 1 {
		t.Errorf("calc calls = %d, want 1 (only the nil-points finished match)", backend.calcCalls)
	}
	if backend.fetchCalls != 2 {
		t.Errorf("fetch calls = %d, want 2 (initial load + single refetch)", backend.fetchCalls)
	}
}

func TestLoadAllSkipsUnfinishedMatches(t *testing.T) {
	backend := &fakeBackend{predictions: []api.Prediction{
		{MatchID: 1, Points: nil},
	}}
	source := fakeSource{1: {ID: 1, Status: api.StatusLive}}
	e, _ := newTestEngine(backend, source)
	defer e.Stop()

	if err := e.LoadAll(context.Background()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.calcCalls != 0 {
		t.Errorf("calc calls = %d, want 0", backend.calcCalls)
	}
}

func TestConcurrentLoadAllsCollapseCalculations(t *testing.T) {
	backend := &fakeBackend{
		predictions: []api.Prediction{{MatchID: 1, Points: nil}},
		calcDelay:   100 * time.Millisecond,
	}
	source := fakeSource{1: {ID: 1, Status: api.StatusFinished}}
	e, _ := newTestEngine(backend, source)
	defer e.Stop()

	var wg gosync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.LoadAll(context.Background()); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.calcCalls != 1 {
		t.Errorf("calc calls = %d, want 1 (concurrent loads must collapse per match)", backend.calcCalls)
	}
}

func TestLoadAllOverlappingReconcileCollapses(t *testing.T) {
	backend := &fakeBackend{
		predictions: []api.Prediction{{MatchID: 1, Points: nil}},
		calcDelay:   100 * time.Millisecond,
	}
	source := fakeSource{1: {ID: 1, Status: api.StatusFinished}}
	e, _ := newTestEngine(backend, source)
	defer e.Stop()

	e.mu.Lock()
	e.confirmed[1] = api.Prediction{MatchID: 1, Points: nil}
	e.mu.Unlock()

	var wg gosync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := e.LoadAll(context.Background()); err != nil {
			t.Errorf("load: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		e.Reconcile(context.Background(), 1)
	}()
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.calcCalls != 1 {
		t.Errorf("calc calls = %d, want 1 (startup load racing a push trigger)", backend.calcCalls)
	}
}

func TestConcurrentReconcilesCollapse(t *testing.T) {
	backend := &fakeBackend{
		predictions: []api.Prediction{{MatchID: 1, Points: nil}},
		calcDelay:   50 * time.Millisecond,
	}
	source := fakeSource{1: {ID: 1, Status: api.StatusFinished}}
	e, _ := newTestEngine(backend, source)
	defer e.Stop()

	// Seed the confirmed prediction without triggering a calculation.
	e.mu.Lock()
	e.confirmed[1] = api.Prediction{MatchID: 1, Points: nil}
	e.mu.Unlock()

	var wg gosync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Reconcile(context.Background(), 1)
		}()
	}
	wg.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.calcCalls != 1 {
		t.Errorf("calc calls = %d, want 1", backend.calcCalls)
	}
}

func TestReconcileSkipsWhenPointsPresent(t *testing.T) {
	backend := &fakeBackend{}
	e, _ := newTestEngine(backend, fakeSource{1: {ID: 1, Status: api.StatusFinished}})
	defer e.Stop()

	e.mu.Lock()
	e.confirmed[1] = api.Prediction{MatchID: 1, Points: intp(5)}
	e.mu.Unlock()

	e.Reconcile(context.Background(), 1)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.calcCalls != 0 {
		t.Errorf("calc calls = %d, want 0", backend.calcCalls)
	}
}

func TestStopDropsPendingEdits(t *testing.T) {
	backend := &fakeBackend{}
	e, _ := newTestEngine(backend, fakeSource{})

	e.SetInput(1, "1", "1")
	e.Stop()
	settle()

	if len(backend.savedCalls()) != 0 {
		t.Errorf("edit saved after Stop")
	}
}

func intp(n int) *int { return &n }
