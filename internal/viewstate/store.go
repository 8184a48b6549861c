package viewstate

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store provides thread-safe access to the current State.
type Store struct {
	// notifyMu orders whole dispatches so listeners see snapshots in the
	// order they were produced.
	notifyMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

// NewStore creates a store holding initial.
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// Dispatch applies actions in order and returns the new snapshot.
// Listeners run outside the state lock, so they may call Snapshot, but must
// not Dispatch.
func (s *Store) Dispatch(actions ...Action) State {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next := Reduce(s.state, actions...)
	s.state = next
	listeners := s.listeners
	s.mu.Unlock()

	log.Trace().Str("analysis_id", next.AnalysisID).Float64("threshold", next.Threshold).Str("metric", string(next.Metric)).Msg("View state updated")

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn to receive every new snapshot.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(slices.Clip(s.listeners), fn)
}
