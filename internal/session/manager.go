package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SymptomAI/symptom-ai/internal/analysis"
	"github.com/SymptomAI/symptom-ai/internal/kvstore"
)

// Handoff is the single-slot mailbox a search-initiating view fills right
// before navigating: the results view consumes it on load, and its absence
// means "go back to the input view".
type Handoff struct {
	Symptoms string          `json:"symptoms"`
	Analysis analysis.Result `json:"analysis"`
}

type session struct {
	// mu spans every multi-key slot operation so a handoff pair is written
	// and consumed as a unit. Without it two racing consumers could both
	// see the slot full, or a reader could pair fresh symptoms with a
	// stale analysis.
	mu       sync.Mutex
	store    *kvstore.Memory
	lastSeen time.Time
}

// Manager owns one ephemeral scope per session. Sessions appear on first use
// and evaporate after the idle TTL, taking their scope with them.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewManager(ttl time.Duration, log *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

func (m *Manager) scope(id string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = &session{store: kvstore.NewMemory()}
		m.sessions[id] = s
	}
	s.lastSeen = m.now()
	return s
}

// PutHandoff writes a full handoff pair, overwriting any unconsumed one.
func (m *Manager) PutHandoff(ctx context.Context, sessionID, symptoms string, result analysis.Result) error {
	s := m.scope(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, kvstore.KeyUserSymptoms, symptoms); err != nil {
		return err
	}
	return kvstore.SetJSON(ctx, s.store, kvstore.KeySymptomAnalysis, result)
}

// PutPrefill parks only the symptom text, for flows that send the user back
// to the input view with the field filled in.
func (m *Manager) PutPrefill(ctx context.Context, sessionID, symptoms string) error {
	s := m.scope(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Set(ctx, kvstore.KeyUserSymptoms, symptoms)
}

// Consume returns the pending handoff and clears the slot, as one atomic
// step: of any number of concurrent consumers, exactly one gets the handoff.
// Both halves of the pair must be present; a lone prefill text is not a
// handoff.
func (m *Manager) Consume(ctx context.Context, sessionID string) (Handoff, bool) {
	s := m.scope(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	symptoms, ok := s.store.Get(ctx, kvstore.KeyUserSymptoms)
	if !ok {
		return Handoff{}, false
	}
	raw, ok := s.store.Get(ctx, kvstore.KeySymptomAnalysis)
	if !ok {
		return Handoff{}, false
	}

	var result analysis.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		// Corrupt slot reads as absent; clear it so it cannot wedge the view.
		s.store.Remove(ctx, kvstore.KeySymptomAnalysis)
		s.store.Remove(ctx, kvstore.KeyUserSymptoms)
		return Handoff{}, false
	}

	s.store.Remove(ctx, kvstore.KeySymptomAnalysis)
	s.store.Remove(ctx, kvstore.KeyUserSymptoms)
	return Handoff{Symptoms: symptoms, Analysis: result}, true
}

// ConsumePrefill returns and clears a parked symptom text, if any.
func (m *Manager) ConsumePrefill(ctx context.Context, sessionID string) (string, bool) {
	s := m.scope(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	symptoms, ok := s.store.Get(ctx, kvstore.KeyUserSymptoms)
	if !ok {
		return "", false
	}
	s.store.Remove(ctx, kvstore.KeyUserSymptoms)
	return symptoms, true
}

// End drops a session and everything in its scope.
func (m *Manager) End(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// PruneIdle evicts sessions idle past the TTL and reports how many went.
func (m *Manager) PruneIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.ttl)
	pruned := 0
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned
}

// StartSweeper prunes idle sessions on an interval until ctx is done.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.PruneIdle(); n > 0 {
					m.log.Debug("pruned idle sessions", zap.Int("count", n))
				}
			}
		}
	}()
}
