// Package confirm implements the in-memory confirmation store that gates
// sensitive commands behind explicit approval.
package confirm

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"handsfree/internal/intent"
	"handsfree/internal/logging"
)

// Source identifies which upstream pipeline produced a command.
type Source string

const (
	SourceGesture Source = "gesture"
	SourceVoice   Source = "voice"
)

// Record is an immutable snapshot created when a command is deemed
// sensitive; it lives until resolved via Approve/Deny or the process exits.
type Record struct {
	ID        string
	Source    Source
	RawText   string
	Reason    string
	Steps     []intent.Step
	CreatedAt time.Time
}

// Store is the process-wide singleton confirmation map. It is safe for
// concurrent use; a confirmation id exists in the store iff no approve/deny
// has yet been applied to it.
type Store struct {
	mu      sync.Mutex
	pending map[string]Record
}

// New creates an empty confirmation store.
func New() *Store {
	return &Store{pending: make(map[string]Record)}
}

// Create inserts a new pending confirmation and returns its id.
func (s *Store) Create(source Source, rawText, reason string, steps []intent.Step) Record {
	id := uuid.NewString()
	rec := Record{
		ID:        id,
		Source:    source,
		RawText:   rawText,
		Reason:    reason,
		Steps:     append([]intent.Step(nil), steps...),
		CreatedAt: time.Now(),
	}
	s.mu.Lock()
	s.pending[id] = rec
	s.mu.Unlock()
	logging.Confirm("created confirmation %s reason=%s steps=%d", id, reason, len(steps))
	return rec
}

// Take removes and returns the confirmation for id, reporting whether it
// existed. Used by both Approve and Deny so a resolved id can never be
// resolved twice.
func (s *Store) Take(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return rec, ok
}

// Peek returns the confirmation for id without removing it, for inspection
// by a UI polling last-result style surfaces.
func (s *Store) Peek(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.pending[id]
	return rec, ok
}

// List returns a snapshot of every pending confirmation, for a UI that
// shows what is awaiting approval.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.pending))
	for _, rec := range s.pending {
		out = append(out, rec)
	}
	return out
}

// Clear removes every pending confirmation (used on process shutdown or by
// an operator-triggered reset).
func (s *Store) Clear() {
	s.mu.Lock()
	s.pending = make(map[string]Record)
	s.mu.Unlock()
}

// Len reports the number of pending confirmations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
