package stamp

import "sync"

// Placement is a pending render-space rectangle on one page of one entry.
type Placement struct {
	EntryID string `json:"entryId"`
	Page    int    `json:"page"`
	Rect    Rect   `json:"rect"`
}

// Sessions enforces the single-pending-placement invariant per viewer
// instance: at most one rectangle is active per entry at a time. Setting a
// new placement replaces the previous one; confirming consumes it, so a
// second confirm without a new placement is rejected rather than producing a
// second independent signed byte stream.
type Sessions struct {
	mu      sync.Mutex
	pending map[string]Placement // keyed by entry id
}

func NewSessions() *Sessions {
	return &Sessions{pending: map[string]Placement{}}
}

func (s *Sessions) Set(p Placement) error {
	if p.Rect.Width <= 0 || p.Rect.Height <= 0 {
		return ErrEmptyRect
	}
	if p.Page < 1 {
		return ErrBadPage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.EntryID] = p
	return nil
}

func (s *Sessions) Peek(entryID string) (Placement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[entryID]
	return p, ok
}

// Take returns and clears the pending placement.
func (s *Sessions) Take(entryID string) (Placement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[entryID]
	if ok {
		delete(s.pending, entryID)
	}
	return p, ok
}

func (s *Sessions) Clear(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, entryID)
}
