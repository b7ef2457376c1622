package intake

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/rxintake/logx"
	"github.com/Abraxas-365/rxintake/prescription"
)

// Sessions holds live sessions in memory, scoped to their owner
type Sessions struct {
	mu    sync.RWMutex
	items map[string]*Session
	ttl   time.Duration
	now   func() time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{items: make(map[string]*Session), ttl: ttl, now: time.Now}
}

func (r *Sessions) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = s
}

// Get returns the session if it exists and belongs to userID. Someone else's
// session is reported as not found.
func (r *Sessions) Get(userID, id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.items[id]
	r.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, prescription.ErrorRegistry.New(prescription.CodeSessionNotFound).WithDetail("session_id", id)
	}
	return s, nil
}

func (r *Sessions) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Sweep drops sessions idle for longer than the ttl. Loading sessions have
// their extraction cancelled; a session mid-commit is left alone.
func (r *Sessions) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.RLock()
	candidates := make([]*Session, 0, len(r.items))
	for _, s := range r.items {
		candidates = append(candidates, s)
	}
	r.mu.RUnlock()

	swept := 0
	for _, s := range candidates {
		// idleness is judged under the session's own lock
		if s.expire(cutoff) {
			r.Remove(s.ID)
			swept++
		}
	}
	if swept > 0 {
		logx.Debug("swept %d idle sessions", swept)
	}
	return swept
}

// Run sweeps every interval until ctx is done
func (r *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
