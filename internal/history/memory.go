package history

import (
	"context"
	"sync"
)

const defaultMemoryLimit = 500

// MemoryStore keeps the most recent runs in a bounded ring. It is the default
// when no database is configured and loses its contents on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  []Run // ring buffer
	next  int
	count int
}

// NewMemoryStore keeps at most limit runs. A non-positive limit selects 500.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = defaultMemoryLimit
	}
	return &MemoryStore{runs: make([]Run, limit)}
}

func (s *MemoryStore) Record(_ context.Context, run Run) error {
	run = prepare(run)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[s.next] = run
	s.next = (s.next + 1) % len(s.runs)
	if s.count < len(s.runs) {
		s.count++
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Run, error) {
	limit = normalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := min(limit, s.count)
	out := make([]Run, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.runs)) % len(s.runs)
		out = append(out, s.runs[idx])
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
