package memory

import (
	"context"
	"sync"
	"time"

	"warehub/internal/app/middleware"
)

// IdempotencyStore keeps replayable results for ttl, mirroring the TTL index
// of the Mongo store. Expired entries are dropped lazily on lookup.
type IdempotencyStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]middleware.IdempotencyRecord
}

// NewIdempotencyStore keeps records forever when ttl is not positive.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]middleware.IdempotencyRecord),
	}
}

// Reserve claims rec.Key under the store lock, so of two concurrent callers
// exactly one gets true.
func (s *IdempotencyStore) Reserve(_ context.Context, rec middleware.IdempotencyRecord) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[rec.Key]; ok && s.live(existing) {
		return existing, false, nil
	}
	s.items[rec.Key] = rec
	return rec, true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

func (s *IdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.items[key]; ok && rec.Pending {
		delete(s.items, key)
	}
	return nil
}

func (s *IdempotencyStore) live(rec middleware.IdempotencyRecord) bool {
	age := s.now().Sub(rec.OccurredAt)
	if rec.Pending {
		return age <= middleware.PendingLease
	}
	return s.ttl <= 0 || age <= s.ttl
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
