package dedup

import (
	"sync"
	"time"

	"github.com/samber/do"
)

// window is how long a file identifier is remembered. A repeat delivery of
// the same physical file within this window is dropped before processing.
const window = 5 * time.Minute

// Service is a best-effort in-memory guard against duplicate delivery. It is
// intentionally not durable: false negatives after a restart are acceptable.
type Service struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}, nil
}

// Seen reports whether id was already observed within the dedup window and
// records the sighting otherwise. Stale entries are evicted on every call.
func (s *Service) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for key, seenAt := range s.entries {
		if now.Sub(seenAt) > window {
			delete(s.entries, key)
		}
	}

	if _, ok := s.entries[id]; ok {
		return true
	}

	s.entries[id] = now

	return false
}
