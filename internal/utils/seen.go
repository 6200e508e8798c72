package utils

import "sync"

// SeenSet is a bounded recency set over message identifiers. Once the cap
// is exceeded the oldest entries are evicted, keeping memory flat over the
// lifetime of the process.
type SeenSet struct {
	mu    sync.Mutex
	cap   int
	ids   map[string]struct{}
	order []string
}

func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = 1
	}
	return &SeenSet{cap: capacity, ids: make(map[string]struct{})}
}

// CheckAndMark reports whether id was already present, marking it if not.
func (s *SeenSet) CheckAndMark(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return true
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	for len(s.order) > s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}
	return false
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
