package services

import (
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	log "github.com/bloXroute-Labs/btcgateway/logger"
	"github.com/bloXroute-Labs/btcgateway/types"
)

// SeenBlocks is a bounded set of recently seen block hashes with insertion
// order eviction. It provides recent-history dedup, not correctness-critical
// long-term state: once a hash is evicted by capacity the block may be
// processed again.
type SeenBlocks struct {
	name     string
	capacity int
	mu       sync.Mutex
	hashes   *orderedmap.OrderedMap[types.SHA256Hash, struct{}]
}

// NewSeenBlocks returns a seen blocks set with the provided capacity
func NewSeenBlocks(name string, capacity int) *SeenBlocks {
	return &SeenBlocks{
		name:     name,
		capacity: capacity,
		hashes:   orderedmap.New[types.SHA256Hash, struct{}](),
	}
}

// Add inserts a block hash, evicting the oldest entry on overflow.
// Re-adding an existing hash does not change its eviction order.
func (s *SeenBlocks) Add(hash types.SHA256Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hashes.Get(hash); ok {
		return
	}

	s.hashes.Set(hash, struct{}{})
	if s.hashes.Len() > s.capacity {
		oldest := s.hashes.Oldest()
		s.hashes.Delete(oldest.Key)
		log.Tracef("%v: evicted %v at capacity %v", s.name, oldest.Key, s.capacity)
	}
}

// Exists indicates whether the block hash is currently in the set
func (s *SeenBlocks) Exists(hash types.SHA256Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.hashes.Get(hash)
	return ok
}

// Count returns the number of retained hashes
func (s *SeenBlocks) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hashes.Len()
}
