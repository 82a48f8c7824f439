package services

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/bloXroute-Labs/btcgateway/utils"
)

// BdnPerformanceStatsData is a closed stats interval snapshot
type BdnPerformanceStatsData struct {
	StartTime time.Time
	EndTime   time.Time

	NewBlocksFromNode       uint32
	NewBlocksFromBdn        uint32
	IgnoredSeenBlocks       uint32
	NewTxFromNode           uint32
	NewTxFromBdn            uint32
	BlockRecoveryTimeouts   uint32
	BlockRecoveryCompleted  uint32
	CompactBlocksDecompressed uint32
}

// BdnPerformanceStats tracks gateway performance counters over an interval:
// how much the node and the BDN each contribute, how often seen blocks are
// ignored, and recovery outcomes.
type BdnPerformanceStats struct {
	clock           utils.Clock
	intervalStartMu sync.Mutex
	intervalStart   time.Time

	newBlocksFromNode       atomic.Uint32
	newBlocksFromBdn        atomic.Uint32
	ignoredSeenBlocks       atomic.Uint32
	newTxFromNode           atomic.Uint32
	newTxFromBdn            atomic.Uint32
	blockRecoveryTimeouts   atomic.Uint32
	blockRecoveryCompleted  atomic.Uint32
	compactBlocksDecompressed atomic.Uint32
}

// NewBdnPerformanceStats creates a stats service with an open first interval
func NewBdnPerformanceStats(clock utils.Clock) *BdnPerformanceStats {
	return &BdnPerformanceStats{clock: clock, intervalStart: clock.Now()}
}

// LogNewBlockFromNode records a new block received from the blockchain node
func (s *BdnPerformanceStats) LogNewBlockFromNode() {
	s.newBlocksFromNode.Inc()
}

// LogNewBlockFromBdn records a new block received from the BDN
func (s *BdnPerformanceStats) LogNewBlockFromBdn() {
	s.newBlocksFromBdn.Inc()
}

// LogIgnoreSeenBlock records a duplicate block dropped by the seen filter
func (s *BdnPerformanceStats) LogIgnoreSeenBlock() {
	s.ignoredSeenBlocks.Inc()
}

// LogNewTxFromNode records a transaction received from the blockchain node
func (s *BdnPerformanceStats) LogNewTxFromNode() {
	s.newTxFromNode.Inc()
}

// LogNewTxFromBdn records a transaction received from the BDN
func (s *BdnPerformanceStats) LogNewTxFromBdn() {
	s.newTxFromBdn.Inc()
}

// LogRecoveryTimeout records an abandoned partial block reconstruction
func (s *BdnPerformanceStats) LogRecoveryTimeout() {
	s.blockRecoveryTimeouts.Inc()
}

// LogRecoveryCompleted records a successfully recovered block
func (s *BdnPerformanceStats) LogRecoveryCompleted() {
	s.blockRecoveryCompleted.Inc()
}

// LogCompactBlockDecompressed records a compact block fully resolved from cache
func (s *BdnPerformanceStats) LogCompactBlockDecompressed() {
	s.compactBlocksDecompressed.Inc()
}

// IgnoredSeenBlocks returns the current interval's seen block drop count
func (s *BdnPerformanceStats) IgnoredSeenBlocks() uint32 {
	return s.ignoredSeenBlocks.Load()
}

// CloseInterval snapshots and resets all counters, closing the interval
func (s *BdnPerformanceStats) CloseInterval() BdnPerformanceStatsData {
	now := s.clock.Now()
	s.intervalStartMu.Lock()
	start := s.intervalStart
	s.intervalStart = now
	s.intervalStartMu.Unlock()

	data := BdnPerformanceStatsData{
		StartTime:               start,
		EndTime:                 now,
		NewBlocksFromNode:       s.newBlocksFromNode.Swap(0),
		NewBlocksFromBdn:        s.newBlocksFromBdn.Swap(0),
		IgnoredSeenBlocks:       s.ignoredSeenBlocks.Swap(0),
		NewTxFromNode:           s.newTxFromNode.Swap(0),
		NewTxFromBdn:            s.newTxFromBdn.Swap(0),
		BlockRecoveryTimeouts:   s.blockRecoveryTimeouts.Swap(0),
		BlockRecoveryCompleted:  s.blockRecoveryCompleted.Swap(0),
		CompactBlocksDecompressed: s.compactBlocksDecompressed.Swap(0),
	}
	return data
}
