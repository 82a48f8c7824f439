package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bloXroute-Labs/btcgateway/utils"
)

func TestBdnPerformanceStats_CloseInterval(t *testing.T) {
	clock := &utils.MockClock{}
	start := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	clock.SetTime(start)
	stats := NewBdnPerformanceStats(clock)

	stats.LogNewBlockFromNode()
	stats.LogNewBlockFromNode()
	stats.LogNewBlockFromBdn()
	stats.LogIgnoreSeenBlock()
	stats.LogNewTxFromNode()
	stats.LogNewTxFromBdn()
	stats.LogRecoveryTimeout()
	stats.LogRecoveryCompleted()
	stats.LogCompactBlockDecompressed()

	clock.IncTime(time.Minute)
	data := stats.CloseInterval()

	assert.Equal(t, start, data.StartTime)
	assert.Equal(t, start.Add(time.Minute), data.EndTime)
	assert.Equal(t, uint32(2), data.NewBlocksFromNode)
	assert.Equal(t, uint32(1), data.NewBlocksFromBdn)
	assert.Equal(t, uint32(1), data.IgnoredSeenBlocks)
	assert.Equal(t, uint32(1), data.NewTxFromNode)
	assert.Equal(t, uint32(1), data.NewTxFromBdn)
	assert.Equal(t, uint32(1), data.BlockRecoveryTimeouts)
	assert.Equal(t, uint32(1), data.BlockRecoveryCompleted)
	assert.Equal(t, uint32(1), data.CompactBlocksDecompressed)

	// counters reset with the interval
	next := stats.CloseInterval()
	assert.Equal(t, uint32(0), next.NewBlocksFromNode)
	assert.Equal(t, start.Add(time.Minute), next.StartTime)
}
