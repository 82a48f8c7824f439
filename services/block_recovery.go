package services

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	log "github.com/bloXroute-Labs/btcgateway/logger"
	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/types"
	"github.com/bloXroute-Labs/btcgateway/utils"
)

// ErrBlockNotAwaitingRecovery is returned when a recovery completes for a
// block with no pending partial reconstruction
var ErrBlockNotAwaitingRecovery = errors.New("block is not awaiting recovery")

const recoveryRequestInitialInterval = 100 * time.Millisecond

// RecoveryRequester emits a request for the transactions missing from a
// partial reconstruction. Implementations are expected to be best-effort;
// a returned error triggers re-emission with backoff.
type RecoveryRequester interface {
	RequestBlockRecovery(hash types.SHA256Hash, shortIDs btc.ShortIDList, missingIndices []int) error
}

type blockRecoveryEntry struct {
	msg            *btc.CompactBlockMessage
	blockTxs       [][]byte
	missingIndices []int
	timer          utils.Timer
	done           chan struct{}
}

// BlockRecoveryService tracks partial block reconstructions awaiting
// externally fetched transactions. At most one entry is held per block hash;
// entries are removed on completion, cancellation, or deadline expiry.
type BlockRecoveryService struct {
	clock     utils.Clock
	magic     uint32
	deadline  time.Duration
	requester RecoveryRequester
	stats     *BdnPerformanceStats

	mu      sync.Mutex
	pending map[types.SHA256Hash]*blockRecoveryEntry
}

// NewBlockRecoveryService creates the recovery registry
func NewBlockRecoveryService(clock utils.Clock, magic uint32, deadline time.Duration, requester RecoveryRequester, stats *BdnPerformanceStats) *BlockRecoveryService {
	return &BlockRecoveryService{
		clock:     clock,
		magic:     magic,
		deadline:  deadline,
		requester: requester,
		stats:     stats,
		pending:   make(map[types.SHA256Hash]*blockRecoveryEntry),
	}
}

// Add registers a partial reconstruction and emits a recovery request. If
// the block is already awaiting recovery the first registration wins. The
// partial is abandoned if nothing completes it before the deadline.
func (b *BlockRecoveryService) Add(msg *btc.CompactBlockMessage, result *BlockDecompressionResult) {
	hash := msg.BlockHash()

	b.mu.Lock()
	if _, ok := b.pending[hash]; ok {
		b.mu.Unlock()
		return
	}

	entry := &blockRecoveryEntry{
		msg:            msg,
		blockTxs:       result.BlockTxs,
		missingIndices: result.MissingTxIndices,
		done:           make(chan struct{}),
	}
	entry.timer = b.clock.AfterFunc(b.deadline, func() {
		b.expire(hash)
	})
	b.pending[hash] = entry
	b.mu.Unlock()

	go b.emitRequest(hash, entry)
}

// Recover completes a pending partial reconstruction with the recovered
// transactions, in missing index order. Completions are idempotent per
// block: the first winner removes the entry, later calls find nothing.
func (b *BlockRecoveryService) Recover(hash types.SHA256Hash, recoveredTxs [][]byte) (*btc.BlockMessage, error) {
	b.mu.Lock()
	entry, ok := b.pending[hash]
	b.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(ErrBlockNotAwaitingRecovery, "%v", hash)
	}

	blockMessage, err := RecoverCompactBlock(b.magic, entry.msg, entry.blockTxs, entry.missingIndices, recoveredTxs)
	if err != nil {
		// mismatched recovery is dropped; the entry stays until the deadline
		return nil, err
	}

	if !b.remove(hash) {
		// a concurrent completion or cancellation removed the entry first
		return nil, errors.Wrapf(ErrBlockNotAwaitingRecovery, "%v", hash)
	}
	return blockMessage, nil
}

// Cancel drops any pending reconstruction for the block hash, releasing its
// memory. Returns whether an entry was pending.
func (b *BlockRecoveryService) Cancel(hash types.SHA256Hash) bool {
	return b.remove(hash)
}

// AwaitingRecovery indicates whether the block has a pending reconstruction
func (b *BlockRecoveryService) AwaitingRecovery(hash types.SHA256Hash) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.pending[hash]
	return ok
}

func (b *BlockRecoveryService) remove(hash types.SHA256Hash) bool {
	b.mu.Lock()
	entry, ok := b.pending[hash]
	if ok {
		delete(b.pending, hash)
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	entry.timer.Stop()
	close(entry.done)
	return true
}

func (b *BlockRecoveryService) expire(hash types.SHA256Hash) {
	if b.remove(hash) {
		log.Debugf("recovery deadline expired for block %v, dropping partial reconstruction", hash)
		if b.stats != nil {
			b.stats.LogRecoveryTimeout()
		}
	}
}

// emitRequest sends the recovery request, re-emitting with exponential
// backoff while the requester backpressures, until success, completion, or
// the recovery deadline.
func (b *BlockRecoveryService) emitRequest(hash types.SHA256Hash, entry *blockRecoveryEntry) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = recoveryRequestInitialInterval
	policy.MaxElapsedTime = b.deadline

	for {
		err := b.requester.RequestBlockRecovery(hash, entry.msg.ShortIDs(), entry.missingIndices)
		if err == nil {
			return
		}

		next := policy.NextBackOff()
		if next == backoff.Stop {
			log.Debugf("giving up emitting recovery request for block %v: %v", hash, err)
			return
		}

		timer := b.clock.Timer(next)
		select {
		case <-entry.done:
			timer.Stop()
			return
		case <-timer.Alert():
		}
	}
}
