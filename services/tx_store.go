package services

import (
	"sort"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v2"

	"github.com/bloXroute-Labs/btcgateway/types"
)

// ErrShortIDNotFound is returned when a BDN short ID has no stored transaction
var ErrShortIDNotFound = errors.New("short ID not found in tx store")

const (
	bloomFilterEstimatedEntries = 1_000_000
	bloomFilterFalsePositive    = 0.001
)

// TxStore is the service interface over the gateway's shared transaction
// cache. The hash byte order question is unresolved upstream, so both
// orderings are exposed: Hashes returns display-order hex (the RPC
// convention), RawHashes natural wire order. Callers choose.
type TxStore interface {
	Add(hash types.SHA256Hash, content types.TxContent, timestamp time.Time) *types.BxTransaction
	Get(hash types.SHA256Hash) (*types.BxTransaction, bool)
	GetByDisplayHash(displayHex string) (types.TxContent, bool)
	GetTxByShortID(shortID types.ShortID) (*types.BxTransaction, error)
	AssignShortID(hash types.SHA256Hash, shortID types.ShortID) bool
	HasTx(hash types.SHA256Hash) bool
	Hashes() []string
	RawHashes() []types.SHA256Hash
	Count() int
}

// BxTxStore is an in-memory TxStore over a concurrent map. Enumerations
// return a snapshot so decompression never observes a mid-iteration mutation.
type BxTxStore struct {
	hashToContent *xsync.MapOf[string, *types.BxTransaction]
	shortIDToHash *xsync.MapOf[types.ShortID, types.SHA256Hash]
	seenTxs       *bloom.BloomFilter
}

// NewBxTxStore creates a new transaction store
func NewBxTxStore() *BxTxStore {
	return &BxTxStore{
		hashToContent: xsync.NewMapOf[*types.BxTransaction](),
		shortIDToHash: xsync.NewIntegerMapOf[types.ShortID, types.SHA256Hash](),
		seenTxs:       bloom.NewWithEstimates(bloomFilterEstimatedEntries, bloomFilterFalsePositive),
	}
}

// Add inserts or overwrites a transaction. Overwrites are expected on
// duplicate announcements; a concurrent reader may observe either version.
func (t *BxTxStore) Add(hash types.SHA256Hash, content types.TxContent, timestamp time.Time) *types.BxTransaction {
	tx := types.NewBxTransaction(hash, content, timestamp)
	if existing, loaded := t.hashToContent.LoadAndStore(string(hash[:]), tx); loaded {
		tx.SetShortID(existing.ShortID())
	}
	t.seenTxs.Add(hash[:])
	return tx
}

// Get returns the stored transaction for the hash in natural byte order
func (t *BxTxStore) Get(hash types.SHA256Hash) (*types.BxTransaction, bool) {
	return t.hashToContent.Load(string(hash[:]))
}

// GetByDisplayHash looks up raw transaction bytes by display-order hex
func (t *BxTxStore) GetByDisplayHash(displayHex string) (types.TxContent, bool) {
	hash, err := types.NewSHA256HashFromDisplayHex(displayHex)
	if err != nil {
		return nil, false
	}
	tx, ok := t.Get(hash)
	if !ok {
		return nil, false
	}
	return tx.Content(), true
}

// GetTxByShortID returns the transaction assigned the provided BDN short ID
func (t *BxTxStore) GetTxByShortID(shortID types.ShortID) (*types.BxTransaction, error) {
	hash, ok := t.shortIDToHash.Load(shortID)
	if !ok {
		return nil, errors.Wrapf(ErrShortIDNotFound, "%v", shortID)
	}
	tx, ok := t.Get(hash)
	if !ok {
		return nil, errors.Wrapf(ErrShortIDNotFound, "%v evicted", shortID)
	}
	return tx, nil
}

// AssignShortID records the BDN short ID for an already stored transaction
func (t *BxTxStore) AssignShortID(hash types.SHA256Hash, shortID types.ShortID) bool {
	tx, ok := t.Get(hash)
	if !ok || shortID == types.ShortIDEmpty {
		return false
	}
	tx.SetShortID(shortID)
	t.shortIDToHash.Store(shortID, hash)
	return true
}

// HasTx indicates whether the hash has been stored. The bloom filter
// short-circuits the common miss without touching the map.
func (t *BxTxStore) HasTx(hash types.SHA256Hash) bool {
	if !t.seenTxs.Test(hash[:]) {
		return false
	}
	_, ok := t.Get(hash)
	return ok
}

// Hashes returns a snapshot of all stored hashes as display-order hex,
// sorted for deterministic enumeration order.
func (t *BxTxStore) Hashes() []string {
	hashes := make([]string, 0, t.Count())
	t.hashToContent.Range(func(key string, tx *types.BxTransaction) bool {
		hashes = append(hashes, tx.Hash().DisplayString())
		return true
	})
	sort.Strings(hashes)
	return hashes
}

// RawHashes returns a snapshot of all stored hashes in natural byte order
func (t *BxTxStore) RawHashes() []types.SHA256Hash {
	hashes := make([]types.SHA256Hash, 0, t.Count())
	t.hashToContent.Range(func(key string, tx *types.BxTransaction) bool {
		hashes = append(hashes, tx.Hash())
		return true
	})
	sort.Slice(hashes, func(i, j int) bool {
		return string(hashes[i][:]) < string(hashes[j][:])
	})
	return hashes
}

// Count returns the number of stored transactions
func (t *BxTxStore) Count() int {
	return t.hashToContent.Size()
}
