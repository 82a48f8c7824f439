package services

import (
	"crypto/rand"
	"sync"

	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/types"
)

// ErrKeyNotFound is returned when no encryption key is held for a block
var ErrKeyNotFound = errors.New("no encryption key for block")

// BlockEncryptionKeyLen is the length of block encryption keys
const BlockEncryptionKeyLen = 32

// InProgressBlocks holds the encryption keys of blocks that have been
// propagated to the network but whose keys have not yet been released.
// Nothing in the gateway encrypts the block with the key; this is only the
// key escrow consumed by the key release step.
type InProgressBlocks struct {
	mu   sync.Mutex
	keys map[types.SHA256Hash][]byte
}

// NewInProgressBlocks creates an empty key escrow
func NewInProgressBlocks() *InProgressBlocks {
	return &InProgressBlocks{
		keys: make(map[types.SHA256Hash][]byte),
	}
}

// StoreKey generates and holds a fresh encryption key for the block hash.
// An already stored key is returned unchanged.
func (i *InProgressBlocks) StoreKey(hash types.SHA256Hash) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if key, ok := i.keys[hash]; ok {
		return key, nil
	}

	key := make([]byte, BlockEncryptionKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	i.keys[hash] = key
	return key, nil
}

// GetEncryptionKey returns the held key for the block hash
func (i *InProgressBlocks) GetEncryptionKey(hash types.SHA256Hash) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	key, ok := i.keys[hash]
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "%v", hash)
	}
	return key, nil
}

// Remove drops the key for a block whose key release has completed
func (i *InProgressBlocks) Remove(hash types.SHA256Hash) {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.keys, hash)
}
