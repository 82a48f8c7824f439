package services

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/dchest/siphash"

	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/types"
)

// SipKeyLen is the length of a compact block SipHash key
const SipKeyLen = 16

// SipKey is the per-block key for short ID computation: the first 16 bytes
// of SHA256(block header ‖ short nonce).
type SipKey [SipKeyLen]byte

// NewSipKey derives the short ID key for a compact block
func NewSipKey(blockHeader []byte, shortNonceBuf []byte) SipKey {
	hash := sha256.New()
	hash.Write(blockHeader)
	hash.Write(shortNonceBuf)

	var key SipKey
	copy(key[:], hash.Sum(nil))
	return key
}

// ComputeShortID calculates the compact block short ID for a transaction
// hash: the 6 low bytes of SipHash-2-4 keyed with the block's SipKey. The
// hash must be provided in natural byte order (display hex reversed).
func ComputeShortID(key SipKey, txHash types.SHA256Hash) btc.ShortID {
	k0 := binary.LittleEndian.Uint64(key[0:8])
	k1 := binary.LittleEndian.Uint64(key[8:16])
	sum := siphash.Hash(k0, k1, txHash[:])

	var shortID btc.ShortID
	for i := 0; i < btc.BtcShortIDLen; i++ {
		shortID[i] = byte(sum >> (8 * i))
	}
	return shortID
}

// MapShortIDsToTxs walks a snapshot of the transaction store and returns the
// short ID to transaction content mapping restricted to the short IDs present
// in the compact block. The store exposes hashes in display-order hex; they
// are byte reversed here, exactly once, before short ID computation.
//
// On a short ID collision between two cached transactions the first one in
// enumeration order wins, so the result is deterministic for a given
// enumeration order.
func MapShortIDsToTxs(key SipKey, txStore TxStore, shortIDs btc.ShortIDList) map[btc.ShortID]types.TxContent {
	wanted := make(map[btc.ShortID]struct{}, len(shortIDs))
	for _, shortID := range shortIDs {
		wanted[shortID] = struct{}{}
	}

	shortIDToTx := make(map[btc.ShortID]types.TxContent, len(shortIDs))
	for _, displayHex := range txStore.Hashes() {
		txHash, err := types.NewSHA256HashFromDisplayHex(displayHex)
		if err != nil {
			continue
		}

		shortID := ComputeShortID(key, txHash)
		if _, ok := wanted[shortID]; !ok {
			continue
		}
		if _, taken := shortIDToTx[shortID]; taken {
			continue
		}

		content, ok := txStore.GetByDisplayHash(displayHex)
		if !ok {
			continue
		}
		shortIDToTx[shortID] = content
	}
	return shortIDToTx
}
