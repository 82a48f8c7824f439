package services

import (
	"bytes"

	"github.com/pkg/errors"

	log "github.com/bloXroute-Labs/btcgateway/logger"
	"github.com/bloXroute-Labs/btcgateway/messages/btc"
)

// ErrRecoveryMismatch indicates that the number of recovered transactions
// does not match the number of missing slots in the partial reconstruction
var ErrRecoveryMismatch = errors.New("recovered transaction count does not match missing indices")

// BlockDecompressionResult is the outcome of a compact block decompression
// attempt. On success BlockMessage holds the fully assembled block wire
// message. Otherwise BlockTxs holds each resolved slot (nil where missing)
// and MissingTxIndices the missing slot indices in ascending order, for a
// later recovery attempt.
type BlockDecompressionResult struct {
	Success          bool
	BlockMessage     *btc.BlockMessage
	BlockTxs         [][]byte
	MissingTxIndices []int
}

// DecompressCompactBlock converts a compact block message to a full block
// message using transactions cached in the store. Prefilled slots are taken
// from the message; the remaining slots are resolved through their short IDs
// in interleaved absolute index order. Any unresolved slot downgrades the
// result to a partial reconstruction rather than an error.
func DecompressCompactBlock(magic uint32, msg *btc.CompactBlockMessage, txStore TxStore) *BlockDecompressionResult {
	key := NewSipKey(msg.BlockHeader(), msg.ShortNonceBuf())
	shortIDToTx := MapShortIDsToTxs(key, txStore, msg.ShortIDs())

	prefilled := make(map[int][]byte, len(msg.PrefilledTxs()))
	for _, prefilledTx := range msg.PrefilledTxs() {
		prefilled[prefilledTx.Index] = prefilledTx.Content
	}

	totalTxCount := msg.TotalTxCount()
	blockTxs := make([][]byte, totalTxCount)
	missingIndices := make([]int, 0)
	shortIDs := msg.ShortIDs()

	shortTxIndex := 0
	for index := 0; index < totalTxCount; index++ {
		if content, ok := prefilled[index]; ok {
			blockTxs[index] = content
			continue
		}

		shortID := shortIDs[shortTxIndex]
		shortTxIndex++

		if content, ok := shortIDToTx[shortID]; ok {
			blockTxs[index] = content
		} else {
			missingIndices = append(missingIndices, index)
		}
	}

	if len(missingIndices) > 0 {
		return &BlockDecompressionResult{
			Success:          false,
			BlockTxs:         blockTxs,
			MissingTxIndices: missingIndices,
		}
	}

	blockMessage, err := assembleBlock(magic, msg.BlockHeader(), blockTxs)
	if err != nil {
		// assembly of self-resolved slots cannot fail on valid input
		log.Panicf("could not assemble block %v from compact block: %v", msg.BlockHash(), err)
	}

	return &BlockDecompressionResult{
		Success:      true,
		BlockMessage: blockMessage,
	}
}

// RecoverCompactBlock completes a prior partial reconstruction with
// externally fetched transactions, provided in the same order as the missing
// indices. The call is idempotent: identical inputs assemble bytewise equal
// blocks.
func RecoverCompactBlock(magic uint32, msg *btc.CompactBlockMessage, blockTxs [][]byte, missingIndices []int, recoveredTxs [][]byte) (*btc.BlockMessage, error) {
	if len(missingIndices) != len(recoveredTxs) {
		return nil, errors.Wrapf(ErrRecoveryMismatch, "missing %v, recovered %v", len(missingIndices), len(recoveredTxs))
	}

	txs := make([][]byte, len(blockTxs))
	copy(txs, blockTxs)
	for i, missingIndex := range missingIndices {
		txs[missingIndex] = recoveredTxs[i]
	}

	return assembleBlock(magic, msg.BlockHeader(), txs)
}

// assembleBlock packs the block wire message and self-checks the envelope.
// A checksum or length mismatch on bytes this process just assembled is an
// implementation bug, not a peer problem, and panics.
func assembleBlock(magic uint32, header []byte, txs [][]byte) (*btc.BlockMessage, error) {
	blockMessage, err := btc.PackBlockMessage(magic, header, txs)
	if err != nil {
		return nil, err
	}

	checksum := btc.Checksum(blockMessage.Payload())
	if !bytes.Equal(checksum[:], blockMessage.PayloadChecksum()) {
		log.Panicf("checksum mismatch on self-assembled block %v", blockMessage.BlockHash())
	}
	if int(blockMessage.PayloadLen()) != len(blockMessage.Payload()) {
		log.Panicf("payload length mismatch on self-assembled block %v", blockMessage.BlockHash())
	}
	return blockMessage, nil
}
