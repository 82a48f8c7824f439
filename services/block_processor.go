package services

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/bxmessage"
	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/types"
	"github.com/bloXroute-Labs/btcgateway/utils"
)

// error constants for identifying special processing cases
var (
	ErrAlreadyProcessed = errors.New("already processed")
	ErrMissingShortIDs  = errors.New("missing short IDs")
	ErrBadCompressed    = errors.New("bad compressed block")
)

const processedBlocksCapacity = 100

// compressed block entry flags
const (
	entryShortID = 0
	entryFullTx  = 1
)

// BlockProcessor is the service interface for converting blocks to and from
// their compressed BDN broadcast form
type BlockProcessor interface {
	BlockToBroadcast(block *btc.BlockMessage, minTxAge time.Duration) (*bxmessage.Broadcast, types.ShortIDList, error)
	BlockFromBroadcast(broadcast *bxmessage.Broadcast) (*btc.BlockMessage, types.ShortIDList, error)
	ShouldProcess(hash types.SHA256Hash) bool
}

// NewBlockProcessor returns a BlockProcessor over the shared transaction
// store. Transactions younger than minTxAge at compression time are carried
// in full, since remote gateways may not have indexed them yet.
func NewBlockProcessor(txStore TxStore, clock utils.Clock, magic uint32) BlockProcessor {
	return &blockProcessor{
		txStore:         txStore,
		clock:           clock,
		magic:           magic,
		processedBlocks: NewSeenBlocks("processedBlocks", processedBlocksCapacity),
	}
}

type blockProcessor struct {
	txStore         TxStore
	clock           utils.Clock
	magic           uint32
	processedBlocks *SeenBlocks
}

// BlockToBroadcast compresses a block into a broadcast message, replacing
// each transaction whose BDN short ID is known and old enough with that
// short ID.
func (bp *blockProcessor) BlockToBroadcast(block *btc.BlockMessage, minTxAge time.Duration) (*bxmessage.Broadcast, types.ShortIDList, error) {
	blockHash := block.BlockHash()
	if !bp.ShouldProcess(blockHash) {
		return nil, nil, ErrAlreadyProcessed
	}

	txs, err := block.Txs()
	if err != nil {
		return nil, nil, err
	}

	maxTimestampForCompression := bp.clock.Now().Add(-minTxAge)
	usedShortIDs := make(types.ShortIDList, 0)

	compressed := make([]byte, 0, len(block.Payload()))
	compressed = append(compressed, block.BlockHeader()...)
	countBuf := make([]byte, btc.VarintSize(uint64(len(txs))))
	if _, err = btc.PackVarint(countBuf, 0, uint64(len(txs))); err != nil {
		return nil, nil, err
	}
	compressed = append(compressed, countBuf...)

	for _, tx := range txs {
		txHash := types.SHA256Hash(chainhash.DoubleHashH(tx))

		bxTransaction, ok := bp.txStore.Get(txHash)
		if ok && bxTransaction.ShortID() != types.ShortIDEmpty && bxTransaction.AddTime().Before(maxTimestampForCompression) {
			shortID := bxTransaction.ShortID()
			usedShortIDs = append(usedShortIDs, shortID)
			compressed = append(compressed, entryShortID,
				byte(shortID), byte(shortID>>8), byte(shortID>>16), byte(shortID>>24))
			continue
		}

		lenBuf := make([]byte, btc.VarintSize(uint64(len(tx))))
		if _, err = btc.PackVarint(lenBuf, 0, uint64(len(tx))); err != nil {
			return nil, nil, err
		}
		compressed = append(compressed, entryFullTx)
		compressed = append(compressed, lenBuf...)
		compressed = append(compressed, tx...)
	}

	bp.processedBlocks.Add(blockHash)
	return bxmessage.NewBlockBroadcast(blockHash, compressed, usedShortIDs), usedShortIDs, nil
}

// BlockFromBroadcast expands the compressed block in a broadcast message,
// replacing each short ID with the stored transaction contents. If any short
// ID is unknown the missing list is returned with ErrMissingShortIDs so the
// caller can request recovery.
func (bp *blockProcessor) BlockFromBroadcast(broadcast *bxmessage.Broadcast) (*btc.BlockMessage, types.ShortIDList, error) {
	if !bp.ShouldProcess(broadcast.Hash()) {
		return nil, nil, ErrAlreadyProcessed
	}

	compressed := broadcast.Block()
	if len(compressed) < btc.BtcBlockHeaderLen+1 {
		return nil, nil, errors.Wrapf(ErrBadCompressed, "compressed block of %v bytes too short", len(compressed))
	}
	header := compressed[:btc.BtcBlockHeaderLen]

	txCount, n, err := btc.ReadVarint(compressed, btc.BtcBlockHeaderLen)
	if err != nil {
		return nil, nil, errors.Wrap(ErrBadCompressed, err.Error())
	}
	off := btc.BtcBlockHeaderLen + n

	txs := make([][]byte, 0, txCount)
	var missingShortIDs types.ShortIDList
	for i := uint64(0); i < txCount; i++ {
		if off >= len(compressed) {
			return nil, nil, errors.Wrapf(ErrBadCompressed, "compressed block truncated at entry %v", i)
		}
		flag := compressed[off]
		off++

		switch flag {
		case entryShortID:
			if len(compressed) < off+4 {
				return nil, nil, errors.Wrapf(ErrBadCompressed, "compressed block truncated at entry %v", i)
			}
			shortID := types.ShortID(uint32(compressed[off]) | uint32(compressed[off+1])<<8 |
				uint32(compressed[off+2])<<16 | uint32(compressed[off+3])<<24)
			off += 4

			bxTransaction, err := bp.txStore.GetTxByShortID(shortID)
			if err != nil {
				missingShortIDs = append(missingShortIDs, shortID)
				continue
			}
			txs = append(txs, bxTransaction.Content())
		case entryFullTx:
			txLen, n, err := btc.ReadVarint(compressed, off)
			if err != nil {
				return nil, nil, errors.Wrap(ErrBadCompressed, err.Error())
			}
			off += n
			if uint64(len(compressed)) < uint64(off)+txLen {
				return nil, nil, errors.Wrapf(ErrBadCompressed, "compressed block truncated at entry %v", i)
			}
			txs = append(txs, compressed[off:off+int(txLen)])
			off += int(txLen)
		default:
			return nil, nil, errors.Wrapf(ErrBadCompressed, "unknown entry flag %v", flag)
		}
	}

	if len(missingShortIDs) > 0 {
		return nil, missingShortIDs, ErrMissingShortIDs
	}

	block, err := btc.PackBlockMessage(bp.magic, header, txs)
	if err != nil {
		return nil, nil, err
	}

	bp.processedBlocks.Add(broadcast.Hash())
	return block, nil, nil
}

// ShouldProcess indicates whether the block has not been converted recently
func (bp *blockProcessor) ShouldProcess(hash types.SHA256Hash) bool {
	return !bp.processedBlocks.Exists(hash)
}
