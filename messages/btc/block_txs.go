package btc

import (
	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/types"
)

// BlockTxsMessage represents a blocktxn payload delivering transactions that
// were requested for block recovery, in request index order.
type BlockTxsMessage struct {
	blockHash types.SHA256Hash
	txs       [][]byte
}

// NewBlockTxsMessageFromBytes decodes a blocktxn payload
func NewBlockTxsMessageFromBytes(payload []byte) (*BlockTxsMessage, error) {
	if len(payload) < types.SHA256HashLen+1 {
		return nil, errors.Wrapf(ErrMalformedBlock, "blocktxn payload of %v bytes too short", len(payload))
	}

	msg := &BlockTxsMessage{}
	copy(msg.blockHash[:], payload)
	off := types.SHA256HashLen

	count, n, err := ReadVarint(payload, off)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedBlock, err.Error())
	}
	off += n

	msg.txs = make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		size, err := TxSize(payload, off)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedBlock, err.Error())
		}
		msg.txs = append(msg.txs, payload[off:off+size])
		off += size
	}

	if off != len(payload) {
		return nil, errors.Wrapf(ErrMalformedBlock, "%v trailing bytes after blocktxn transactions", len(payload)-off)
	}
	return msg, nil
}

// PackGetBlockTxsMessage assembles a complete getblocktxn wire message
// requesting the transactions at the provided absolute indices, which must
// be in ascending order. Indices are written in BIP-152 differential form.
func PackGetBlockTxsMessage(magic uint32, blockHash types.SHA256Hash, indices []int) ([]byte, error) {
	payloadLen := types.SHA256HashLen + VarintSize(uint64(len(indices)))
	prev := -1
	for _, index := range indices {
		payloadLen += VarintSize(uint64(index - prev - 1))
		prev = index
	}

	buf := make([]byte, BtcHdrCommonOff+payloadLen)
	off := BtcHdrCommonOff
	copy(buf[off:], blockHash[:])
	off += types.SHA256HashLen

	n, err := PackVarint(buf, off, uint64(len(indices)))
	if err != nil {
		return nil, err
	}
	off += n

	prev = -1
	for _, index := range indices {
		if index <= prev {
			return nil, errors.Errorf("could not pack getblocktxn: indices not ascending at %v", index)
		}
		if n, err = PackVarint(buf, off, uint64(index-prev-1)); err != nil {
			return nil, err
		}
		off += n
		prev = index
	}

	if err = PackHeader(buf, magic, GetBlockTxsCmd, buf[BtcHdrCommonOff:]); err != nil {
		return nil, err
	}
	return buf, nil
}

// BlockHash returns the hash of the block the transactions belong to
func (m *BlockTxsMessage) BlockHash() types.SHA256Hash {
	return m.blockHash
}

// Txs returns the delivered transactions in request index order
func (m *BlockTxsMessage) Txs() [][]byte {
	return m.txs
}
