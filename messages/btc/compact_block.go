package btc

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/types"
)

// ErrMalformedCompactBlock indicates a compact block payload that could not
// be decoded: truncated buffer, or a prefilled index outside the block.
// Malformed messages are dropped without penalizing the peer at this layer.
var ErrMalformedCompactBlock = errors.New("malformed compact block message")

// ShortID is the 6-byte SipHash-derived compact block transaction ID
type ShortID [BtcShortIDLen]byte

// ShortIDList represents an ordered list of compact block short IDs
type ShortIDList []ShortID

// PrefilledTx is a full transaction carried inline in a compact block,
// identified by its absolute slot index in the reconstructed block.
type PrefilledTx struct {
	Index   int
	Content []byte
}

// CompactBlockMessage represents the parts of a BIP-152 cmpctblock message
// needed for reconstruction. Prefilled indices are absolute: the standard
// differential encoding is resolved during decoding.
type CompactBlockMessage struct {
	header       [BtcBlockHeaderLen]byte
	shortNonce   [BtcShortNonceLen]byte
	shortIDs     ShortIDList
	prefilledTxs []PrefilledTx
}

// NewCompactBlockMessage builds a compact block message from already-decoded
// parts. Mostly useful for tests and for re-emitting compact blocks.
func NewCompactBlockMessage(header [BtcBlockHeaderLen]byte, nonce uint64, shortIDs ShortIDList, prefilledTxs []PrefilledTx) *CompactBlockMessage {
	msg := &CompactBlockMessage{
		header:       header,
		shortIDs:     shortIDs,
		prefilledTxs: prefilledTxs,
	}
	binary.LittleEndian.PutUint64(msg.shortNonce[:], nonce)
	return msg
}

// NewCompactBlockMessageFromBytes decodes a cmpctblock payload. The prefilled
// transaction indices are converted from BIP-152 differential form to
// absolute slot indices, validated against the total slot count.
func NewCompactBlockMessageFromBytes(payload []byte) (*CompactBlockMessage, error) {
	msg := &CompactBlockMessage{}

	if len(payload) < BtcBlockHeaderLen+BtcShortNonceLen {
		return nil, errors.Wrapf(ErrMalformedCompactBlock, "payload of %v bytes shorter than header and nonce", len(payload))
	}
	copy(msg.header[:], payload)
	off := BtcBlockHeaderLen
	copy(msg.shortNonce[:], payload[off:])
	off += BtcShortNonceLen

	shortIDCount, n, err := ReadVarint(payload, off)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedCompactBlock, err.Error())
	}
	off += n
	if shortIDCount > uint64(len(payload)-off)/BtcShortIDLen {
		return nil, errors.Wrapf(ErrMalformedCompactBlock, "short ID list truncated at offset %v", off)
	}

	msg.shortIDs = make(ShortIDList, shortIDCount)
	for i := uint64(0); i < shortIDCount; i++ {
		copy(msg.shortIDs[i][:], payload[off:off+BtcShortIDLen])
		off += BtcShortIDLen
	}

	prefilledCount, n, err := ReadVarint(payload, off)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedCompactBlock, err.Error())
	}
	off += n
	if prefilledCount > uint64(len(payload)-off) {
		return nil, errors.Wrapf(ErrMalformedCompactBlock, "prefilled transaction list truncated at offset %v", off)
	}

	totalTxCount := int(shortIDCount + prefilledCount)
	msg.prefilledTxs = make([]PrefilledTx, 0, prefilledCount)
	prevIndex := -1
	for i := uint64(0); i < prefilledCount; i++ {
		diff, n, err := ReadVarint(payload, off)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedCompactBlock, err.Error())
		}
		off += n

		index := prevIndex + int(diff) + 1
		if index <= prevIndex || index >= totalTxCount {
			return nil, errors.Wrapf(ErrMalformedCompactBlock, "prefilled index %v out of range (%v slots)", index, totalTxCount)
		}

		txSize, err := TxSize(payload, off)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedCompactBlock, err.Error())
		}
		msg.prefilledTxs = append(msg.prefilledTxs, PrefilledTx{
			Index:   index,
			Content: payload[off : off+txSize],
		})
		off += txSize
		prevIndex = index
	}

	if off != len(payload) {
		return nil, errors.Wrapf(ErrMalformedCompactBlock, "%v trailing bytes after prefilled transactions", len(payload)-off)
	}

	return msg, nil
}

// BlockHeader returns the 80-byte serialized block header
func (m *CompactBlockMessage) BlockHeader() []byte {
	return m.header[:]
}

// ShortNonceBuf returns the raw 8-byte little-endian short ID nonce
func (m *CompactBlockMessage) ShortNonceBuf() []byte {
	return m.shortNonce[:]
}

// ShortNonce returns the short ID nonce as an integer
func (m *CompactBlockMessage) ShortNonce() uint64 {
	return binary.LittleEndian.Uint64(m.shortNonce[:])
}

// ShortIDs returns the ordered short ID list
func (m *CompactBlockMessage) ShortIDs() ShortIDList {
	return m.shortIDs
}

// PrefilledTxs returns the prefilled transactions with absolute indices in
// strictly increasing order
func (m *CompactBlockMessage) PrefilledTxs() []PrefilledTx {
	return m.prefilledTxs
}

// TotalTxCount returns the number of transaction slots in the block
func (m *CompactBlockMessage) TotalTxCount() int {
	return len(m.shortIDs) + len(m.prefilledTxs)
}

// BlockHash returns the double-SHA256 of the block header in natural order
func (m *CompactBlockMessage) BlockHash() types.SHA256Hash {
	return types.SHA256Hash(chainhash.DoubleHashH(m.header[:]))
}
