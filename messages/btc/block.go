package btc

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/types"
)

// ErrMalformedBlock indicates a block wire message that fails envelope or
// payload structure checks
var ErrMalformedBlock = errors.New("malformed block message")

// BlockMessage wraps a complete Bitcoin block wire message, envelope
// included. Instances are immutable once constructed.
type BlockMessage struct {
	rawBytes []byte
}

// PackBlockMessage assembles a full block wire message from its header and
// ordered transactions: 24-byte envelope with command "block", followed by
// the 80-byte header, the CompactSize transaction count, and each
// transaction's raw bytes.
func PackBlockMessage(magic uint32, header []byte, txs [][]byte) (*BlockMessage, error) {
	if len(header) != BtcBlockHeaderLen {
		return nil, errors.Wrapf(ErrMalformedBlock, "header is %v bytes, expected %v", len(header), BtcBlockHeaderLen)
	}

	payloadLen := BtcBlockHeaderLen + VarintSize(uint64(len(txs)))
	for _, tx := range txs {
		payloadLen += len(tx)
	}

	buf := make([]byte, BtcHdrCommonOff+payloadLen)
	off := BtcHdrCommonOff
	copy(buf[off:], header)
	off += BtcBlockHeaderLen

	n, err := PackVarint(buf, off, uint64(len(txs)))
	if err != nil {
		return nil, err
	}
	off += n

	for _, tx := range txs {
		copy(buf[off:], tx)
		off += len(tx)
	}

	if err = PackHeader(buf, magic, BlockCmd, buf[BtcHdrCommonOff:]); err != nil {
		return nil, err
	}

	return &BlockMessage{rawBytes: buf}, nil
}

// NewBlockMessageFromBytes wraps raw block message bytes after checking the
// envelope structure: length field and checksum against the payload.
func NewBlockMessageFromBytes(raw []byte) (*BlockMessage, error) {
	if len(raw) < BtcHdrCommonOff+BtcBlockHeaderLen {
		return nil, errors.Wrapf(ErrMalformedBlock, "message of %v bytes shorter than envelope and header", len(raw))
	}

	payload := raw[BtcHdrCommonOff:]
	declaredLen := binary.LittleEndian.Uint32(raw[BtcMagicNumberLen+BtcCommandLen:])
	if int(declaredLen) != len(payload) {
		return nil, errors.Wrapf(ErrMalformedBlock, "payload length field %v does not match %v payload bytes", declaredLen, len(payload))
	}

	checksum := Checksum(payload)
	if !bytes.Equal(checksum[:], raw[BtcHeaderMinusChecksum:BtcHdrCommonOff]) {
		return nil, errors.Wrap(ErrMalformedBlock, "envelope checksum mismatch")
	}

	return &BlockMessage{rawBytes: raw}, nil
}

// Rawbytes returns the complete wire message, envelope included
func (m *BlockMessage) Rawbytes() []byte {
	return m.rawBytes
}

// Payload returns the message bytes past the envelope
func (m *BlockMessage) Payload() []byte {
	return m.rawBytes[BtcHdrCommonOff:]
}

// Magic returns the network magic the message was assembled for
func (m *BlockMessage) Magic() uint32 {
	return binary.LittleEndian.Uint32(m.rawBytes)
}

// PayloadChecksum returns the 4 checksum bytes carried in the envelope
func (m *BlockMessage) PayloadChecksum() []byte {
	return m.rawBytes[BtcHeaderMinusChecksum:BtcHdrCommonOff]
}

// PayloadLen returns the payload length field carried in the envelope
func (m *BlockMessage) PayloadLen() uint32 {
	return binary.LittleEndian.Uint32(m.rawBytes[BtcMagicNumberLen+BtcCommandLen:])
}

// BlockHeader returns the 80-byte serialized block header
func (m *BlockMessage) BlockHeader() []byte {
	return m.rawBytes[BtcHdrCommonOff : BtcHdrCommonOff+BtcBlockHeaderLen]
}

// BlockHash returns the double-SHA256 of the block header in natural order
func (m *BlockMessage) BlockHash() types.SHA256Hash {
	return types.SHA256Hash(chainhash.DoubleHashH(m.BlockHeader()))
}

// TxCount returns the number of transactions in the block
func (m *BlockMessage) TxCount() (int, error) {
	count, _, err := ReadVarint(m.rawBytes, BtcHdrCommonOff+BtcBlockHeaderLen)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Txs splits the block payload into per-transaction byte slices
func (m *BlockMessage) Txs() ([][]byte, error) {
	count, n, err := ReadVarint(m.rawBytes, BtcHdrCommonOff+BtcBlockHeaderLen)
	if err != nil {
		return nil, err
	}
	off := BtcHdrCommonOff + BtcBlockHeaderLen + n

	txs := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		size, err := TxSize(m.rawBytes, off)
		if err != nil {
			return nil, errors.Wrap(ErrMalformedBlock, err.Error())
		}
		txs = append(txs, m.rawBytes[off:off+size])
		off += size
	}
	return txs, nil
}
