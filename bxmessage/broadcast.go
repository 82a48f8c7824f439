package bxmessage

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/types"
)

// Broadcast carries a compressed block through the BDN: the block hash, the
// BDN short IDs consumed by the compression, and the compressed block bytes.
type Broadcast struct {
	blockHash types.SHA256Hash
	shortIDs  types.ShortIDList
	block     []byte
}

// NewBlockBroadcast composes a block broadcast message
func NewBlockBroadcast(blockHash types.SHA256Hash, block []byte, shortIDs types.ShortIDList) *Broadcast {
	return &Broadcast{
		blockHash: blockHash,
		shortIDs:  shortIDs,
		block:     block,
	}
}

// Hash returns the block hash in natural byte order
func (m *Broadcast) Hash() types.SHA256Hash {
	return m.blockHash
}

// ShortIDs returns the BDN short IDs consumed by the block compression
func (m *Broadcast) ShortIDs() types.ShortIDList {
	return m.shortIDs
}

// Block returns the compressed block bytes
func (m *Broadcast) Block() []byte {
	return m.block
}

// MsgType returns the message command
func (m *Broadcast) MsgType() string {
	return BroadcastType
}

// Pack serializes the message into BDN wire form
func (m *Broadcast) Pack() ([]byte, error) {
	payloadLen := types.SHA256HashLen + 4 + len(m.shortIDs)*4 + 4 + len(m.block)
	payload := make([]byte, payloadLen)

	copy(payload, m.blockHash[:])
	off := types.SHA256HashLen
	binary.LittleEndian.PutUint32(payload[off:], uint32(len(m.shortIDs)))
	off += 4
	for _, shortID := range m.shortIDs {
		binary.LittleEndian.PutUint32(payload[off:], uint32(shortID))
		off += 4
	}
	binary.LittleEndian.PutUint32(payload[off:], uint32(len(m.block)))
	off += 4
	copy(payload[off:], m.block)

	return packEnvelope(BroadcastType, payload), nil
}

// Unpack deserializes the message from BDN wire payload bytes
func (m *Broadcast) Unpack(payload []byte) error {
	if len(payload) < types.SHA256HashLen+8 {
		return errors.Wrapf(ErrInvalidMessage, "broadcast payload of %v bytes too short", len(payload))
	}
	copy(m.blockHash[:], payload)
	off := types.SHA256HashLen

	shortIDCount := binary.LittleEndian.Uint32(payload[off:])
	off += 4
	if len(payload) < off+int(shortIDCount)*4+4 {
		return errors.Wrapf(ErrInvalidMessage, "broadcast short ID list truncated at offset %v", off)
	}
	m.shortIDs = make(types.ShortIDList, shortIDCount)
	for i := uint32(0); i < shortIDCount; i++ {
		m.shortIDs[i] = types.ShortID(binary.LittleEndian.Uint32(payload[off:]))
		off += 4
	}

	blockLen := binary.LittleEndian.Uint32(payload[off:])
	off += 4
	if int(blockLen) != len(payload)-off {
		return errors.Wrapf(ErrInvalidMessage, "broadcast block length field %v does not match payload", blockLen)
	}
	m.block = payload[off:]
	return nil
}
