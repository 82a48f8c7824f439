package bxmessage

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/types"
)

// Key releases the decryption key for a previously propagated encrypted
// block
type Key struct {
	blockHash types.SHA256Hash
	key       []byte
}

// NewKey composes a key release message
func NewKey(blockHash types.SHA256Hash, key []byte) *Key {
	return &Key{blockHash: blockHash, key: key}
}

// BlockHash returns the hash of the block the key unlocks
func (m *Key) BlockHash() types.SHA256Hash {
	return m.blockHash
}

// Key returns the decryption key bytes
func (m *Key) Key() []byte {
	return m.key
}

// MsgType returns the message command
func (m *Key) MsgType() string {
	return KeyType
}

// Pack serializes the message into BDN wire form
func (m *Key) Pack() ([]byte, error) {
	payload := make([]byte, types.SHA256HashLen+4+len(m.key))
	copy(payload, m.blockHash[:])
	binary.LittleEndian.PutUint32(payload[types.SHA256HashLen:], uint32(len(m.key)))
	copy(payload[types.SHA256HashLen+4:], m.key)
	return packEnvelope(KeyType, payload), nil
}

// Unpack deserializes the message from BDN wire payload bytes
func (m *Key) Unpack(payload []byte) error {
	if len(payload) < types.SHA256HashLen+4 {
		return errors.Wrapf(ErrInvalidMessage, "key payload of %v bytes too short", len(payload))
	}
	copy(m.blockHash[:], payload)
	keyLen := binary.LittleEndian.Uint32(payload[types.SHA256HashLen:])
	if int(keyLen) != len(payload)-types.SHA256HashLen-4 {
		return errors.Wrapf(ErrInvalidMessage, "key length field %v does not match payload", keyLen)
	}
	m.key = payload[types.SHA256HashLen+4:]
	return nil
}
