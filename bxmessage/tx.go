package bxmessage

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/types"
)

// Tx carries a single transaction through the BDN
type Tx struct {
	hash    types.SHA256Hash
	content types.TxContent
}

// NewTx composes a BDN transaction message
func NewTx(hash types.SHA256Hash, content types.TxContent) *Tx {
	return &Tx{hash: hash, content: content}
}

// Hash returns the transaction hash in natural byte order
func (m *Tx) Hash() types.SHA256Hash {
	return m.hash
}

// Content returns the raw transaction bytes
func (m *Tx) Content() types.TxContent {
	return m.content
}

// MsgType returns the message command
func (m *Tx) MsgType() string {
	return TxType
}

// Pack serializes the message into BDN wire form
func (m *Tx) Pack() ([]byte, error) {
	payload := make([]byte, types.SHA256HashLen+4+len(m.content))
	copy(payload, m.hash[:])
	binary.LittleEndian.PutUint32(payload[types.SHA256HashLen:], uint32(len(m.content)))
	copy(payload[types.SHA256HashLen+4:], m.content)
	return packEnvelope(TxType, payload), nil
}

// Unpack deserializes the message from BDN wire payload bytes
func (m *Tx) Unpack(payload []byte) error {
	if len(payload) < types.SHA256HashLen+4 {
		return errors.Wrapf(ErrInvalidMessage, "tx payload of %v bytes too short", len(payload))
	}
	copy(m.hash[:], payload)
	contentLen := binary.LittleEndian.Uint32(payload[types.SHA256HashLen:])
	if int(contentLen) != len(payload)-types.SHA256HashLen-4 {
		return errors.Wrapf(ErrInvalidMessage, "tx content length field %v does not match payload", contentLen)
	}
	m.content = payload[types.SHA256HashLen+4:]
	return nil
}
