// Package bxmessage contains the messages exchanged with BDN relay peers.
// These travel over authenticated relay connections, so the envelope is a
// plain command and length prefix without a checksum.
package bxmessage

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// message envelope constants
const (
	// CommandLen is the length of the zero-padded ASCII command field
	CommandLen = 12

	// PayloadSizeOffset is the offset of the payload length field
	PayloadSizeOffset = CommandLen

	// HeaderLen is the total envelope length
	HeaderLen = CommandLen + 4
)

// BDN message commands
const (
	BroadcastType = "broadcast"
	TxType        = "tx"
	KeyType       = "key"
)

// ErrInvalidMessage indicates a BDN message that could not be unpacked
var ErrInvalidMessage = errors.New("invalid BDN message")

// Message is the interface over all BDN wire messages
type Message interface {
	Pack() ([]byte, error)
	MsgType() string
}

func packEnvelope(msgType string, payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	copy(buf, msgType)
	binary.LittleEndian.PutUint32(buf[PayloadSizeOffset:], uint32(len(payload)))
	copy(buf[HeaderLen:], payload)
	return buf
}

// UnpackEnvelope splits a BDN wire message into command and payload
func UnpackEnvelope(buf []byte) (string, []byte, error) {
	if len(buf) < HeaderLen {
		return "", nil, errors.Wrapf(ErrInvalidMessage, "buffer of %v bytes shorter than envelope", len(buf))
	}

	command := string(trimCommand(buf[:CommandLen]))
	payloadLen := binary.LittleEndian.Uint32(buf[PayloadSizeOffset:])
	if int(payloadLen) != len(buf)-HeaderLen {
		return "", nil, errors.Wrapf(ErrInvalidMessage, "payload length field %v does not match %v payload bytes", payloadLen, len(buf)-HeaderLen)
	}
	return command, buf[HeaderLen:], nil
}

func trimCommand(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
