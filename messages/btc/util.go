package btc

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// VarintSize returns the serialized length of n under the Bitcoin CompactSize
// rule: 1, 3, 5 or 9 bytes.
func VarintSize(n uint64) int {
	switch {
	case n < 0xFD:
		return 1
	case n <= 0xFFFF:
		return 3
	case n <= 0xFFFFFFFF:
		return 5
	default:
		return 9
	}
}

// PackVarint writes n as a CompactSize varint into buf at offset, returning
// the number of bytes written.
func PackVarint(buf []byte, offset int, n uint64) (int, error) {
	size := VarintSize(n)
	if len(buf) < offset+size {
		return 0, fmt.Errorf("could not pack varint %v: buffer too small (%v bytes at offset %v)", n, len(buf), offset)
	}

	switch size {
	case 1:
		buf[offset] = byte(n)
	case 3:
		buf[offset] = 0xFD
		binary.LittleEndian.PutUint16(buf[offset+1:], uint16(n))
	case 5:
		buf[offset] = 0xFE
		binary.LittleEndian.PutUint32(buf[offset+1:], uint32(n))
	default:
		buf[offset] = 0xFF
		binary.LittleEndian.PutUint64(buf[offset+1:], n)
	}
	return size, nil
}

// ReadVarint reads a CompactSize varint from buf at offset, returning the
// value and the number of bytes consumed.
func ReadVarint(buf []byte, offset int) (uint64, int, error) {
	if len(buf) <= offset {
		return 0, 0, fmt.Errorf("could not read varint: buffer truncated at offset %v", offset)
	}

	prefix := buf[offset]
	switch {
	case prefix < 0xFD:
		return uint64(prefix), 1, nil
	case prefix == 0xFD:
		if len(buf) < offset+3 {
			return 0, 0, fmt.Errorf("could not read 2 byte varint: buffer truncated at offset %v", offset)
		}
		return uint64(binary.LittleEndian.Uint16(buf[offset+1:])), 3, nil
	case prefix == 0xFE:
		if len(buf) < offset+5 {
			return 0, 0, fmt.Errorf("could not read 4 byte varint: buffer truncated at offset %v", offset)
		}
		return uint64(binary.LittleEndian.Uint32(buf[offset+1:])), 5, nil
	default:
		if len(buf) < offset+9 {
			return 0, 0, fmt.Errorf("could not read 8 byte varint: buffer truncated at offset %v", offset)
		}
		return binary.LittleEndian.Uint64(buf[offset+1:]), 9, nil
	}
}

// Checksum computes the Bitcoin message checksum: the first 4 bytes of the
// double SHA256 of the payload.
func Checksum(payload []byte) [BtcChecksumLen]byte {
	var checksum [BtcChecksumLen]byte
	copy(checksum[:], chainhash.DoubleHashB(payload))
	return checksum
}

// PackHeader writes the 24-byte Bitcoin envelope into buf: magic, zero-padded
// command, payload length and checksum, all integers little-endian.
func PackHeader(buf []byte, magic uint32, command string, payload []byte) error {
	if len(buf) < BtcHdrCommonOff {
		return fmt.Errorf("could not pack message header: buffer too small (%v bytes)", len(buf))
	}
	if len(command) > BtcCommandLen {
		return fmt.Errorf("could not pack message header: command %q too long", command)
	}

	binary.LittleEndian.PutUint32(buf, magic)
	commandField := make([]byte, BtcCommandLen)
	copy(commandField, command)
	copy(buf[BtcMagicNumberLen:], commandField)
	binary.LittleEndian.PutUint32(buf[BtcMagicNumberLen+BtcCommandLen:], uint32(len(payload)))

	checksum := Checksum(payload)
	copy(buf[BtcHeaderMinusChecksum:], checksum[:])
	return nil
}
