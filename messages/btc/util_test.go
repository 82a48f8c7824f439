package btc

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintSize(t *testing.T) {
	assert.Equal(t, 1, VarintSize(0))
	assert.Equal(t, 1, VarintSize(0xFC))
	assert.Equal(t, 3, VarintSize(0xFD))
	assert.Equal(t, 3, VarintSize(0xFFFF))
	assert.Equal(t, 5, VarintSize(0x10000))
	assert.Equal(t, 5, VarintSize(0xFFFFFFFF))
	assert.Equal(t, 9, VarintSize(0x100000000))
}

func TestPackVarint_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0xFC, 0xFD, 0x1234, 0xFFFF, 0x10000, 0xDEADBEEF, 0xFFFFFFFF, 0x100000000, 0x123456789ABCDEF0}

	for _, value := range values {
		buf := make([]byte, 9)
		written, err := PackVarint(buf, 0, value)
		require.NoError(t, err)
		assert.Equal(t, VarintSize(value), written)

		read, consumed, err := ReadVarint(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, value, read)
		assert.Equal(t, written, consumed)
	}
}

func TestPackVarint_Encoding(t *testing.T) {
	buf := make([]byte, 3)
	_, err := PackVarint(buf, 0, 0x0102)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFD, 0x02, 0x01}, buf)
}

func TestPackVarint_BufferTooSmall(t *testing.T) {
	buf := make([]byte, 2)
	_, err := PackVarint(buf, 0, 0xFFFF)
	assert.Error(t, err)

	_, err = PackVarint(buf, 2, 1)
	assert.Error(t, err)
}

func TestReadVarint_Truncated(t *testing.T) {
	_, _, err := ReadVarint([]byte{0xFD, 0x01}, 0)
	assert.Error(t, err)

	_, _, err = ReadVarint([]byte{}, 0)
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	payload := []byte("block payload bytes")

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])

	checksum := Checksum(payload)
	assert.Equal(t, second[:BtcChecksumLen], checksum[:])
}

func TestPackHeader(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	buf := make([]byte, BtcHdrCommonOff)
	err := PackHeader(buf, MainnetMagic, BlockCmd, payload)
	require.NoError(t, err)

	assert.Equal(t, MainnetMagic, binary.LittleEndian.Uint32(buf))
	assert.Equal(t, []byte("block\x00\x00\x00\x00\x00\x00\x00"), buf[BtcMagicNumberLen:BtcMagicNumberLen+BtcCommandLen])
	assert.Equal(t, uint32(len(payload)), binary.LittleEndian.Uint32(buf[BtcMagicNumberLen+BtcCommandLen:]))

	checksum := Checksum(payload)
	assert.Equal(t, checksum[:], buf[BtcHeaderMinusChecksum:])
}

func TestPackHeader_CommandTooLong(t *testing.T) {
	buf := make([]byte, BtcHdrCommonOff)
	err := PackHeader(buf, MainnetMagic, "averylongcommand", nil)
	assert.Error(t, err)
}
