package services

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
	"time"

	"github.com/dchest/siphash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/test"
	"github.com/bloXroute-Labs/btcgateway/types"
)

func testTxHash(seed byte) types.SHA256Hash {
	var hash types.SHA256Hash
	for i := range hash {
		hash[i] = seed ^ byte(i)
	}
	return hash
}

func TestNewSipKey(t *testing.T) {
	header := test.GenerateBlockHeader()
	nonceBuf := test.GenerateBytes(8)

	key := NewSipKey(header, nonceBuf)

	digest := sha256.Sum256(append(append([]byte{}, header...), nonceBuf...))
	assert.Equal(t, digest[:SipKeyLen], key[:])
}

func TestComputeShortID(t *testing.T) {
	var key SipKey
	copy(key[:], test.GenerateBytes(SipKeyLen))
	txHash := testTxHash(0x5A)

	shortID := ComputeShortID(key, txHash)

	sum := siphash.Hash(binary.LittleEndian.Uint64(key[0:8]), binary.LittleEndian.Uint64(key[8:16]), txHash[:])
	sumBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(sumBuf, sum)
	assert.Equal(t, sumBuf[:btc.BtcShortIDLen], shortID[:])
}

func TestMapShortIDsToTxs(t *testing.T) {
	store := NewBxTxStore()
	key := NewSipKey(test.GenerateBlockHeader(), test.GenerateBytes(8))

	hash1 := testTxHash(0x01)
	hash2 := testTxHash(0x02)
	hash3 := testTxHash(0x03)
	tx1 := test.GenerateTx(1)
	tx2 := test.GenerateTx(2)
	tx3 := test.GenerateTx(3)
	store.Add(hash1, tx1, time.Now())
	store.Add(hash2, tx2, time.Now())
	store.Add(hash3, tx3, time.Now())

	// short IDs are computed over the natural order hash, even though the
	// store enumerates display-order hex
	sid1 := ComputeShortID(key, hash1)
	sid2 := ComputeShortID(key, hash2)

	shortIDToTx := MapShortIDsToTxs(key, store, btc.ShortIDList{sid1, sid2})
	require.Len(t, shortIDToTx, 2)
	assert.Equal(t, types.TxContent(tx1), shortIDToTx[sid1])
	assert.Equal(t, types.TxContent(tx2), shortIDToTx[sid2])
}

func TestMapShortIDsToTxs_RestrictedToWanted(t *testing.T) {
	store := NewBxTxStore()
	key := NewSipKey(test.GenerateBlockHeader(), test.GenerateBytes(8))

	store.Add(testTxHash(0x01), test.GenerateTx(1), time.Now())

	shortIDToTx := MapShortIDsToTxs(key, store, btc.ShortIDList{{9, 9, 9, 9, 9, 9}})
	assert.Empty(t, shortIDToTx)
}

func TestMapShortIDsToTxs_Deterministic(t *testing.T) {
	store := NewBxTxStore()
	key := NewSipKey(test.GenerateBlockHeader(), test.GenerateBytes(8))

	wanted := make(btc.ShortIDList, 0)
	for seed := byte(1); seed <= 20; seed++ {
		hash := testTxHash(seed)
		store.Add(hash, test.GenerateTx(uint32(seed)), time.Now())
		wanted = append(wanted, ComputeShortID(key, hash))
	}

	first := MapShortIDsToTxs(key, store, wanted)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, MapShortIDsToTxs(key, store, wanted))
	}
}
