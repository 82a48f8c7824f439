package services

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/test"
)

func headerArray(t *testing.T, header []byte) [btc.BtcBlockHeaderLen]byte {
	t.Helper()
	require.Len(t, header, btc.BtcBlockHeaderLen)
	var arr [btc.BtcBlockHeaderLen]byte
	copy(arr[:], header)
	return arr
}

func expectedBlockPayload(header []byte, txCount byte, txs ...[]byte) []byte {
	payload := append([]byte{}, header...)
	payload = append(payload, txCount)
	for _, tx := range txs {
		payload = append(payload, tx...)
	}
	return payload
}

func assertValidEnvelope(t *testing.T, block *btc.BlockMessage) {
	t.Helper()
	checksum := btc.Checksum(block.Payload())
	assert.Equal(t, checksum[:], block.PayloadChecksum())
	assert.Equal(t, uint32(len(block.Payload())), block.PayloadLen())
}

func TestDecompressCompactBlock_AllPrefilled(t *testing.T) {
	header := test.GenerateBlockHeader()
	coinbase := test.GenerateTx(1)
	msg := btc.NewCompactBlockMessage(headerArray(t, header), 7, nil, []btc.PrefilledTx{{Index: 0, Content: coinbase}})

	result := DecompressCompactBlock(btc.MainnetMagic, msg, NewBxTxStore())
	require.True(t, result.Success)

	assert.Equal(t, expectedBlockPayload(header, 0x01, coinbase), result.BlockMessage.Payload())
	assertValidEnvelope(t, result.BlockMessage)
}

func TestDecompressCompactBlock_FullyCached(t *testing.T) {
	header := test.GenerateBlockHeader()
	coinbase := test.GenerateTx(1)
	tx1 := test.GenerateTx(2)
	tx2 := test.GenerateTx(3)
	hash1 := testTxHash(0x11)
	hash2 := testTxHash(0x22)

	store := NewBxTxStore()
	store.Add(hash1, tx1, time.Now())
	store.Add(hash2, tx2, time.Now())

	var headerArr [btc.BtcBlockHeaderLen]byte
	copy(headerArr[:], header)
	msg := btc.NewCompactBlockMessage(headerArr, 7, nil, nil)
	key := NewSipKey(msg.BlockHeader(), msg.ShortNonceBuf())

	msg = btc.NewCompactBlockMessage(headerArr, 7,
		btc.ShortIDList{ComputeShortID(key, hash1), ComputeShortID(key, hash2)},
		[]btc.PrefilledTx{{Index: 0, Content: coinbase}})

	result := DecompressCompactBlock(btc.MainnetMagic, msg, store)
	require.True(t, result.Success)
	assert.Equal(t, expectedBlockPayload(header, 0x03, coinbase, tx1, tx2), result.BlockMessage.Payload())
	assertValidEnvelope(t, result.BlockMessage)
}

func TestDecompressCompactBlock_OneMissing(t *testing.T) {
	header := test.GenerateBlockHeader()
	coinbase := test.GenerateTx(1)
	tx1 := test.GenerateTx(2)
	hash1 := testTxHash(0x11)
	hash2 := testTxHash(0x22)

	store := NewBxTxStore()
	store.Add(hash1, tx1, time.Now())

	headerArr := headerArray(t, header)
	key := NewSipKey(header, btc.NewCompactBlockMessage(headerArr, 7, nil, nil).ShortNonceBuf())
	msg := btc.NewCompactBlockMessage(headerArr, 7,
		btc.ShortIDList{ComputeShortID(key, hash1), ComputeShortID(key, hash2)},
		[]btc.PrefilledTx{{Index: 0, Content: coinbase}})

	result := DecompressCompactBlock(btc.MainnetMagic, msg, store)
	require.False(t, result.Success)
	assert.Nil(t, result.BlockMessage)

	// slot accounting: slots cover every index, missing lists exactly the nils
	require.Len(t, result.BlockTxs, 3)
	assert.Equal(t, coinbase, result.BlockTxs[0])
	assert.Equal(t, tx1, result.BlockTxs[1])
	assert.Nil(t, result.BlockTxs[2])
	assert.Equal(t, []int{2}, result.MissingTxIndices)
}

func TestRecoverCompactBlock(t *testing.T) {
	header := test.GenerateBlockHeader()
	coinbase := test.GenerateTx(1)
	tx1 := test.GenerateTx(2)
	tx2 := test.GenerateTx(3)

	headerArr := headerArray(t, header)
	msg := btc.NewCompactBlockMessage(headerArr, 7, nil, nil)
	blockTxs := [][]byte{coinbase, tx1, nil}

	block, err := RecoverCompactBlock(btc.MainnetMagic, msg, blockTxs, []int{2}, [][]byte{tx2})
	require.NoError(t, err)
	assert.Equal(t, expectedBlockPayload(header, 0x03, coinbase, tx1, tx2), block.Payload())
	assertValidEnvelope(t, block)

	// recovery is idempotent: identical inputs assemble bytewise equal blocks
	again, err := RecoverCompactBlock(btc.MainnetMagic, msg, blockTxs, []int{2}, [][]byte{tx2})
	require.NoError(t, err)
	assert.Equal(t, block.Rawbytes(), again.Rawbytes())
}

func TestRecoverCompactBlock_Mismatch(t *testing.T) {
	headerArr := headerArray(t, test.GenerateBlockHeader())
	msg := btc.NewCompactBlockMessage(headerArr, 7, nil, nil)
	blockTxs := [][]byte{test.GenerateTx(1), nil}

	block, err := RecoverCompactBlock(btc.MainnetMagic, msg, blockTxs, []int{1}, [][]byte{test.GenerateTx(2), test.GenerateTx(3)})
	assert.True(t, errors.Is(err, ErrRecoveryMismatch))
	assert.Nil(t, block)
}

func TestDecompressCompactBlock_RoundTrip(t *testing.T) {
	header := test.GenerateBlockHeader()
	headerArr := headerArray(t, header)

	txs := make([][]byte, 5)
	for i := range txs {
		txs[i] = test.GenerateTx(uint32(i + 10))
	}

	// partition: slots 0 and 3 prefilled, the rest referenced by short ID
	store := NewBxTxStore()
	key := NewSipKey(header, btc.NewCompactBlockMessage(headerArr, 42, nil, nil).ShortNonceBuf())

	shortIDs := make(btc.ShortIDList, 0)
	for _, i := range []int{1, 2, 4} {
		hash := testTxHash(byte(0x30 + i))
		store.Add(hash, txs[i], time.Now())
		shortIDs = append(shortIDs, ComputeShortID(key, hash))
	}
	prefilled := []btc.PrefilledTx{{Index: 0, Content: txs[0]}, {Index: 3, Content: txs[3]}}

	msg := btc.NewCompactBlockMessage(headerArr, 42, shortIDs, prefilled)
	result := DecompressCompactBlock(btc.MainnetMagic, msg, store)
	require.True(t, result.Success)

	assert.Equal(t, expectedBlockPayload(header, 0x05, txs...), result.BlockMessage.Payload())
	assertValidEnvelope(t, result.BlockMessage)
}

func TestDecompressCompactBlock_EmptyCache(t *testing.T) {
	headerArr := headerArray(t, test.GenerateBlockHeader())
	msg := btc.NewCompactBlockMessage(headerArr, 7,
		btc.ShortIDList{{1, 2, 3, 4, 5, 6}, {6, 5, 4, 3, 2, 1}}, nil)

	result := DecompressCompactBlock(btc.MainnetMagic, msg, NewBxTxStore())
	require.False(t, result.Success)
	assert.Equal(t, []int{0, 1}, result.MissingTxIndices)
	assert.Equal(t, [][]byte{nil, nil}, result.BlockTxs)
}
