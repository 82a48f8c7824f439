package connections

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloXroute-Labs/btcgateway/blockchain"
	"github.com/bloXroute-Labs/btcgateway/bxmessage"
	"github.com/bloXroute-Labs/btcgateway/config"
	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/services"
	"github.com/bloXroute-Labs/btcgateway/test"
	"github.com/bloXroute-Labs/btcgateway/types"
	"github.com/bloXroute-Labs/btcgateway/utils"
)

type fakeConn struct {
	id   string
	mu   sync.Mutex
	sent []bxmessage.Message
}

func (c *fakeConn) ID() string                   { return c.id }
func (c *fakeConn) Endpoint() types.NodeEndpoint { return types.NodeEndpoint{IP: "1.2.3.4", Port: 1801} }
func (c *fakeConn) Send(msg bxmessage.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeConn) sentMessages() []bxmessage.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bxmessage.Message{}, c.sent...)
}

type fakeNodeConn struct {
	mu   sync.Mutex
	sent [][]byte
}

func (c *fakeNodeConn) Endpoint() types.NodeEndpoint { return types.NodeEndpoint{IP: "127.0.0.1", Port: 8333} }
func (c *fakeNodeConn) SendBytes(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, b)
	return nil
}

func (c *fakeNodeConn) sentBytes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte{}, c.sent...)
}

func newTestProtocol(t *testing.T) (*BtcBlockchainProtocol, *GatewayNode, *fakeConn, *utils.MockClock) {
	t.Helper()
	clock := &utils.MockClock{}
	clock.SetTime(time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC))

	node := NewGatewayNode(config.NewDefaultBx(), blockchain.NewBxBridge(), clock)
	peer := &fakeConn{id: "relay1"}
	node.AddPeer(peer)

	protocol := NewBtcBlockchainProtocol(node, blockchain.BtcConverter{})
	return protocol, node, peer, clock
}

func packTestBlock(t *testing.T, txs ...[]byte) *btc.BlockMessage {
	t.Helper()
	block, err := btc.PackBlockMessage(btc.MainnetMagic, test.GenerateBlockHeader(), txs)
	require.NoError(t, err)
	return block
}

func TestOnTx_BroadcastsAndIndexes(t *testing.T) {
	protocol, node, peer, _ := newTestProtocol(t)

	txPayload := test.GenerateTx(1)
	require.NoError(t, protocol.OnTx(txPayload, "node"))

	sent := peer.sentMessages()
	require.Len(t, sent, 1)
	txMsg, ok := sent[0].(*bxmessage.Tx)
	require.True(t, ok)
	assert.Equal(t, types.TxContent(txPayload), txMsg.Content())
	assert.True(t, node.TxStore.HasTx(txMsg.Hash()))
}

func TestOnBlock_PropagatesOnce(t *testing.T) {
	protocol, node, peer, _ := newTestProtocol(t)

	block := packTestBlock(t, test.GenerateTx(1), test.GenerateTx(2))
	blockHash := block.BlockHash()

	require.NoError(t, protocol.OnBlock(block, "node"))
	require.Len(t, peer.sentMessages(), 1)
	assert.True(t, node.BlocksSeen.Exists(blockHash))

	// the encryption key is escrowed for the later key release step
	_, err := node.InProgressBlocks.GetEncryptionKey(blockHash)
	assert.NoError(t, err)

	// a duplicate is dropped with zero broadcast calls
	require.NoError(t, protocol.OnBlock(block, "node"))
	assert.Len(t, peer.sentMessages(), 1)
	assert.Equal(t, uint32(1), node.Stats.IgnoredSeenBlocks())
}

func TestOnCompactBlock_FullyResolved(t *testing.T) {
	protocol, node, peer, clock := newTestProtocol(t)

	coinbase := test.GenerateTx(1)
	tx1 := test.GenerateTx(2)
	var hash1 types.SHA256Hash
	copy(hash1[:], test.GenerateBytes(32))
	node.TxStore.Add(hash1, tx1, clock.Now())

	var headerArr [btc.BtcBlockHeaderLen]byte
	copy(headerArr[:], test.GenerateBlockHeader())
	key := services.NewSipKey(headerArr[:], btc.NewCompactBlockMessage(headerArr, 9, nil, nil).ShortNonceBuf())
	msg := btc.NewCompactBlockMessage(headerArr, 9,
		btc.ShortIDList{services.ComputeShortID(key, hash1)},
		[]btc.PrefilledTx{{Index: 0, Content: coinbase}})

	require.NoError(t, protocol.OnCompactBlock(msg, "node"))

	assert.Len(t, peer.sentMessages(), 1)
	assert.True(t, node.BlocksSeen.Exists(msg.BlockHash()))
	assert.False(t, node.BlockRecovery.AwaitingRecovery(msg.BlockHash()))
}

func TestOnCompactBlock_PartialThenRecovered(t *testing.T) {
	protocol, node, peer, _ := newTestProtocol(t)

	nodeConn := &fakeNodeConn{}
	node.OnNodeConnected(nodeConn)

	coinbase := test.GenerateTx(1)
	missingTx := test.GenerateTx(2)

	var headerArr [btc.BtcBlockHeaderLen]byte
	copy(headerArr[:], test.GenerateBlockHeader())
	msg := btc.NewCompactBlockMessage(headerArr, 9,
		btc.ShortIDList{{1, 2, 3, 4, 5, 6}},
		[]btc.PrefilledTx{{Index: 0, Content: coinbase}})

	require.NoError(t, protocol.OnCompactBlock(msg, "node"))
	assert.True(t, node.BlockRecovery.AwaitingRecovery(msg.BlockHash()))
	assert.Empty(t, peer.sentMessages())

	// a getblocktxn request goes out to the local node
	require.Eventually(t, func() bool { return len(nodeConn.sentBytes()) == 1 }, time.Second, 10*time.Millisecond)

	blockHash := msg.BlockHash()
	payload := append([]byte{}, blockHash[:]...)
	payload = append(payload, 0x01)
	payload = append(payload, missingTx...)
	blockTxs, err := btc.NewBlockTxsMessageFromBytes(payload)
	require.NoError(t, err)

	require.NoError(t, protocol.OnBlockTxs(blockTxs, "node"))

	assert.False(t, node.BlockRecovery.AwaitingRecovery(blockHash))
	assert.True(t, node.BlocksSeen.Exists(blockHash))
	assert.Len(t, peer.sentMessages(), 1)
}

func TestOnBlock_CancelsPendingRecovery(t *testing.T) {
	protocol, node, _, _ := newTestProtocol(t)

	coinbase := test.GenerateTx(1)
	tx1 := test.GenerateTx(2)

	header := test.GenerateBlockHeader()
	var headerArr [btc.BtcBlockHeaderLen]byte
	copy(headerArr[:], header)
	msg := btc.NewCompactBlockMessage(headerArr, 9,
		btc.ShortIDList{{1, 2, 3, 4, 5, 6}},
		[]btc.PrefilledTx{{Index: 0, Content: coinbase}})

	require.NoError(t, protocol.OnCompactBlock(msg, "node"))
	require.True(t, node.BlockRecovery.AwaitingRecovery(msg.BlockHash()))

	// the same block arrives in full before recovery completes
	block, err := btc.PackBlockMessage(btc.MainnetMagic, header, [][]byte{coinbase, tx1})
	require.NoError(t, err)
	require.NoError(t, protocol.OnBlock(block, "node"))

	assert.False(t, node.BlockRecovery.AwaitingRecovery(msg.BlockHash()))
}

func TestSendKey(t *testing.T) {
	protocol, _, peer, _ := newTestProtocol(t)

	block := packTestBlock(t, test.GenerateTx(1))
	blockHash := block.BlockHash()
	require.NoError(t, protocol.OnBlock(block, "node"))

	require.NoError(t, protocol.SendKey(blockHash))

	sent := peer.sentMessages()
	require.Len(t, sent, 2)
	keyMsg, ok := sent[1].(*bxmessage.Key)
	require.True(t, ok)
	assert.Equal(t, blockHash, keyMsg.BlockHash())
	assert.Len(t, keyMsg.Key(), services.BlockEncryptionKeyLen)

	// the key escrow is released after the send
	assert.Error(t, protocol.SendKey(blockHash))
}

func TestOnBdnBroadcast_ForwardsToNode(t *testing.T) {
	protocol, node, _, clock := newTestProtocol(t)

	// another gateway compressed this block against the same short ID index
	compressor := services.NewBlockProcessor(node.TxStore, clock, btc.MainnetMagic)
	block := packTestBlock(t, test.GenerateTx(1))
	broadcast, _, err := compressor.BlockToBroadcast(block, time.Second)
	require.NoError(t, err)

	require.NoError(t, protocol.OnBdnBroadcast(broadcast, "relay1"))

	select {
	case forwarded := <-node.Bridge.ReceiveBlockForNode():
		assert.Equal(t, block.Rawbytes(), forwarded.Rawbytes())
	default:
		t.Fatal("expected block queued for node delivery")
	}
	assert.True(t, node.BlocksSeen.Exists(block.BlockHash()))

	// a duplicate broadcast is dropped
	require.NoError(t, protocol.OnBdnBroadcast(broadcast, "relay1"))
	assert.Equal(t, uint32(1), node.Stats.IgnoredSeenBlocks())
}
