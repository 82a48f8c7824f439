package connections

import (
	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/blockchain"
	"github.com/bloXroute-Labs/btcgateway/bxmessage"
	log "github.com/bloXroute-Labs/btcgateway/logger"
	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/services"
	"github.com/bloXroute-Labs/btcgateway/types"
)

// BlockchainPeerProtocol is the capability set a transport adapter invokes
// for messages arriving from blockchain-side connections
type BlockchainPeerProtocol interface {
	OnTx(txPayload []byte, sourceID string) error
	OnBlock(block *btc.BlockMessage, sourceID string) error
	OnCompactBlock(msg *btc.CompactBlockMessage, sourceID string) error
	OnBlockTxs(msg *btc.BlockTxsMessage, sourceID string) error
	OnBdnBroadcast(broadcast *bxmessage.Broadcast, sourceID string) error
	OnProxyRequest(raw []byte) error
	OnProxyResponse(raw []byte) error
	SendKey(blockHash types.SHA256Hash) error
}

// BtcBlockchainProtocol drives the gateway's block and transaction dispatch
// pipeline for a Bitcoin-protocol node
type BtcBlockchainProtocol struct {
	node      *GatewayNode
	converter blockchain.Converter
	log       *log.Entry
}

// NewBtcBlockchainProtocol constructs the dispatch pipeline over the node's
// service registry
func NewBtcBlockchainProtocol(node *GatewayNode, converter blockchain.Converter) *BtcBlockchainProtocol {
	return &BtcBlockchainProtocol{
		node:      node,
		converter: converter,
		log:       log.WithFields(log.Fields{"component": "blockchainProtocol"}),
	}
}

// OnTx handles a transaction message from the local node: translate to
// overlay form, broadcast to all relay peers except the source, and index
// the contents in the shared transaction store
func (p *BtcBlockchainProtocol) OnTx(txPayload []byte, sourceID string) error {
	bdnTxs, err := p.converter.TxToBdnTxs(txPayload)
	if err != nil {
		return err
	}

	for _, bdnTx := range bdnTxs {
		p.log.Trace("broadcasting transaction to peers")
		p.node.Broadcast(bdnTx.Msg, sourceID)
		p.node.TxStore.Add(bdnTx.Hash, bdnTx.Content, p.node.clock.Now())
		p.node.Stats.LogNewTxFromNode()
	}
	return nil
}

// OnBlock handles a full block from the local node: dedup against recently
// seen blocks, compress, hand to the neutrality service for propagation,
// and cancel any outstanding recovery. The decryption key is released
// separately via SendKey.
func (p *BtcBlockchainProtocol) OnBlock(block *btc.BlockMessage, sourceID string) error {
	blockHash := block.BlockHash()

	if p.node.BlocksSeen.Exists(blockHash) {
		p.node.Stats.LogIgnoreSeenBlock()
		p.log.Debugf("have seen block %v before, ignoring", blockHash)
		return nil
	}

	broadcast, usedShortIDs, err := p.node.BlockProcessor.BlockToBroadcast(block, p.node.Config.MinTxAgeForCompression)
	if errors.Is(err, services.ErrAlreadyProcessed) {
		p.node.Stats.LogIgnoreSeenBlock()
		return nil
	}
	if err != nil {
		return err
	}
	p.log.Debugf("compressed block %v: %v -> %v bytes, %v short IDs",
		blockHash, len(block.Rawbytes()), len(broadcast.Block()), len(usedShortIDs))

	if err = p.node.Neutrality.PropagateBlockToNetwork(broadcast, sourceID, blockHash); err != nil {
		return err
	}

	p.node.BlockRecovery.Cancel(blockHash)
	p.node.BlocksSeen.Add(blockHash)
	p.node.Stats.LogNewBlockFromNode()
	return nil
}

// OnCompactBlock handles a compact block announcement from the local node.
// A fully resolved block enters the pipeline as if it were a full block;
// a partial reconstruction is registered for recovery.
func (p *BtcBlockchainProtocol) OnCompactBlock(msg *btc.CompactBlockMessage, sourceID string) error {
	blockHash := msg.BlockHash()

	if p.node.BlocksSeen.Exists(blockHash) {
		p.node.Stats.LogIgnoreSeenBlock()
		p.log.Debugf("have seen compact block %v before, ignoring", blockHash)
		return nil
	}

	result := services.DecompressCompactBlock(p.node.Config.NetworkMagic, msg, p.node.TxStore)
	if !result.Success {
		p.log.Debugf("compact block %v missing %v transactions, awaiting recovery",
			blockHash, len(result.MissingTxIndices))
		p.node.BlockRecovery.Add(msg, result)
		return nil
	}

	p.node.Stats.LogCompactBlockDecompressed()
	return p.OnBlock(result.BlockMessage, sourceID)
}

// OnBlockTxs handles recovered transactions delivered for a pending partial
// reconstruction. The first completion wins; anything else is dropped.
func (p *BtcBlockchainProtocol) OnBlockTxs(msg *btc.BlockTxsMessage, sourceID string) error {
	block, err := p.node.BlockRecovery.Recover(msg.BlockHash(), msg.Txs())
	switch {
	case errors.Is(err, services.ErrBlockNotAwaitingRecovery):
		p.log.Debugf("dropping recovered transactions for block %v: %v", msg.BlockHash(), err)
		return nil
	case errors.Is(err, services.ErrRecoveryMismatch):
		p.log.Infof("dropping recovery for block %v: %v", msg.BlockHash(), err)
		return nil
	case err != nil:
		return err
	}

	p.node.Stats.LogRecoveryCompleted()
	return p.OnBlock(block, sourceID)
}

// OnBdnBroadcast handles a compressed block arriving from the BDN: expand
// through the transaction store, dedup, and forward to the local node
func (p *BtcBlockchainProtocol) OnBdnBroadcast(broadcast *bxmessage.Broadcast, sourceID string) error {
	blockHash := broadcast.Hash()

	if p.node.BlocksSeen.Exists(blockHash) {
		p.node.Stats.LogIgnoreSeenBlock()
		return nil
	}

	block, missingShortIDs, err := p.node.BlockProcessor.BlockFromBroadcast(broadcast)
	switch {
	case errors.Is(err, services.ErrAlreadyProcessed):
		p.node.Stats.LogIgnoreSeenBlock()
		return nil
	case errors.Is(err, services.ErrMissingShortIDs):
		p.log.Debugf("block %v from BDN is missing %v short IDs, dropping", blockHash, len(missingShortIDs))
		return nil
	case err != nil:
		return err
	}

	p.node.BlockRecovery.Cancel(blockHash)
	p.node.BlocksSeen.Add(blockHash)
	p.node.Stats.LogNewBlockFromBdn()

	if err = p.node.Bridge.SendBlockToNode(block); err != nil {
		// queue is full; the node-facing writer will catch up on its own
		p.log.Debugf("could not enqueue block %v for node delivery: %v", blockHash, err)
	}
	return nil
}

// OnProxyRequest handles a chainstate request message by passing it through
// to the remote node
func (p *BtcBlockchainProtocol) OnProxyRequest(raw []byte) error {
	p.node.SendBytesToRemoteNode(raw)
	return nil
}

// OnProxyResponse handles a chainstate response message by passing it
// through to the local node
func (p *BtcBlockchainProtocol) OnProxyResponse(raw []byte) error {
	p.node.SendBytesToNode(raw)
	return nil
}

// SendKey broadcasts the decryption key for a previously propagated block
func (p *BtcBlockchainProtocol) SendKey(blockHash types.SHA256Hash) error {
	key, err := p.node.InProgressBlocks.GetEncryptionKey(blockHash)
	if err != nil {
		return err
	}

	keyMessage := bxmessage.NewKey(blockHash, key)
	peers := p.node.Broadcast(keyMessage, "")
	p.log.Debugf("sent key for block %v to %v peers", blockHash, peers)

	p.node.InProgressBlocks.Remove(blockHash)
	return nil
}
