package connections

import (
	"context"
	"sync"

	"github.com/bloXroute-Labs/btcgateway/blockchain"
	"github.com/bloXroute-Labs/btcgateway/bxmessage"
	"github.com/bloXroute-Labs/btcgateway/config"
	log "github.com/bloXroute-Labs/btcgateway/logger"
	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/services"
	"github.com/bloXroute-Labs/btcgateway/types"
	"github.com/bloXroute-Labs/btcgateway/utils"
)

// GatewayNode owns the gateway's service registry and the peer set.
// Connections hold a reference to the node; services receive their
// collaborators explicitly at construction.
type GatewayNode struct {
	Config           *config.Bx
	Bridge           blockchain.Bridge
	TxStore          services.TxStore
	BlocksSeen       *services.SeenBlocks
	BlockProcessor   services.BlockProcessor
	BlockRecovery    *services.BlockRecoveryService
	Neutrality       services.NeutralityService
	InProgressBlocks *services.InProgressBlocks
	Stats            *services.BdnPerformanceStats

	clock utils.Clock

	peersMu sync.Mutex
	peers   map[string]Conn

	nodeConnMu     sync.Mutex
	nodeConn       NodeConn
	remoteNodeConn NodeConn
	nodeMsgQueue   [][]byte
}

// NewGatewayNode assembles the gateway's services around a configuration
func NewGatewayNode(cfg *config.Bx, bridge blockchain.Bridge, clock utils.Clock) *GatewayNode {
	node := &GatewayNode{
		Config:           cfg,
		Bridge:           bridge,
		TxStore:          services.NewBxTxStore(),
		BlocksSeen:       services.NewSeenBlocks("blocksSeen", cfg.SeenBlocksCapacity),
		InProgressBlocks: services.NewInProgressBlocks(),
		clock:            clock,
		peers:            make(map[string]Conn),
	}
	node.Stats = services.NewBdnPerformanceStats(clock)
	node.BlockProcessor = services.NewBlockProcessor(node.TxStore, clock, cfg.NetworkMagic)
	node.BlockRecovery = services.NewBlockRecoveryService(clock, cfg.NetworkMagic, cfg.RecoveryDeadline, node, node.Stats)
	node.Neutrality = services.NewBxNeutralityService(node, node.InProgressBlocks)
	return node
}

// AddPeer registers a relay peer connection
func (n *GatewayNode) AddPeer(conn Conn) {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	n.peers[conn.ID()] = conn
}

// RemovePeer drops a relay peer connection
func (n *GatewayNode) RemovePeer(id string) {
	n.peersMu.Lock()
	defer n.peersMu.Unlock()
	delete(n.peers, id)
}

// Broadcast fans a message out to all relay peers except the excluded
// source, best effort. Returns the number of peers sent to.
func (n *GatewayNode) Broadcast(msg bxmessage.Message, excludeSourceID string) int {
	n.peersMu.Lock()
	conns := make([]Conn, 0, len(n.peers))
	for id, conn := range n.peers {
		if id == excludeSourceID {
			continue
		}
		conns = append(conns, conn)
	}
	n.peersMu.Unlock()

	sent := 0
	for _, conn := range conns {
		if err := conn.Send(msg); err != nil {
			log.Debugf("could not send %v message to peer %v: %v", msg.MsgType(), conn.ID(), err)
			continue
		}
		sent++
	}
	return sent
}

// SendBytesToNode sends raw Bitcoin wire bytes to the local node, queueing
// them while no node connection is available
func (n *GatewayNode) SendBytesToNode(b []byte) {
	n.nodeConnMu.Lock()
	defer n.nodeConnMu.Unlock()

	if n.nodeConn == nil {
		log.Debug("no blockchain node connection, queueing message")
		n.nodeMsgQueue = append(n.nodeMsgQueue, b)
		return
	}
	if err := n.nodeConn.SendBytes(b); err != nil {
		log.Debugf("could not send to blockchain node, queueing message: %v", err)
		n.nodeMsgQueue = append(n.nodeMsgQueue, b)
	}
}

// SendBytesToRemoteNode sends raw bytes toward the remote blockchain node
// used for proxied chainstate requests
func (n *GatewayNode) SendBytesToRemoteNode(b []byte) {
	n.nodeConnMu.Lock()
	defer n.nodeConnMu.Unlock()

	if n.remoteNodeConn == nil {
		log.Debug("no remote node connection, dropping proxy message")
		return
	}
	if err := n.remoteNodeConn.SendBytes(b); err != nil {
		log.Debugf("could not send to remote node: %v", err)
	}
}

// OnNodeConnected installs the local node connection and flushes any queued
// messages in arrival order
func (n *GatewayNode) OnNodeConnected(conn NodeConn) {
	n.nodeConnMu.Lock()
	defer n.nodeConnMu.Unlock()

	n.nodeConn = conn
	for _, b := range n.nodeMsgQueue {
		if err := conn.SendBytes(b); err != nil {
			log.Debugf("could not flush queued message to blockchain node: %v", err)
		}
	}
	n.nodeMsgQueue = nil
}

// OnNodeDisconnected clears the local node connection; subsequent sends queue
func (n *GatewayNode) OnNodeDisconnected() {
	n.nodeConnMu.Lock()
	defer n.nodeConnMu.Unlock()
	n.nodeConn = nil
}

// OnRemoteNodeConnected installs the remote node connection
func (n *GatewayNode) OnRemoteNodeConnected(conn NodeConn) {
	n.nodeConnMu.Lock()
	defer n.nodeConnMu.Unlock()
	n.remoteNodeConn = conn
}

// RequestBlockRecovery asks the local node for the transactions missing from
// a partial reconstruction via a getblocktxn message
func (n *GatewayNode) RequestBlockRecovery(hash types.SHA256Hash, _ btc.ShortIDList, missingIndices []int) error {
	request, err := btc.PackGetBlockTxsMessage(n.Config.NetworkMagic, hash, missingIndices)
	if err != nil {
		return err
	}
	n.SendBytesToNode(request)
	return nil
}

// HandleBridgeMessages drains the bridge channels: full blocks arriving from
// the node's transport adapter are dispatched into the protocol, blocks
// bound for the node are written out, and transactions arriving from the
// BDN are indexed into the shared store.
func (n *GatewayNode) HandleBridgeMessages(ctx context.Context, protocol BlockchainPeerProtocol) {
	for {
		select {
		case <-ctx.Done():
			return
		case blockFromNode := <-n.Bridge.ReceiveBlockFromNode():
			if err := protocol.OnBlock(blockFromNode.Block, blockFromNode.PeerEndpoint.String()); err != nil {
				log.Errorf("could not process block %v from node: %v", blockFromNode.Block.BlockHash(), err)
			}
		case block := <-n.Bridge.ReceiveBlockForNode():
			n.SendBytesToNode(block.Rawbytes())
		case txs := <-n.Bridge.ReceiveBDNTransactions():
			for _, tx := range txs.Transactions {
				n.TxStore.Add(tx.Hash(), tx.Content(), n.clock.Now())
				n.Stats.LogNewTxFromBdn()
			}
		}
	}
}
