package blockchain

import (
	"errors"

	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/types"
)

// Transactions is used to pass transactions between a node and the BDN
type Transactions struct {
	Transactions []*types.BxTransaction
	PeerEndpoint types.NodeEndpoint
}

// BlockFromNode is used to pass blocks from a node to the BDN
type BlockFromNode struct {
	Block        *btc.BlockMessage
	PeerEndpoint types.NodeEndpoint
}

// constants for channel buffer sizes
const (
	transactionBacklog = 2000
	blockBacklog       = 100
)

// Errors
var (
	ErrChannelFull = errors.New("channel full") // ErrChannelFull is a special error for identifying overflowing channel buffers
)

// Bridge represents the application interface over which messages are passed
// between the blockchain node facing half of the gateway and the BDN facing
// half. All sends are non-blocking: an overflowing channel surfaces as
// ErrChannelFull and the caller continues.
type Bridge interface {
	SendBlockToBDN(BlockFromNode) error
	ReceiveBlockFromNode() <-chan BlockFromNode

	SendBlockToNode(*btc.BlockMessage) error
	ReceiveBlockForNode() <-chan *btc.BlockMessage

	SendTransactionsFromBDN(Transactions) error
	ReceiveBDNTransactions() <-chan Transactions
}

// BxBridge is a channel based implementation of the Bridge interface
type BxBridge struct {
	transactionsFromBDN chan Transactions
	blocksFromNode      chan BlockFromNode
	blocksForNode       chan *btc.BlockMessage
}

// NewBxBridge returns a BxBridge instance
func NewBxBridge() Bridge {
	return &BxBridge{
		transactionsFromBDN: make(chan Transactions, transactionBacklog),
		blocksFromNode:      make(chan BlockFromNode, blockBacklog),
		blocksForNode:       make(chan *btc.BlockMessage, blockBacklog),
	}
}

// SendBlockToBDN sends a block from a node to the BDN
func (b *BxBridge) SendBlockToBDN(block BlockFromNode) error {
	select {
	case b.blocksFromNode <- block:
		return nil
	default:
		return ErrChannelFull
	}
}

// ReceiveBlockFromNode provides a channel that pushes blocks as they come in from nodes
func (b *BxBridge) ReceiveBlockFromNode() <-chan BlockFromNode {
	return b.blocksFromNode
}

// SendBlockToNode sends a reconstructed block from the BDN for distribution to the node
func (b *BxBridge) SendBlockToNode(block *btc.BlockMessage) error {
	select {
	case b.blocksForNode <- block:
		return nil
	default:
		return ErrChannelFull
	}
}

// ReceiveBlockForNode provides a channel that pushes blocks bound for the node
func (b *BxBridge) ReceiveBlockForNode() <-chan *btc.BlockMessage {
	return b.blocksForNode
}

// SendTransactionsFromBDN sends a set of transactions from the BDN for distribution to nodes
func (b *BxBridge) SendTransactionsFromBDN(txs Transactions) error {
	select {
	case b.transactionsFromBDN <- txs:
		return nil
	default:
		return ErrChannelFull
	}
}

// ReceiveBDNTransactions provides a channel that pushes transactions as they arrive from the BDN
func (b *BxBridge) ReceiveBDNTransactions() <-chan Transactions {
	return b.transactionsFromBDN
}
