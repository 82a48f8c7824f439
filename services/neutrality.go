package services

import (
	"github.com/bloXroute-Labs/btcgateway/bxmessage"
	log "github.com/bloXroute-Labs/btcgateway/logger"
	"github.com/bloXroute-Labs/btcgateway/types"
)

// Broadcaster fans a BDN message out to all relay peers, excluding the
// source connection. Returns the number of peers the message was sent to.
type Broadcaster interface {
	Broadcast(msg bxmessage.Message, excludeSourceID string) int
}

// NeutralityService handles encryption of blocks for propagation and their
// onward routing through the BDN. Key release is a separate, later step.
type NeutralityService interface {
	PropagateBlockToNetwork(broadcast *bxmessage.Broadcast, sourceID string, hash types.SHA256Hash) error
}

// BxNeutralityService propagates blocks to relay peers and escrows the
// per-block encryption key until the key release step. The encryption
// itself is performed by the relay tier.
type BxNeutralityService struct {
	broadcaster      Broadcaster
	inProgressBlocks *InProgressBlocks
}

// NewBxNeutralityService creates a neutrality service over the broadcaster
func NewBxNeutralityService(broadcaster Broadcaster, inProgressBlocks *InProgressBlocks) *BxNeutralityService {
	return &BxNeutralityService{
		broadcaster:      broadcaster,
		inProgressBlocks: inProgressBlocks,
	}
}

// PropagateBlockToNetwork generates the block's encryption key and fans the
// broadcast out to all relay peers except the source
func (n *BxNeutralityService) PropagateBlockToNetwork(broadcast *bxmessage.Broadcast, sourceID string, hash types.SHA256Hash) error {
	if _, err := n.inProgressBlocks.StoreKey(hash); err != nil {
		return err
	}

	peers := n.broadcaster.Broadcast(broadcast, sourceID)
	log.Debugf("propagated block %v to %v peers", hash, peers)
	return nil
}
