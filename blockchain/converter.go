package blockchain

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/bloXroute-Labs/btcgateway/bxmessage"
	"github.com/bloXroute-Labs/btcgateway/messages/btc"
	"github.com/bloXroute-Labs/btcgateway/types"
)

// BdnTx is a node transaction translated to overlay form
type BdnTx struct {
	Msg     *bxmessage.Tx
	Hash    types.SHA256Hash
	Content types.TxContent
}

// Converter defines an interface for translating blockchain node messages
// into their BDN form. A single node message may carry zero or more
// transactions.
type Converter interface {
	TxToBdnTxs(txPayload []byte) ([]BdnTx, error)
}

// BtcConverter converts Bitcoin wire messages to BDN messages
type BtcConverter struct{}

// TxToBdnTxs translates a Bitcoin tx message payload to its BDN form. The
// payload of a tx message is a single serialized transaction.
func (c BtcConverter) TxToBdnTxs(txPayload []byte) ([]BdnTx, error) {
	size, err := btc.TxSize(txPayload, 0)
	if err != nil {
		return nil, err
	}
	if size != len(txPayload) {
		return nil, errors.Errorf("tx message has %v trailing bytes", len(txPayload)-size)
	}

	hash := types.SHA256Hash(chainhash.DoubleHashH(txPayload))
	content := types.TxContent(txPayload)
	return []BdnTx{
		{
			Msg:     bxmessage.NewTx(hash, content),
			Hash:    hash,
			Content: content,
		},
	}, nil
}
