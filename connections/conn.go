package connections

import (
	"github.com/bloXroute-Labs/btcgateway/bxmessage"
	"github.com/bloXroute-Labs/btcgateway/types"
)

// Conn represents an established relay peer connection. Transport details
// live with the implementation; the gateway only needs identity and a send
// path.
type Conn interface {
	ID() string
	Endpoint() types.NodeEndpoint
	Send(msg bxmessage.Message) error
}

// NodeConn represents the connection to a blockchain node. Sends carry raw
// Bitcoin wire bytes and may be queued internally while disconnected.
type NodeConn interface {
	Endpoint() types.NodeEndpoint
	SendBytes(b []byte) error
}
