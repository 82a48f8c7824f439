package types

import (
	"time"
)

// TxContent represents a byte array containing full transaction bytes
type TxContent []byte

// BxTransaction represents a single transaction tracked by the gateway
type BxTransaction struct {
	hash    SHA256Hash
	content TxContent
	shortID ShortID
	addTime time.Time
}

// NewBxTransaction creates a new transaction with the provided content
func NewBxTransaction(hash SHA256Hash, content TxContent, timestamp time.Time) *BxTransaction {
	return &BxTransaction{
		hash:    hash,
		content: content,
		addTime: timestamp,
	}
}

// Hash returns the transaction hash in natural byte order
func (bt *BxTransaction) Hash() SHA256Hash {
	return bt.hash
}

// Content returns the raw transaction bytes in wire format
func (bt *BxTransaction) Content() TxContent {
	return bt.content
}

// ShortID returns the BDN short ID assigned to this transaction, if any
func (bt *BxTransaction) ShortID() ShortID {
	return bt.shortID
}

// AddTime returns the time the transaction was added to the store
func (bt *BxTransaction) AddTime() time.Time {
	return bt.addTime
}

// SetShortID records the BDN assigned short ID
func (bt *BxTransaction) SetShortID(shortID ShortID) {
	bt.shortID = shortID
}

// SetContent overwrites the transaction contents. Concurrent readers may
// observe either version.
func (bt *BxTransaction) SetContent(content TxContent) {
	bt.content = content
}
