package types

import (
	"encoding/hex"
	"fmt"
)

// SHA256HashLen is the byte length of SHA256 hashes
const SHA256HashLen = 32

// SHA256Hash represents a 32-byte hash in natural (wire) byte order
type SHA256Hash [SHA256HashLen]byte

// SHA256HashList represents a list of SHA256 hashes
type SHA256HashList []SHA256Hash

// EmptyHash is a the empty hash, useful for comparisons
var EmptyHash = SHA256Hash{}

// NewSHA256Hash converts a raw byte slice in natural order to a SHA256Hash
func NewSHA256Hash(b []byte) (SHA256Hash, error) {
	var hash SHA256Hash
	if len(b) != SHA256HashLen {
		return hash, fmt.Errorf("could not convert %v bytes to SHA256Hash, expected %v", len(b), SHA256HashLen)
	}
	copy(hash[:], b)
	return hash, nil
}

// NewSHA256HashFromDisplayHex parses a display-order hex string (RPC
// convention) and returns the hash in natural byte order. Bitcoin displays
// hashes byte reversed, so the decoded bytes are flipped once here.
func NewSHA256HashFromDisplayHex(s string) (SHA256Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return EmptyHash, err
	}
	hash, err := NewSHA256Hash(b)
	if err != nil {
		return EmptyHash, err
	}
	return hash.Reversed(), nil
}

// Reversed returns a copy of the hash with its byte order flipped
func (s SHA256Hash) Reversed() SHA256Hash {
	var reversed SHA256Hash
	for i, b := range s {
		reversed[SHA256HashLen-1-i] = b
	}
	return reversed
}

// Bytes returns the underlying bytes in natural order
func (s SHA256Hash) Bytes() []byte {
	return s[:]
}

// String returns an encoded hex string of the hash in natural order
func (s SHA256Hash) String() string {
	return hex.EncodeToString(s[:])
}

// DisplayString returns the hash in display-order hex (RPC convention)
func (s SHA256Hash) DisplayString() string {
	reversed := s.Reversed()
	return hex.EncodeToString(reversed[:])
}

// Empty indicates if the hash is the zero value
func (s SHA256Hash) Empty() bool {
	return s == EmptyHash
}
