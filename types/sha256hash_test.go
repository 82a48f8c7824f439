package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSHA256Hash_DisplayOrdering(t *testing.T) {
	var hash SHA256Hash
	for i := range hash {
		hash[i] = byte(i)
	}

	// display order is the byte reversal of natural order
	assert.Equal(t, "000102", hash.String()[:6])
	assert.Equal(t, "1f1e1d", hash.DisplayString()[:6])
	assert.Equal(t, hash, hash.Reversed().Reversed())

	parsed, err := NewSHA256HashFromDisplayHex(hash.DisplayString())
	require.NoError(t, err)
	assert.Equal(t, hash, parsed)
}

func TestNewSHA256Hash_BadLength(t *testing.T) {
	_, err := NewSHA256Hash(make([]byte, 31))
	assert.Error(t, err)

	_, err = NewSHA256HashFromDisplayHex("abcd")
	assert.Error(t, err)
}
