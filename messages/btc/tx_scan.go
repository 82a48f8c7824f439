package btc

import (
	"fmt"
)

const (
	txOutpointLen = 36
	txSequenceLen = 4
	txValueLen    = 8
	txVersionLen  = 4
	txLocktimeLen = 4
)

// TxSize scans a serialized Bitcoin transaction starting at offset and
// returns its wire length, without retaining any parsed structure. Both
// legacy and segwit (BIP-144 marker/flag) serializations are handled.
func TxSize(buf []byte, offset int) (int, error) {
	off := offset

	off, err := advance(buf, off, txVersionLen)
	if err != nil {
		return 0, err
	}

	segwit := false
	if len(buf) >= off+2 && buf[off] == 0x00 && buf[off+1] == 0x01 {
		segwit = true
		off += 2
	}

	inputCount, n, err := ReadVarint(buf, off)
	if err != nil {
		return 0, err
	}
	off += n

	for i := uint64(0); i < inputCount; i++ {
		if off, err = advance(buf, off, txOutpointLen); err != nil {
			return 0, err
		}
		if off, err = skipVarBytes(buf, off); err != nil {
			return 0, err
		}
		if off, err = advance(buf, off, txSequenceLen); err != nil {
			return 0, err
		}
	}

	outputCount, n, err := ReadVarint(buf, off)
	if err != nil {
		return 0, err
	}
	off += n

	for i := uint64(0); i < outputCount; i++ {
		if off, err = advance(buf, off, txValueLen); err != nil {
			return 0, err
		}
		if off, err = skipVarBytes(buf, off); err != nil {
			return 0, err
		}
	}

	if segwit {
		for i := uint64(0); i < inputCount; i++ {
			itemCount, n, err := ReadVarint(buf, off)
			if err != nil {
				return 0, err
			}
			off += n
			for j := uint64(0); j < itemCount; j++ {
				if off, err = skipVarBytes(buf, off); err != nil {
					return 0, err
				}
			}
		}
	}

	if off, err = advance(buf, off, txLocktimeLen); err != nil {
		return 0, err
	}

	return off - offset, nil
}

func advance(buf []byte, off, n int) (int, error) {
	if len(buf) < off+n {
		return 0, fmt.Errorf("could not scan transaction: buffer truncated at offset %v", off)
	}
	return off + n, nil
}

func skipVarBytes(buf []byte, off int) (int, error) {
	length, n, err := ReadVarint(buf, off)
	if err != nil {
		return 0, err
	}
	off += n
	if uint64(len(buf)) < uint64(off)+length {
		return 0, fmt.Errorf("could not scan transaction: buffer truncated at offset %v", off)
	}
	return off + int(length), nil
}
