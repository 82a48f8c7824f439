package test

import (
	"encoding/binary"
	"math/rand"
	"os"

	log "github.com/sirupsen/logrus"
)

// GenerateBytes return a random generated byte slice of the specified length
func GenerateBytes(count int) []byte {
	b := make([]byte, count)
	_, _ = rand.Read(b)
	return b
}

// GenerateBlockHeader returns a random 80-byte Bitcoin block header
func GenerateBlockHeader() []byte {
	return GenerateBytes(80)
}

// GenerateTx builds a minimal parseable legacy transaction seeded so that
// distinct seeds produce distinct bytes: one input with an empty script, one
// output with an empty script.
func GenerateTx(seed uint32) []byte {
	tx := make([]byte, 0, 60)

	version := make([]byte, 4)
	binary.LittleEndian.PutUint32(version, 1)
	tx = append(tx, version...)

	tx = append(tx, 0x01) // input count
	outpoint := make([]byte, 36)
	binary.LittleEndian.PutUint32(outpoint, seed)
	tx = append(tx, outpoint...)
	tx = append(tx, 0x00)                   // script length
	tx = append(tx, 0xFF, 0xFF, 0xFF, 0xFF) // sequence

	tx = append(tx, 0x01) // output count
	value := make([]byte, 8)
	binary.LittleEndian.PutUint64(value, uint64(seed)*1000)
	tx = append(tx, value...)
	tx = append(tx, 0x00) // script length

	tx = append(tx, 0x00, 0x00, 0x00, 0x00) // locktime
	return tx
}

// ConfigureLogger sets the log level for tests. Mainly useful while debugging tests.
func ConfigureLogger(level log.Level) {
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
}
