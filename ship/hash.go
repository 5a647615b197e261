package ship

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/chinifabio/renoir-go/row"
)

// HashKey hashes a row's key cells into the uint64 used by GroupByHash,
// keeping the partitioning stable for a given key across replicas and
// across re-execution.
func HashKey(key []row.Cell) uint64 {
	var buf [9]byte
	h := xxhash.New()
	for _, c := range key {
		buf[0] = byte(c.Kind())
		binary.LittleEndian.PutUint64(buf[1:], c.HashBits())
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
