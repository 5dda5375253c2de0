// Package merkle computes the root hash committing a block to its ordered
// set of transactions.
package merkle

import (
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Root computes the merkle root over the ordered set of leaves. Each level
// pairs adjacent nodes and hashes their concatenation; an odd node is
// promoted to the next level unchanged. An empty set yields the hash of no
// data, which keeps the root of an empty block deterministic.
func Root(leaves [][]byte) [32]byte {
	if len(leaves) == 0 {
		return sha256.Sum256(nil)
	}

	level := make([][32]byte, len(leaves))
	for i, leaf := range leaves {
		level[i] = sha256.Sum256(leaf)
	}

	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)

		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}

			data := make([]byte, 0, 64)
			data = append(data, level[i][:]...)
			data = append(data, level[i+1][:]...)
			next = append(next, sha256.Sum256(data))
		}

		level = next
	}

	return level[0]
}

// RootHex computes the merkle root over the ordered set of leaves and
// returns it in the ledger's 0x hex form.
func RootHex(leaves [][]byte) string {
	root := Root(leaves)
	return hexutil.Encode(root[:])
}
