package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/agrimkaushik/powledger/foundation/blockchain/genesis"
	"github.com/agrimkaushik/powledger/foundation/blockchain/merkle"
	"github.com/agrimkaushik/powledger/foundation/blockchain/signature"
)

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64    `json:"number"`          // Block number in the chain, zero for the genesis block.
	PrevBlockHash string    `json:"prev_block_hash"` // Hash of the previous block in the chain.
	TimeStamp     uint64    `json:"timestamp"`       // Time the block was mined.
	BeneficiaryID AccountID `json:"beneficiary"`     // The account receiving the mining reward and fees.
	Difficulty    uint16    `json:"difficulty"`      // Number of leading zero hex digits needed to solve the hash.
	TransRoot     string    `json:"trans_root"`      // Merkle root hash over the transactions in this block.
	Nonce         uint64    `json:"nonce"`           // Value identified to solve the hash solution.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  []SignedTx
}

// GenesisBlock constructs the first block of every chain directly from the
// genesis document. Every node derives the exact same block, so any two
// chains grown from the same genesis file share their root.
func GenesisBlock(gen genesis.Genesis) Block {
	return Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TimeStamp:     uint64(gen.Date.UTC().Unix()),
			Difficulty:    gen.Difficulty,
			TransRoot:     TransRoot(nil),
			Nonce:         0,
		},
	}
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, beneficiaryID AccountID, difficulty uint16, prevBlock Block, trans []SignedTx, evHandler func(v string, args ...any)) (Block, error) {

	// Construct the block to be mined.
	nb := Block{
		Header: BlockHeader{
			Number:        prevBlock.Header.Number + 1,
			PrevBlockHash: prevBlock.Hash(),
			TimeStamp:     uint64(time.Now().UTC().Unix()),
			BeneficiaryID: beneficiaryID,
			Difficulty:    difficulty,
			TransRoot:     TransRoot(trans),
			Nonce:         0, // Will be identified by the POW algorithm.
		},
		Trans: trans,
	}

	// Perform the proof of work mining operation.
	if err := nb.performPOW(ctx, evHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started")
	defer ev("database: PerformPOW: MINING: completed")

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Trans {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found by us or another node.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return err
	}
	b.Header.Nonce = nBig.Uint64()

	// Loop until we or another node finds a solution for the next block.
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we get cancelled by an accepted peer block or a shutdown.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// Hash returns the unique hash for the block.
func (b Block) Hash() string {

	// CORE NOTE: Hashing the block header and not the whole block so the
	// chain can be cryptographically checked by only needing block headers
	// and not full blocks with the transaction data. The header commits to
	// the transactions through the TransRoot field.

	return signature.Hash(b.Header)
}

// =============================================================================

// TransRoot computes the merkle root committing to the ordered set of
// transactions. Order matters: the reward transaction leads and the rest
// follow in their selected order.
func TransRoot(trans []SignedTx) string {
	leaves := make([][]byte, len(trans))
	for i, tx := range trans {
		leaves[i] = []byte(tx.ID())
	}

	return merkle.RootHex(leaves)
}

// isHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading zero hex digits.
func isHashSolved(difficulty uint16, hash string) bool {
	const match = "0x00000000000000000"

	if len(hash) != 66 {
		return false
	}

	return hash[:2+int(difficulty)] == match[:2+int(difficulty)]
}

// leadingZeros counts the leading zero hex digits of a block hash. The sum
// of these over a chain is the work measure used by the fork choice rule.
func leadingZeros(hash string) uint64 {
	var n uint64
	for i := 2; i < len(hash); i++ {
		if hash[i] != '0' {
			break
		}
		n++
	}

	return n
}

// =============================================================================

// BlockData represents what can be serialized to disk and over the network.
type BlockData struct {
	Hash   string      `json:"hash"`
	Header BlockHeader `json:"header"`
	Trans  []SignedTx  `json:"trans"`
}

// NewBlockData constructs block data from a block.
func NewBlockData(block Block) BlockData {
	blockData := BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Trans,
	}

	return blockData
}

// ToBlock converts block data into a block. The hash carried by the block
// data must match the hash recomputed from the header or the data was
// tampered with somewhere between the source and us.
func ToBlock(blockData BlockData) (Block, error) {
	block := Block{
		Header: blockData.Header,
		Trans:  blockData.Trans,
	}

	if hash := block.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("block hash mismatch, got %s, exp %s", blockData.Hash, hash)
	}

	return block, nil
}

// ToBlocks converts a full set of block data into blocks, failing on the
// first entry that doesn't hold together.
func ToBlocks(blocksData []BlockData) ([]Block, error) {
	if len(blocksData) == 0 {
		return nil, errors.New("no blocks to convert")
	}

	blocks := make([]Block, len(blocksData))
	for i, blockData := range blocksData {
		block, err := ToBlock(blockData)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", blockData.Header.Number, err)
		}
		blocks[i] = block
	}

	return blocks, nil
}
