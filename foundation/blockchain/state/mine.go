package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: build block skeleton")

	// Snapshot the tip, pick the best transactions, and build the reward
	// transaction, all as one step. The reward occupies the first of the
	// TransPerBlock slots.
	s.mu.Lock()
	if s.mempool.Count() == 0 {
		s.mu.Unlock()
		return database.Block{}, ErrNoTransactions
	}

	latestBlock := s.db.LatestBlock()
	trans := s.mempool.PickBest(int(s.genesis.TransPerBlock) - 1)

	var fees uint64
	for _, tx := range trans {
		fees += tx.Fee
	}

	coinbase := database.NewCoinbaseTx(s.genesis.ChainID, s.beneficiaryID, s.genesis.MiningReward, fees, latestBlock.Header.Number+1)
	trans = append([]database.SignedTx{coinbase}, trans...)
	s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: perform POW")

	// Attempt to solve the POW puzzle. This can be cancelled and the lock
	// is not held while hashing.
	block, err := database.POW(ctx, s.beneficiaryID, s.genesis.Difficulty, latestBlock, trans, s.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	// The tip may have moved while we were hashing. The accept step
	// revalidates the block as the next link and rejects our work if we
	// lost the race.
	if err := s.acceptBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// acceptBlock validates the block as the next link of the chain and updates
// the chain and the mempool as one step.
func (s *State) acceptBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.AppendBlock(block); err != nil {
		return err
	}

	// Anything this block confirmed no longer belongs in the mempool.
	for _, tx := range block.Trans {
		s.mempool.Delete(tx)
	}

	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Trans)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}
