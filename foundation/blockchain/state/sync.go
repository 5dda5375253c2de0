package state

import (
	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
)

// ProcessProposedBlock takes a block received over gossip and, when it is
// the next link of the chain, validates and appends it. A block seen inside
// the dedup window is dropped. A block that does not extend the tip is left
// to the periodic chain sync, which fetches whole chains and runs the fork
// choice rule.
func (s *State) ProcessProposedBlock(block database.Block) error {
	if s.seen.Seen(block.Hash()) {
		return nil
	}

	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Trans))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash())

	latestBlock := s.db.LatestBlock()
	if block.Header.Number != latestBlock.Header.Number+1 || block.Header.PrevBlockHash != latestBlock.Hash() {
		s.evHandler("state: ProcessProposedBlock: blk[%d] does not extend tip[%d]: deferred to chain sync", block.Header.Number, latestBlock.Header.Number)
		return nil
	}

	// If the runMiningOperation function is being executed it needs to stop
	// immediately. That G will not return from the function until done is
	// called. That allows this function to complete its state changes before
	// a new mining operation takes place.
	done := s.Worker.SignalCancelMining()
	defer func() {
		s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
		done()
	}()

	if err := s.acceptBlock(block); err != nil {
		return err
	}

	// Forward once. Peers that saw the block already drop it on receipt.
	s.NetSendBlockToPeers(block)

	// More transactions may be waiting.
	s.Worker.SignalStartMining()

	return nil
}

// ProcessRemoteChain runs the fork choice rule against a candidate chain
// fetched from a peer. The candidate only replaces the local chain when it
// is fully valid from our own genesis and strictly better.
func (s *State) ProcessRemoteChain(blocks []database.Block) error {
	s.evHandler("state: ProcessRemoteChain: started: blocks[%d]", len(blocks))
	defer s.evHandler("state: ProcessRemoteChain: completed")

	// A losing candidate never interrupts the miner.
	if !s.db.BetterChain(blocks) {
		return database.ErrChainNotBetter
	}

	done := s.Worker.SignalCancelMining()
	defer func() {
		s.evHandler("state: ProcessRemoteChain: signal runMiningOperation to terminate")
		done()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	orphaned, err := s.db.ReplaceChain(blocks)
	if err != nil {
		return err
	}

	// Transactions confirmed only on the abandoned branch compete again
	// under the standard admission rules. Reward transactions of abandoned
	// blocks stay gone.
	var reinserted int
	for _, tx := range orphaned {
		if s.mempool.ReinsertIfEligible(tx, s.db) {
			reinserted++
		}
	}

	// Pending transactions the adopted chain confirmed are finished.
	for _, tx := range s.mempool.Copy() {
		if s.db.HasTransaction(tx.ID()) {
			s.mempool.Delete(tx)
		}
	}

	s.evHandler("state: ProcessRemoteChain: chain replaced: height[%d]: orphaned[%d]: reinserted[%d]", s.db.LatestBlock().Header.Number, len(orphaned), reinserted)

	return nil
}
