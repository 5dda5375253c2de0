package database

// ChainWork sums the leading zero hex digits of every block hash past the
// genesis block. With a fixed network difficulty the chain length usually
// decides a fork, so the accumulated zeros only break length ties.
func ChainWork(blocks []Block) uint64 {
	if len(blocks) < 2 {
		return 0
	}

	var work uint64
	for _, block := range blocks[1:] {
		work += leadingZeros(block.Hash())
	}

	return work
}

// BetterChain reports whether the candidate strictly beats our current
// chain under the fork choice rule: longer wins, equal lengths compare
// accumulated work, equal work falls to the lexicographically smaller tip
// hash. Our own chain is never better than itself, so a network of
// agreeing nodes stays put.
func (db *Database) BetterChain(candidate []Block) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return betterChain(db.chain, candidate)
}

// ReplaceChain adopts the candidate chain after it passes full validation
// from genesis and the fork choice rule. The storage is rewritten to match.
// The returned transactions are the user transactions the old chain had
// confirmed that the candidate abandons; the caller decides their fate.
// Reward transactions of abandoned blocks die with their block.
func (db *Database) ReplaceChain(candidate []Block) ([]SignedTx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if !betterChain(db.chain, candidate) {
		return nil, ErrChainNotBetter
	}

	if err := ValidateChain(db.genesis, candidate, db.evHandler); err != nil {
		return nil, err
	}

	// Capture the user transactions the candidate abandons before the
	// chain swaps out from under them.
	adopted := make(map[string]struct{})
	for _, block := range candidate {
		for _, tx := range block.Trans {
			adopted[tx.ID()] = struct{}{}
		}
	}

	var orphaned []SignedTx
	for _, block := range db.chain {
		for _, tx := range block.Trans {
			if tx.IsCoinbase() {
				continue
			}
			if _, exists := adopted[tx.ID()]; !exists {
				orphaned = append(orphaned, tx)
			}
		}
	}

	// Rewrite the storage to hold the adopted chain.
	if err := db.storage.Reset(); err != nil {
		return nil, err
	}
	for _, block := range candidate {
		if err := db.storage.Write(NewBlockData(block)); err != nil {
			return nil, err
		}
	}

	db.chain = append([]Block{}, candidate...)
	db.indexChain()

	return orphaned, nil
}

// betterChain applies the (length, work, tip hash) ordering.
func betterChain(current []Block, candidate []Block) bool {
	if len(candidate) != len(current) {
		return len(candidate) > len(current)
	}
	if len(candidate) == 0 {
		return false
	}

	if cw, ow := ChainWork(candidate), ChainWork(current); cw != ow {
		return cw > ow
	}

	return candidate[len(candidate)-1].Hash() < current[len(current)-1].Hash()
}
