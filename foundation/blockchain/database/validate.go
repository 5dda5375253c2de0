package database

import (
	"fmt"

	"github.com/agrimkaushik/powledger/foundation/blockchain/genesis"
)

// ValidateChain checks an entire chain from its genesis block forward. The
// candidate must grow from the same genesis block we do, every link must
// hold, and every block must pass the same checks a freshly mined block
// does. Nothing about the chain is trusted, whoever produced it. A nil
// event handler is allowed.
func ValidateChain(gen genesis.Genesis, blocks []Block, evHandler func(v string, args ...any)) error {
	evHandler = safeEvHandler(evHandler)

	if len(blocks) == 0 {
		return fmt.Errorf("%w: empty chain", ErrChainInvalid)
	}

	genesisBlock := GenesisBlock(gen)
	if blocks[0].Hash() != genesisBlock.Hash() {
		return fmt.Errorf("%w: genesis block does not match ours", ErrChainInvalid)
	}

	sheet := newBalanceSheet(gen)
	confirmed := make(map[string]uint64)

	prev := blocks[0]
	for _, block := range blocks[1:] {
		if err := validateNextBlock(gen, prev, block, sheet, confirmed, evHandler); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrChainInvalid, block.Header.Number, err)
		}

		for _, tx := range block.Trans {
			confirmed[tx.ID()] = block.Header.Number
		}
		prev = block
	}

	return nil
}

// safeEvHandler turns a nil event handler into a no-op so the validation
// paths can fire events unconditionally.
func safeEvHandler(evHandler func(v string, args ...any)) func(v string, args ...any) {
	if evHandler == nil {
		return func(v string, args ...any) {}
	}
	return evHandler
}

// validateNextBlock checks that block is a legal extension of prev given
// the projected balances and the set of already confirmed transaction ids.
// The checks run in a fixed order so the cheap failures short-circuit the
// expensive work. When validation succeeds the sheet has advanced past the
// block.
func validateNextBlock(gen genesis.Genesis, prev Block, block Block, sheet *balanceSheet, confirmed map[string]uint64, evHandler func(v string, args ...any)) error {
	evHandler("database: validateNextBlock: blk[%d]: check: block link", block.Header.Number)

	nextNumber := prev.Header.Number + 1
	if block.Header.Number != nextNumber {
		return fmt.Errorf("%w: this block is not the next number, got %d, exp %d", ErrInvalidBlockLink, block.Header.Number, nextNumber)
	}

	if block.Header.PrevBlockHash != prev.Hash() {
		return fmt.Errorf("%w: prev block hash doesn't match our known prev, got %s, exp %s", ErrInvalidBlockLink, block.Header.PrevBlockHash, prev.Hash())
	}

	evHandler("database: validateNextBlock: blk[%d]: check: hash solved at difficulty", block.Header.Number)

	// The network difficulty is fixed, so a block claiming any other
	// difficulty was mined for some other set of rules.
	if block.Header.Difficulty != gen.Difficulty {
		return fmt.Errorf("%w: block difficulty %d, network difficulty %d", ErrDifficultyNotMet, block.Header.Difficulty, gen.Difficulty)
	}

	hash := block.Hash()
	if !isHashSolved(block.Header.Difficulty, hash) {
		return fmt.Errorf("%w: %s", ErrDifficultyNotMet, hash)
	}

	if root := TransRoot(block.Trans); root != block.Header.TransRoot {
		return fmt.Errorf("trans root does not match transactions, got %s, exp %s", block.Header.TransRoot, root)
	}

	evHandler("database: validateNextBlock: blk[%d]: check: block size", block.Header.Number)

	if len(block.Trans) > int(gen.TransPerBlock) {
		return fmt.Errorf("%w: got %d, limit %d", ErrBlockSizeExceeded, len(block.Trans), gen.TransPerBlock)
	}

	evHandler("database: validateNextBlock: blk[%d]: check: reward transaction", block.Header.Number)

	if len(block.Trans) == 0 {
		return fmt.Errorf("%w: block carries no reward transaction", ErrMalformedCoinbase)
	}

	coinbase := block.Trans[0]
	switch {
	case !coinbase.IsCoinbase():
		return fmt.Errorf("%w: first transaction is not the reward", ErrMalformedCoinbase)
	case coinbase.ToID != block.Header.BeneficiaryID:
		return fmt.Errorf("%w: reward pays %s, beneficiary is %s", ErrMalformedCoinbase, coinbase.ToID, block.Header.BeneficiaryID)
	case coinbase.Fee != 0:
		return fmt.Errorf("%w: reward carries a fee", ErrMalformedCoinbase)
	}

	var fees uint64
	for _, tx := range block.Trans[1:] {
		if tx.IsCoinbase() {
			return fmt.Errorf("%w: more than one reward transaction", ErrMalformedCoinbase)
		}
		fees += tx.Fee
	}

	if coinbase.Amount != gen.MiningReward+fees {
		return fmt.Errorf("%w: reward amount got %d, exp %d", ErrMalformedCoinbase, coinbase.Amount, gen.MiningReward+fees)
	}

	evHandler("database: validateNextBlock: blk[%d]: check: transaction signatures", block.Header.Number)

	for _, tx := range block.Trans[1:] {
		if err := tx.Validate(gen.ChainID); err != nil {
			return fmt.Errorf("%w: tx[%s]: %v", ErrInvalidSignature, tx, err)
		}
	}

	evHandler("database: validateNextBlock: blk[%d]: check: balance projection", block.Header.Number)

	if err := sheet.applyBlock(block); err != nil {
		return err
	}

	evHandler("database: validateNextBlock: blk[%d]: check: duplicate transactions", block.Header.Number)

	seen := make(map[string]struct{}, len(block.Trans))
	for _, tx := range block.Trans {
		id := tx.ID()
		if _, exists := seen[id]; exists {
			return fmt.Errorf("%w: tx[%s] appears twice in the block", ErrDuplicateTx, tx)
		}
		seen[id] = struct{}{}

		if num, exists := confirmed[id]; exists {
			return fmt.Errorf("%w: tx[%s] already confirmed in block %d", ErrDuplicateTx, tx, num)
		}
	}

	return nil
}
