// Package database handles all the lower level support for maintaining the
// chain of blocks in memory and on storage, projecting account balances,
// and deciding between competing chains.
package database

import (
	"fmt"
	"sort"
	"sync"

	"github.com/agrimkaushik/powledger/foundation/blockchain/genesis"
)

// Database manages the chain of blocks, the storage backing it, and the
// balance projections derived from it.
type Database struct {
	mu sync.RWMutex

	genesis   genesis.Genesis
	chain     []Block
	txLookup  map[string]uint64 // Transaction id to the block number confirming it.
	storage   Storage
	evHandler func(v string, args ...any)
}

// New constructs a new database, reading any persisted chain back through
// the storage iterator. A fresh store is seeded with the genesis block. The
// stored chain passes the same validation a peer chain would; a node never
// trusts its own disk more than it trusts the network. A nil event handler
// is allowed.
func New(gen genesis.Genesis, storage Storage, evHandler func(v string, args ...any)) (*Database, error) {
	db := Database{
		genesis:   gen,
		txLookup:  make(map[string]uint64),
		storage:   storage,
		evHandler: safeEvHandler(evHandler),
	}

	var blocks []Block
	iter := storage.ForEach()
	for blockData, err := iter.Next(); !iter.Done(); blockData, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		block, err := ToBlock(blockData)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	if len(blocks) == 0 {
		genesisBlock := GenesisBlock(gen)
		if err := storage.Write(NewBlockData(genesisBlock)); err != nil {
			return nil, err
		}
		blocks = []Block{genesisBlock}
	}

	if err := ValidateChain(gen, blocks, db.evHandler); err != nil {
		return nil, fmt.Errorf("stored chain: %w", err)
	}

	db.chain = blocks
	db.indexChain()

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.storage.Close()
}

// Genesis returns a copy of the genesis information.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// ChainID returns the chain identifier transactions must be signed for.
func (db *Database) ChainID() uint16 {
	return db.genesis.ChainID
}

// LatestBlock returns the current block at the tip of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.chain[len(db.chain)-1]
}

// BlocksByNumber returns the blocks numbered from and to inclusive. A to
// value past the tip is clamped to the tip.
func (db *Database) BlocksByNumber(from uint64, to uint64) []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	latest := db.chain[len(db.chain)-1].Header.Number
	if to > latest {
		to = latest
	}
	if from > to {
		return nil
	}

	blocks := make([]Block, 0, to-from+1)
	for _, block := range db.chain[from : to+1] {
		blocks = append(blocks, block)
	}

	return blocks
}

// HasTransaction reports whether the transaction id is confirmed anywhere
// on the chain. This is the replay guard used by the mempool and by block
// validation.
func (db *Database) HasTransaction(id string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.txLookup[id]
	return exists
}

// BalanceOf projects the balance for an account by replaying every
// confirmed block from genesis. Accounts not named in the genesis balance
// sheet open with the configured initial balance.
func (db *Database) BalanceOf(accountID AccountID) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.projectSheet().balance(accountID)
}

// Balances projects the balance of every account named in the genesis
// balance sheet or touched by a confirmed transaction.
func (db *Database) Balances() map[AccountID]uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	sheet := db.projectSheet()

	balances := make(map[AccountID]uint64, len(sheet.accounts))
	for accountID, balance := range sheet.accounts {
		balances[accountID] = balance
	}

	return balances
}

// Accounts returns the projected balances as a sorted list for stable
// presentation.
func (db *Database) Accounts() []Account {
	balances := db.Balances()

	accounts := make([]Account, 0, len(balances))
	for accountID, balance := range balances {
		accounts = append(accounts, Account{AccountID: accountID, Balance: balance})
	}
	sort.Sort(byAccount(accounts))

	return accounts
}

// AppendBlock validates the block as the next link of the chain and, when
// it holds, persists it and extends the chain.
func (db *Database) AppendBlock(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	prev := db.chain[len(db.chain)-1]
	if err := validateNextBlock(db.genesis, prev, block, db.projectSheet(), db.txLookup, db.evHandler); err != nil {
		return err
	}

	if err := db.storage.Write(NewBlockData(block)); err != nil {
		return err
	}

	db.chain = append(db.chain, block)
	for _, tx := range block.Trans {
		db.txLookup[tx.ID()] = block.Header.Number
	}

	return nil
}

// =============================================================================

// projectSheet replays the whole chain into a fresh balance sheet. Callers
// must hold at least a read lock.
func (db *Database) projectSheet() *balanceSheet {
	sheet := newBalanceSheet(db.genesis)

	// Blocks already on the chain passed validation, so the replay can
	// never overdraw an account.
	for _, block := range db.chain {
		_ = sheet.applyBlock(block)
	}

	return sheet
}

// indexChain rebuilds the transaction id lookup from the chain. Callers
// must hold the write lock.
func (db *Database) indexChain() {
	db.txLookup = make(map[string]uint64)
	for _, block := range db.chain {
		for _, tx := range block.Trans {
			db.txLookup[tx.ID()] = block.Header.Number
		}
	}
}

// =============================================================================

// balanceSheet projects account balances while blocks replay in order.
// Accounts enter the sheet with their opening balance the first time they
// appear, which gives every account the configured initial balance without
// materializing the infinite account space.
type balanceSheet struct {
	gen      genesis.Genesis
	accounts map[AccountID]uint64
}

// newBalanceSheet constructs a sheet holding only the genesis allocations.
func newBalanceSheet(gen genesis.Genesis) *balanceSheet {
	sheet := balanceSheet{
		gen:      gen,
		accounts: make(map[AccountID]uint64),
	}

	for accountStr, balance := range gen.Balances {
		sheet.accounts[AccountID(accountStr)] = balance
	}

	return &sheet
}

// balance returns the current balance for the account, opening the account
// if this is its first appearance.
func (bs *balanceSheet) balance(accountID AccountID) uint64 {
	if balance, exists := bs.accounts[accountID]; exists {
		return balance
	}

	return bs.gen.InitialBalance
}

// applyBlock replays the block's transactions over the sheet. The reward
// transaction credits the beneficiary; every other transaction moves the
// amount to the receiver and takes amount plus fee from the sender, with
// the fee resurfacing inside the reward amount.
func (bs *balanceSheet) applyBlock(block Block) error {
	for _, tx := range block.Trans {
		if tx.IsCoinbase() {
			bs.accounts[tx.ToID] = bs.balance(tx.ToID) + tx.Amount
			continue
		}

		spend := tx.Amount + tx.Fee
		from := bs.balance(tx.FromID)
		if spend > from {
			return fmt.Errorf("%w: account %s has %d, spends %d", ErrNegativeBalance, tx.FromID, from, spend)
		}

		bs.accounts[tx.FromID] = from - spend
		bs.accounts[tx.ToID] = bs.balance(tx.ToID) + tx.Amount
	}

	return nil
}
