// Package mempool maintains the pool of uncommitted transactions and owns
// the admission rules deciding what gets in.
package mempool

import (
	"fmt"
	"sync"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/agrimkaushik/powledger/foundation/blockchain/mempool/selector"
)

// ChainView is the view of the confirmed chain the admission rules need.
// The state's database satisfies this.
type ChainView interface {
	ChainID() uint16
	BalanceOf(accountID database.AccountID) uint64
	HasTransaction(id string) bool
}

// Mempool represents a cache of uncommitted transactions keyed by their
// transaction id.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[string]database.SignedTx
	selectFn selector.Func
}

// New constructs a new mempool using the default selection strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFee)
}

// NewWithStrategy constructs a new mempool with the specified selection
// strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]database.SignedTx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Admit runs the admission rules over the transaction and stores it in the
// pool when every rule passes: the signature must validate and recover the
// claimed sender, the id must be new to both the pool and the chain, and
// the spend must fit inside the sender's confirmed balance net of what the
// pool already has the sender spending.
func (mp *Mempool) Admit(tx database.SignedTx, view ChainView) error {
	if err := tx.Validate(view.ChainID()); err != nil {
		return fmt.Errorf("%w: tx[%s]: %v", database.ErrInvalidSignature, tx, err)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	id := tx.ID()

	if _, exists := mp.pool[id]; exists {
		return fmt.Errorf("%w: tx[%s] already pending", database.ErrDuplicateTx, tx)
	}

	if view.HasTransaction(id) {
		return fmt.Errorf("%w: tx[%s] already confirmed", database.ErrDuplicateTx, tx)
	}

	spend := tx.Amount + tx.Fee
	available := view.BalanceOf(tx.FromID)
	if pending := mp.pendingSpend(tx.FromID); pending >= available {
		available = 0
	} else {
		available -= pending
	}

	if spend > available {
		return fmt.Errorf("%w: account %s has %d available, spends %d", database.ErrInsufficientBalance, tx.FromID, available, spend)
	}

	mp.pool[id] = tx

	return nil
}

// ReinsertIfEligible gives a transaction orphaned by a chain replacement
// another chance at the pool. Already pending or already confirmed ids are
// left alone, and the transaction re-runs the standard admission rules
// against the new chain, so an orphan the new chain can no longer afford
// stays out.
func (mp *Mempool) ReinsertIfEligible(tx database.SignedTx, view ChainView) bool {
	return mp.Admit(tx, view) == nil
}

// Delete removes a transaction from the pool.
func (mp *Mempool) Delete(tx database.SignedTx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.ID())
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.SignedTx)
}

// Contains reports whether the transaction id is pending in the pool.
func (mp *Mempool) Contains(id string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[id]
	return exists
}

// Copy returns a list of the current transactions in the pool.
func (mp *Mempool) Copy() []database.SignedTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.SignedTx, 0, len(mp.pool))
	for _, tx := range mp.pool {
		txs = append(txs, tx)
	}

	return txs
}

// PickBest uses the configured selection strategy to return the next set
// of transactions for a block. Receiving -1 returns the full pool in the
// strategy's order.
func (mp *Mempool) PickBest(howMany int) []database.SignedTx {
	var txs []database.SignedTx
	mp.mu.RLock()
	{
		if howMany == -1 {
			howMany = len(mp.pool)
		}

		txs = make([]database.SignedTx, 0, len(mp.pool))
		for _, tx := range mp.pool {
			txs = append(txs, tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(txs, howMany)
}

// =============================================================================

// pendingSpend totals what the account is already spending across the
// pool. Callers must hold at least a read lock.
func (mp *Mempool) pendingSpend(accountID database.AccountID) uint64 {
	var spend uint64
	for _, tx := range mp.pool {
		if tx.FromID == accountID {
			spend += tx.Amount + tx.Fee
		}
	}

	return spend
}
