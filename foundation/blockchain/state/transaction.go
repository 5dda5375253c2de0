package state

import (
	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
)

// SubmitWalletTransaction accepts a signed transaction from a wallet for
// inclusion. On acceptance it is shared with the network and a mining
// operation is signaled.
func (s *State) SubmitWalletTransaction(signedTx database.SignedTx) error {
	s.evHandler("state: SubmitWalletTransaction: started: tx[%s]", signedTx)
	defer s.evHandler("state: SubmitWalletTransaction: completed")

	if err := s.admitTransaction(signedTx); err != nil {
		return err
	}

	s.Worker.SignalShareTx(signedTx)
	s.Worker.SignalStartMining()

	return nil
}

// SubmitNodeTransaction accepts a transaction arriving over gossip. A
// transaction seen inside the dedup window is dropped without another
// admission attempt, which is what keeps the flood from looping.
func (s *State) SubmitNodeTransaction(signedTx database.SignedTx) error {
	if s.seen.Seen(signedTx.ID()) {
		s.evHandler("state: SubmitNodeTransaction: tx[%s]: already seen", signedTx)
		return nil
	}

	s.evHandler("state: SubmitNodeTransaction: started: tx[%s]", signedTx)
	defer s.evHandler("state: SubmitNodeTransaction: completed")

	if err := s.admitTransaction(signedTx); err != nil {
		return err
	}

	// Forward once. Peers that saw it already drop it on receipt.
	s.Worker.SignalShareTx(signedTx)
	s.Worker.SignalStartMining()

	return nil
}

// SubmitLocalTransaction builds a transaction from this node's own account,
// signs it with the node key, and submits it like any wallet transaction.
func (s *State) SubmitLocalTransaction(toID database.AccountID, amount uint64, fee uint64) (database.SignedTx, error) {
	s.evHandler("state: SubmitLocalTransaction: started: to[%s] amount[%d] fee[%d]", toID, amount, fee)
	defer s.evHandler("state: SubmitLocalTransaction: completed")

	tx, err := database.NewTx(s.genesis.ChainID, s.beneficiaryID, toID, amount, fee)
	if err != nil {
		return database.SignedTx{}, err
	}

	signedTx, err := tx.Sign(s.privateKey)
	if err != nil {
		return database.SignedTx{}, err
	}

	if err := s.SubmitWalletTransaction(signedTx); err != nil {
		return database.SignedTx{}, err
	}

	return signedTx, nil
}

// =============================================================================

// admitTransaction runs the mempool admission rules under the state lock so
// the balance check and the insert happen as one step.
func (s *State) admitTransaction(signedTx database.SignedTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mempool.Admit(signedTx, s.db)
}
