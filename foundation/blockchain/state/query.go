package state

import (
	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/agrimkaushik/powledger/foundation/blockchain/genesis"
	"github.com/agrimkaushik/powledger/foundation/blockchain/peer"
)

// QueryLatest represents a query against the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// Host returns the host this node runs on.
func (s *State) Host() string {
	return s.host
}

// IsMiner reports whether this node mines blocks.
func (s *State) IsMiner() bool {
	return s.miner
}

// BeneficiaryID returns the account receiving this node's mining rewards.
// It is also the account node-built transactions are signed from.
func (s *State) BeneficiaryID() database.AccountID {
	return s.beneficiaryID
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// LatestBlock returns a copy of the current latest block.
func (s *State) LatestBlock() database.Block {
	return s.db.LatestBlock()
}

// MempoolCount returns the current length of the mempool.
func (s *State) MempoolCount() int {
	return s.mempool.Count()
}

// UncommittedTransactions returns the pending transactions in the mempool
// in the selection strategy's order, optionally filtered to one account as
// sender or receiver.
func (s *State) UncommittedTransactions(accountID database.AccountID) []database.SignedTx {
	txs := s.mempool.PickBest(-1)
	if accountID == "" {
		return txs
	}

	filtered := make([]database.SignedTx, 0, len(txs))
	for _, tx := range txs {
		if tx.FromID == accountID || tx.ToID == accountID {
			filtered = append(filtered, tx)
		}
	}

	return filtered
}

// Accounts returns the projected balance of every known account, sorted
// for stable presentation.
func (s *State) Accounts() []database.Account {
	return s.db.Accounts()
}

// BalanceOf projects the confirmed balance for the account by chain replay.
func (s *State) BalanceOf(accountID database.AccountID) uint64 {
	return s.db.BalanceOf(accountID)
}

// QueryBlocksByNumber returns the blocks numbered from and to inclusive.
// Passing QueryLatest for either side anchors the range at the tip.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	if from == QueryLatest {
		from = s.db.LatestBlock().Header.Number
		to = from
	}

	if to == QueryLatest {
		to = s.db.LatestBlock().Header.Number
	}

	return s.db.BlocksByNumber(from, to)
}

// KnownPeers returns a copy of the known peer list with this node excluded.
func (s *State) KnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// AddKnownPeer adds a peer to the known list, reporting whether it was new.
func (s *State) AddKnownPeer(pr peer.Peer) bool {
	return s.knownPeers.Add(pr)
}

// RemoveKnownPeer takes the peer out of the known list.
func (s *State) RemoveKnownPeer(pr peer.Peer) {
	s.knownPeers.Remove(pr)
}
