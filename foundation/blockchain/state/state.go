// Package state is the core API for the ledger node and implements all the
// business rules and processing.
package state

import (
	"crypto/ecdsa"
	"errors"
	"sync"
	"time"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/agrimkaushik/powledger/foundation/blockchain/dedup"
	"github.com/agrimkaushik/powledger/foundation/blockchain/genesis"
	"github.com/agrimkaushik/powledger/foundation/blockchain/mempool"
	"github.com/agrimkaushik/powledger/foundation/blockchain/peer"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are no transactions in the mempool.
var ErrNoTransactions = errors.New("no transactions in mempool")

// Gossip dedup window. A key falling out of the window re-enters as new,
// which is harmless since admission and block validation drop replays.
const (
	seenTTL        = 10 * time.Minute
	seenMaxEntries = 10_000
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, chain sync, and transaction sharing.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
	SignalShareTx(tx database.SignedTx)
}

// =============================================================================

// Config represents the configuration required to start
// the ledger node.
type Config struct {
	Host           string
	Miner          bool
	PrivateKey     *ecdsa.PrivateKey
	Genesis        genesis.Genesis
	Storage        database.Storage
	SelectStrategy string
	KnownPeers     *peer.PeerSet
	EvHandler      EventHandler
}

// State manages the chain database, the mempool, and the view of the peer
// network for one running node. The single mutex serializes every compound
// chain or mempool mutation; the miner never holds it while hashing.
type State struct {
	mu sync.Mutex

	host          string
	miner         bool
	privateKey    *ecdsa.PrivateKey
	beneficiaryID database.AccountID
	evHandler     EventHandler

	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	db         *database.Database
	knownPeers *peer.PeerSet
	seen       *dedup.Cache

	Worker Worker
}

// New constructs a new node state for ledger management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Access the database for the chain. A fresh store is seeded with the
	// genesis block, an existing one is revalidated on load.
	db, err := database.New(cfg.Genesis, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the specified selection strategy.
	mpool, err := mempool.NewWithStrategy(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	state := State{
		host:          cfg.Host,
		miner:         cfg.Miner,
		privateKey:    cfg.PrivateKey,
		beneficiaryID: database.PublicKeyToAccountID(cfg.PrivateKey.PublicKey),
		evHandler:     ev,

		genesis:    cfg.Genesis,
		mempool:    mpool,
		db:         db,
		knownPeers: cfg.KnownPeers,
		seen:       dedup.New(seenTTL, seenMaxEntries),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database is properly closed.
	defer s.db.Close()

	// Stop all chain writing activity.
	s.Worker.Shutdown()

	return nil
}
