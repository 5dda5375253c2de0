// Package pebble implements the ability to read and write blocks to a
// pebble key value store, keyed by the big-endian block number so the keys
// iterate in chain order.
package pebble

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/cockroachdb/pebble"
)

// Pebble represents the storage implementation for reading and storing
// blocks inside a pebble database. This implements the database.Storage
// interface.
type Pebble struct {
	db *pebble.DB
}

// New constructs a Pebble value for use, creating the database directory
// the first time.
func New(dbPath string) (*Pebble, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, err
	}

	return &Pebble{db: db}, nil
}

// Close releases the pebble database.
func (p *Pebble) Close() error {
	return p.db.Close()
}

// Write takes the specified database block and stores it, synced, under
// its block number.
func (p *Pebble) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return p.db.Set(blockKey(blockData.Header.Number), data, pebble.Sync)
}

// GetBlock searches the store to locate and return the contents of the
// specified block by number.
func (p *Pebble) GetBlock(num uint64) (database.BlockData, error) {
	data, closer, err := p.db.Get(blockKey(num))
	if err != nil {
		return database.BlockData{}, err
	}
	defer closer.Close()

	var blockData database.BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block.
func (p *Pebble) ForEach() database.Iterator {
	return &pebbleIterator{storage: p}
}

// Reset will clear out the blockchain from the store.
func (p *Pebble) Reset() error {
	iter, err := p.db.NewIter(nil)
	if err != nil {
		return err
	}

	var keys [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, append([]byte{}, iter.Key()...))
	}
	if err := iter.Close(); err != nil {
		return err
	}

	for _, key := range keys {
		if err := p.db.Delete(key, pebble.Sync); err != nil {
			return err
		}
	}

	return nil
}

// blockKey forms the key for the specified block.
func blockKey(blockNum uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, blockNum)

	return key
}

// =============================================================================

// pebbleIterator represents the iteration implementation for walking
// through and reading blocks in the store. This implements the database
// Iterator interface.
type pebbleIterator struct {
	storage *Pebble // Access to the pebble storage API.
	current uint64  // Current block number being iterated over.
	eoc     bool    // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the store.
func (pi *pebbleIterator) Next() (database.BlockData, error) {
	if pi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := pi.storage.GetBlock(pi.current)
	if errors.Is(err, pebble.ErrNotFound) {
		pi.eoc = true
	}

	pi.current++

	return blockData, err
}

// Done returns the end of chain value.
func (pi *pebbleIterator) Done() bool {
	return pi.eoc
}
