// Package bolt implements the ability to read and write blocks to a bolt
// database file, keyed by the big-endian block number inside a single
// bucket.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/boltdb/bolt"
)

// blocksBucket is the one bucket holding the chain.
const blocksBucket = "blocks"

// errBlockNotFound reports a block number with no entry in the bucket.
var errBlockNotFound = errors.New("block does not exist")

// Bolt represents the storage implementation for reading and storing blocks
// inside a bolt database file. This implements the database.Storage
// interface.
type Bolt struct {
	db *bolt.DB
}

// New constructs a Bolt value for use, creating the database file and the
// blocks bucket the first time.
func New(dbPath string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(blocksBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Close releases the bolt database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write takes the specified database block and stores it under its block
// number.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(blocksBucket)).Put(blockKey(blockData.Header.Number), data)
	})
}

// GetBlock searches the database to locate and return the contents of the
// specified block by number.
func (b *Bolt) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(blocksBucket)).Get(blockKey(num))
		if data == nil {
			return errBlockNotFound
		}

		return json.Unmarshal(data, &blockData)
	})
	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block.
func (b *Bolt) ForEach() database.Iterator {
	return &boltIterator{storage: b}
}

// Reset will clear out the blockchain from the database file.
func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(blocksBucket)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(blocksBucket))
		return err
	})
}

// blockKey forms the key for the specified block.
func blockKey(blockNum uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, blockNum)

	return key
}

// =============================================================================

// boltIterator represents the iteration implementation for walking through
// and reading blocks in the database file. This implements the database
// Iterator interface.
type boltIterator struct {
	storage *Bolt  // Access to the bolt storage API.
	current uint64 // Current block number being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the database file.
func (bi *boltIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	blockData, err := bi.storage.GetBlock(bi.current)
	if errors.Is(err, errBlockNotFound) {
		bi.eoc = true
	}

	bi.current++

	return blockData, err
}

// Done returns the end of chain value.
func (bi *boltIterator) Done() bool {
	return bi.eoc
}
