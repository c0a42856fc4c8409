// Package bolt implements the ability to read and write accounts and blocks
// to a single boltdb file.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/boltdb/bolt"
)

// Set of buckets used by the store.
var (
	accountsBucket = []byte("accounts")
	blocksBucket   = []byte("blocks")
)

// Bolt represents the storage implementation for reading and storing
// accounts and blocks in boltdb buckets. This implements the
// database.Storage interface.
type Bolt struct {
	db *bolt.DB
}

// New opens or creates the boltdb file at the specified path. BoltDB obtains
// a file lock on the data file so multiple processes cannot open the same
// database at the same time.
func New(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{accountsBucket, blocksBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// GetAccount returns the account for the specified address.
func (b *Bolt) GetAccount(address database.Address) (database.Account, bool, error) {
	var account database.Account
	var exists bool

	err := b.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(accountsBucket).Get([]byte(address))
		if val == nil {
			return nil
		}
		exists = true
		return json.Unmarshal(val, &account)
	})
	if err != nil {
		return database.Account{}, false, err
	}

	return account, exists, nil
}

// PutAccount inserts or replaces the account.
func (b *Bolt) PutAccount(account database.Account) error {
	return b.PutAccounts(account)
}

// PutAccounts inserts or replaces the accounts inside one transaction.
func (b *Bolt) PutAccounts(accounts ...database.Account) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(accountsBucket)

		for _, account := range accounts {
			data, err := json.Marshal(account)
			if err != nil {
				return err
			}

			if err := bkt.Put([]byte(account.Address), data); err != nil {
				return err
			}
		}

		return nil
	})
}

// ListAccounts returns all the accounts. Bolt keeps keys in byte order so
// the accounts come back ordered by address.
func (b *Bolt) ListAccounts() ([]database.Account, error) {
	var accounts []database.Account

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucket).ForEach(func(k, v []byte) error {
			var account database.Account
			if err := json.Unmarshal(v, &account); err != nil {
				return fmt.Errorf("decoding account %s: %w", k, err)
			}
			accounts = append(accounts, account)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// LastBlock returns the block with the highest number or nil when the chain
// is empty.
func (b *Bolt) LastBlock() (*database.Block, error) {
	var block *database.Block

	err := b.db.View(func(tx *bolt.Tx) error {
		_, val := tx.Bucket(blocksBucket).Cursor().Last()
		if val == nil {
			return nil
		}

		var blk database.Block
		if err := json.Unmarshal(val, &blk); err != nil {
			return err
		}
		block = &blk
		return nil
	})
	if err != nil {
		return nil, err
	}

	return block, nil
}

// PutBlock appends the block to the chain. Blocks must be written in order.
func (b *Bolt) PutBlock(block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(blocksBucket)

		var exp uint64 = 1
		if k, _ := bkt.Cursor().Last(); k != nil {
			exp = binary.BigEndian.Uint64(k) + 1
		}

		if block.Header.Number != exp {
			return fmt.Errorf("block is out of order, got %d, exp %d", block.Header.Number, exp)
		}

		return bkt.Put(blockKey(block.Header.Number), data)
	})
}

// GetBlock returns the block with the specified number.
func (b *Bolt) GetBlock(num uint64) (database.Block, error) {
	var block database.Block

	err := b.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(blocksBucket).Get(blockKey(num))
		if val == nil {
			return fmt.Errorf("block %d: %w", num, database.ErrNotFound)
		}
		return json.Unmarshal(val, &block)
	})
	if err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// =============================================================================

// blockKey encodes the block number so keys sort in chain order.
func blockKey(num uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, num)
	return key
}
