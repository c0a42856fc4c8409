// Package database defines the ledger data model, the canonical transaction
// encoding, and the storage contract used to persist accounts and blocks.
package database

import "errors"

// Set of errors a storage implementation can return.
var (
	ErrClosed   = errors.New("storage is closed")
	ErrNotFound = errors.New("not found")
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for persisting accounts and blocks. A storage
// must provide read-your-write consistency within a single process.
type Storage interface {
	AccountStore
	BlockStore
	Close() error
}

// AccountStore represents the behavior for persisting accounts by address.
type AccountStore interface {

	// GetAccount returns the account for the address. The bool reports
	// whether the account exists. Callers own the returned value.
	GetAccount(address Address) (Account, bool, error)

	// PutAccount inserts or replaces the account.
	PutAccount(account Account) error

	// PutAccounts inserts or replaces the accounts as one write. Either
	// every account is stored or none of them are.
	PutAccounts(accounts ...Account) error

	// ListAccounts returns all the stored accounts ordered by address.
	ListAccounts() ([]Account, error)
}

// BlockStore represents the behavior for persisting committed blocks.
type BlockStore interface {

	// LastBlock returns the most recently committed block or nil when no
	// block has been committed.
	LastBlock() (*Block, error)

	// PutBlock appends the block to the chain.
	PutBlock(block Block) error

	// GetBlock returns the block with the specified number. An unknown
	// number returns an error wrapping ErrNotFound.
	GetBlock(num uint64) (Block, error)
}
