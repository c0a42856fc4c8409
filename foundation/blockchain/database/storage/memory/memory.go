// Package memory implements the ability to read and write accounts and
// blocks to memory using a map and a slice.
package memory

import (
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Memory represents the storage implementation for reading and storing
// accounts and blocks in memory. This implements the database.Storage
// interface.
type Memory struct {
	mu       sync.RWMutex
	accounts map[database.Address]database.Account
	blocks   []database.Block
	closed   bool
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		accounts: make(map[database.Address]database.Account),
	}
}

// Close releases the stored data.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.accounts = nil
	m.blocks = nil

	return nil
}

// GetAccount returns a copy of the account for the specified address.
func (m *Memory) GetAccount(address database.Address) (database.Account, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return database.Account{}, false, database.ErrClosed
	}

	account, exists := m.accounts[address]
	if !exists {
		return database.Account{}, false, nil
	}

	return account.Clone(), true, nil
}

// PutAccount stores a copy of the account.
func (m *Memory) PutAccount(account database.Account) error {
	return m.PutAccounts(account)
}

// PutAccounts stores a copy of every account under a single lock.
func (m *Memory) PutAccounts(accounts ...database.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return database.ErrClosed
	}

	for _, account := range accounts {
		m.accounts[account.Address] = account.Clone()
	}

	return nil
}

// ListAccounts returns a copy of all the accounts ordered by address.
func (m *Memory) ListAccounts() ([]database.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, database.ErrClosed
	}

	accounts := make([]database.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		accounts = append(accounts, account.Clone())
	}
	database.SortAccounts(accounts)

	return accounts, nil
}

// LastBlock returns a copy of the latest block or nil if there are
// no blocks.
func (m *Memory) LastBlock() (*database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, database.ErrClosed
	}

	if len(m.blocks) == 0 {
		return nil, nil
	}

	block := m.blocks[len(m.blocks)-1].Clone()
	return &block, nil
}

// PutBlock appends the block to the chain. Blocks must be written in order.
func (m *Memory) PutBlock(block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return database.ErrClosed
	}

	if exp := uint64(len(m.blocks)) + 1; block.Header.Number != exp {
		return fmt.Errorf("block is out of order, got %d, exp %d", block.Header.Number, exp)
	}

	m.blocks = append(m.blocks, block.Clone())

	return nil
}

// GetBlock locates and returns the contents of the specified block by number.
func (m *Memory) GetBlock(num uint64) (database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return database.Block{}, database.ErrClosed
	}

	if num == 0 || num > uint64(len(m.blocks)) {
		return database.Block{}, fmt.Errorf("block %d: %w", num, database.ErrNotFound)
	}

	return m.blocks[num-1].Clone(), nil
}
