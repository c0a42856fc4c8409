package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// QueryAccount returns a copy of the account from the store.
func (s *State) QueryAccount(address database.Address) (database.Account, error) {
	return s.lookupAccount(address, "account")
}

// QueryAccounts returns every account ordered by address.
func (s *State) QueryAccounts() ([]database.Account, error) {
	accounts, err := s.storage.ListAccounts()
	if err != nil {
		return nil, fmt.Errorf("%w: listing accounts: %w", ErrPersistence, err)
	}

	return accounts, nil
}

// QueryMempool returns a copy of the pending transactions in submission order.
func (s *State) QueryMempool() []database.Transaction {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlock returns the block with the specified number. An unknown
// number returns an error wrapping database.ErrNotFound.
func (s *State) QueryBlock(num uint64) (database.Block, error) {
	block, err := s.storage.GetBlock(num)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Block{}, err
		}
		return database.Block{}, fmt.Errorf("%w: reading block %d: %w", ErrPersistence, num, err)
	}

	return block, nil
}
