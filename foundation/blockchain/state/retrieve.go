package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy of the latest block or nil when no
// block has been mined yet.
func (s *State) RetrieveLatestBlock() (*database.Block, error) {
	block, err := s.storage.LastBlock()
	if err != nil {
		return nil, fmt.Errorf("%w: reading last block: %w", ErrPersistence, err)
	}

	return block, nil
}

// RetrieveBeneficiary returns the account that receives the mining reward.
func (s *State) RetrieveBeneficiary() (database.Account, error) {
	if !s.hasMiner {
		return database.Account{}, fmt.Errorf("%w: node has no beneficiary", ErrAddressNotFound)
	}

	return s.lookupAccount(s.beneficiaryID, "beneficiary")
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}
