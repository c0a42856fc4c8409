// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/holiman/uint256"
)

// Set of errors the engine can return. Callers should use errors.Is since
// these are wrapped with context.
var (
	ErrAddressNotFound = errors.New("address not found")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrBuilder         = errors.New("block builder failed")
	ErrPersistence     = errors.New("persistence failed")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of submitting transactions and mining blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// Builder interface represents the behavior required to be implemented by
// any package that can construct the next block skeleton. A nil previous
// block means the chain is empty.
type Builder interface {
	NewBlock(ctx context.Context, prevBlock *database.Block) (database.Block, error)
}

// =============================================================================

// Config represents the configuration required to start
// the ledger node.
type Config struct {
	Beneficiary *ecdsa.PublicKey
	Host        string
	Storage     database.Storage
	Builder     Builder
	Genesis     genesis.Genesis
	KnownPeers  *peer.Registry
	EvHandler   EventHandler
}

// State manages the ledger. The mutex serializes every mining operation so
// only one block is being built and applied at any time.
type State struct {
	mu sync.Mutex

	beneficiaryID database.Address
	hasMiner      bool
	miningReward  *uint256.Int
	host          string
	evHandler     EventHandler

	knownPeers *peer.Registry
	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	storage    database.Storage
	builder    Builder

	Worker Worker
}

// New constructs a new ledger for data management. When the account store
// is empty the founding accounts from the genesis are stored.
func New(cfg Config) (*State, error) {
	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if cfg.Builder == nil {
		return nil, errors.New("block builder is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewRegistry(peer.NewPeerSet())
	}

	miningReward := new(uint256.Int)
	if cfg.Genesis.MiningReward != nil {
		miningReward.Set(cfg.Genesis.MiningReward)
	}

	state := State{
		miningReward: miningReward,
		host:         cfg.Host,
		evHandler:    ev,

		knownPeers: knownPeers,
		genesis:    cfg.Genesis,
		mempool:    mempool.New(),
		storage:    cfg.Storage,
		builder:    cfg.Builder,
	}

	if err := state.seedGenesis(); err != nil {
		return nil, err
	}

	// The beneficiary must have an account to receive the mining reward.
	if cfg.Beneficiary != nil {
		state.beneficiaryID = database.PublicKeyToAddress(*cfg.Beneficiary)
		state.hasMiner = true

		if err := state.ensureAccount(database.NewAccount(*cfg.Beneficiary)); err != nil {
			return nil, err
		}
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all ledger writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	// Make sure no mining operation is holding the store.
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.storage.Close()
}

// =============================================================================

// seedGenesis stores the founding accounts when the account store is empty.
func (s *State) seedGenesis() error {
	existing, err := s.storage.ListAccounts()
	if err != nil {
		return fmt.Errorf("%w: listing accounts: %w", ErrPersistence, err)
	}

	if len(existing) > 0 {
		return nil
	}

	accounts, err := s.genesis.LedgerAccounts()
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	for _, account := range accounts {
		s.evHandler("state: seedGenesis: account[%s] balance[%s]", account.Address, account.Balance.Dec())

		if err := s.storage.PutAccount(account); err != nil {
			return fmt.Errorf("%w: storing genesis account: %w", ErrPersistence, err)
		}
	}

	return nil
}

// ensureAccount stores the account if the address is unknown.
func (s *State) ensureAccount(account database.Account) error {
	_, exists, err := s.storage.GetAccount(account.Address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if exists {
		return nil
	}

	if err := s.storage.PutAccount(account); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	return nil
}
