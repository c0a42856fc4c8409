package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// NewAccount generates a new key pair and stores a zero balance account for
// it. The private key is returned hex encoded and is not kept by the node.
func (s *State) NewAccount(ctx context.Context) (database.Account, string, error) {
	if err := ctx.Err(); err != nil {
		return database.Account{}, "", err
	}

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return database.Account{}, "", fmt.Errorf("generating key: %w", err)
	}

	// Account writes share the mining lock so balances are only ever
	// changed by one writer.
	s.mu.Lock()
	defer s.mu.Unlock()

	account := database.NewAccount(privateKey.PublicKey)
	if err := s.storage.PutAccount(account); err != nil {
		return database.Account{}, "", fmt.Errorf("%w: writing account: %w", ErrPersistence, err)
	}

	s.evHandler("state: NewAccount: account[%s]", account.Address)

	return account, hexutil.Encode(crypto.FromECDSA(privateKey)), nil
}

// AddNode probes the host and adds it to the set of known peers when it
// responds as a healthy node.
func (s *State) AddNode(ctx context.Context, host string) bool {
	added := s.knownPeers.AddNode(ctx, host)
	s.evHandler("state: AddNode: host[%s] added[%t]", host, added)

	return added
}
