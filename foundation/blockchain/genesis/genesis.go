// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date         time.Time    `json:"date"`
	Difficulty   uint16       `json:"difficulty"`    // How difficult it needs to be to solve the work problem.
	MiningReward *uint256.Int `json:"mining_reward"` // Reward for mining a block.
	Accounts     []Account    `json:"accounts"`
}

// Account represents a founding account and its starting balance.
type Account struct {
	PublicKey string       `json:"public_key"` // Hex encoded uncompressed secp256k1 key.
	Balance   *uint256.Int `json:"balance"`
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// LedgerAccounts converts the founding accounts into ledger accounts.
func (g Genesis) LedgerAccounts() ([]database.Account, error) {
	accounts := make([]database.Account, 0, len(g.Accounts))

	for i, ga := range g.Accounts {
		data, err := hexutil.Decode(ga.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("account[%d]: decoding public key: %w", i, err)
		}

		publicKey, err := crypto.UnmarshalPubkey(data)
		if err != nil {
			return nil, fmt.Errorf("account[%d]: parsing public key: %w", i, err)
		}

		account := database.NewAccount(*publicKey)
		if ga.Balance != nil {
			account.Balance.Set(ga.Balance)
		}

		accounts = append(accounts, account)
	}

	return accounts, nil
}
