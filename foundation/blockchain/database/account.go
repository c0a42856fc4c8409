package database

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Account represents information stored in the database for an individual account.
type Account struct {
	Address   Address      `json:"address"`
	PublicKey []byte       `json:"public_key"`
	Balance   *uint256.Int `json:"balance"`
}

// NewAccount constructs a zero balance account for the specified public key.
func NewAccount(publicKey ecdsa.PublicKey) Account {
	return Account{
		Address:   PublicKeyToAddress(publicKey),
		PublicKey: signature.PublicKeyBytes(publicKey),
		Balance:   new(uint256.Int),
	}
}

// Clone returns a deep copy of the account so the caller can mutate it
// without touching the stored value.
func (a Account) Clone() Account {
	balance := new(uint256.Int)
	if a.Balance != nil {
		balance.Set(a.Balance)
	}

	return Account{
		Address:   a.Address,
		PublicKey: bytes.Clone(a.PublicKey),
		Balance:   balance,
	}
}

// =============================================================================

// Address represents an account address that is used to sign transactions
// and is associated with transactions on the ledger.
type Address string

// ToAddress converts a hex-encoded string to an address and validates the
// hex-encoded string is formatted correctly. The result is always in the
// checksum form so lookups are case insensitive.
func ToAddress(hex string) (Address, error) {
	if !common.IsHexAddress(hex) {
		return "", errors.New("invalid address format")
	}

	return Address(common.HexToAddress(hex).Hex()), nil
}

// PublicKeyToAddress converts the public key to an address value.
func PublicKeyToAddress(pk ecdsa.PublicKey) Address {
	return Address(crypto.PubkeyToAddress(pk).Hex())
}

// IsAddress verifies whether the underlying data represents a valid
// hex-encoded address.
func (a Address) IsAddress() bool {
	return common.IsHexAddress(string(a))
}

// raw returns the 20 byte form of the address.
func (a Address) raw() common.Address {
	return common.HexToAddress(string(a))
}

// =============================================================================

// SortAccounts orders the accounts by address.
func SortAccounts(accounts []Account) {
	sort.Sort(byAddress(accounts))
}

// byAddress provides sorting support by the address value.
type byAddress []Account

// Len returns the number of accounts in the list.
func (ba byAddress) Len() int {
	return len(ba)
}

// Less helps to sort the list by address in ascending order.
func (ba byAddress) Less(i, j int) bool {
	return ba[i].Address < ba[j].Address
}

// Swap moves accounts in the order of the address value.
func (ba byAddress) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
