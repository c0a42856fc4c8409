// Package storagetest provides a common set of tests every database.Storage
// implementation must pass.
package storagetest

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// Set of accounts used by the tests.
const (
	AddressA = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	AddressB = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
)

// Run executes the account and block tests against the storage.
func Run(t *testing.T, strg database.Storage) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, strg) })
	t.Run("blocks", func(t *testing.T) { testBlocks(t, strg) })
}

func testAccounts(t *testing.T, strg database.Storage) {
	_, exists, err := strg.GetAccount(AddressA)
	require.NoError(t, err)
	require.False(t, exists, "should not find an account that was never stored")

	accounts, err := strg.ListAccounts()
	require.NoError(t, err)
	require.Empty(t, accounts)

	b := database.Account{Address: AddressB, PublicKey: []byte{4, 5, 6}, Balance: uint256.NewInt(0)}
	a := database.Account{Address: AddressA, PublicKey: []byte{1, 2, 3}, Balance: uint256.NewInt(100)}
	require.NoError(t, strg.PutAccount(b))
	require.NoError(t, strg.PutAccount(a))

	got, exists, err := strg.GetAccount(AddressA)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, a.PublicKey, got.PublicKey)
	require.Equal(t, uint64(100), got.Balance.Uint64())

	// Read your own write.
	got.Balance = uint256.NewInt(70)
	require.NoError(t, strg.PutAccount(got))

	got, _, err = strg.GetAccount(AddressA)
	require.NoError(t, err)
	require.Equal(t, uint64(70), got.Balance.Uint64())

	// Both sides of a transfer land together.
	a.Balance = uint256.NewInt(40)
	b.Balance = uint256.NewInt(30)
	require.NoError(t, strg.PutAccounts(a, b))

	got, _, err = strg.GetAccount(AddressA)
	require.NoError(t, err)
	require.Equal(t, uint64(40), got.Balance.Uint64())

	got, _, err = strg.GetAccount(AddressB)
	require.NoError(t, err)
	require.Equal(t, uint64(30), got.Balance.Uint64())

	accounts, err = strg.ListAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, database.Address(AddressB), accounts[0].Address, "accounts should be ordered by address")
	require.Equal(t, database.Address(AddressA), accounts[1].Address, "accounts should be ordered by address")
}

func testBlocks(t *testing.T, strg database.Storage) {
	last, err := strg.LastBlock()
	require.NoError(t, err)
	require.Nil(t, last, "should not find a block in an empty chain")

	from := database.Address(AddressA)
	tx := database.NewTransaction(from, AddressB, uint256.NewInt(30))
	tx.Status = database.StatusSuccess

	b1 := database.Block{
		Hash:         "0x01",
		Header:       database.BlockHeader{Number: 1, PrevBlockHash: signature.ZeroHash},
		Transactions: []database.Transaction{tx},
	}
	require.NoError(t, strg.PutBlock(b1))

	b3 := database.Block{Hash: "0x03", Header: database.BlockHeader{Number: 3, PrevBlockHash: "0x02"}}
	require.Error(t, strg.PutBlock(b3), "should not accept a block out of order")

	b2 := database.Block{Hash: "0x02", Header: database.BlockHeader{Number: 2, PrevBlockHash: "0x01"}}
	require.NoError(t, strg.PutBlock(b2))

	last, err = strg.LastBlock()
	require.NoError(t, err)
	require.NotNil(t, last)
	require.Equal(t, "0x02", last.Hash)
	require.Equal(t, "0x01", last.Header.PrevBlockHash)

	got, err := strg.GetBlock(1)
	require.NoError(t, err)
	require.Len(t, got.Transactions, 1)
	require.Equal(t, database.StatusSuccess, got.Transactions[0].Status)
	require.Equal(t, uint64(30), got.Transactions[0].Amount.Uint64())
	require.Equal(t, from, *got.Transactions[0].Sender)

	_, err = strg.GetBlock(9)
	require.ErrorIs(t, err, database.ErrNotFound)
}
