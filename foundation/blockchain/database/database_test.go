package database_test

import (
	"bytes"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	fromAddress = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	toAddress   = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
	pkHexKey    = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
)

// =============================================================================

func newTx(t *testing.T) database.Transaction {
	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	tx := database.NewTransaction(fromAddress, toAddress, uint256.NewInt(30))
	tx.TimeStamp = 1700000000000
	tx.PublicKey = crypto.FromECDSAPub(&pk.PublicKey)

	return tx
}

func Test_Encode(t *testing.T) {
	t.Log("Given the need to encode transactions canonically.")
	{
		tx := newTx(t)

		enc1, err := database.Encode(tx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to encode the transaction: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to encode the transaction.", success)

		// Fields outside of the canonical encoding must not change it.
		tx.TxHash = "0x1234"
		tx.Sign = []byte{1, 2, 3}
		tx.Status = database.StatusFail
		tx.ErrorMessage = "boom"

		enc2, err := database.Encode(tx)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to encode the transaction: %v", failed, err)
		}

		if !bytes.Equal(enc1, enc2) {
			t.Fatalf("\t%s\tShould ignore hash, signature and status fields.", failed)
		}
		t.Logf("\t%s\tShould ignore hash, signature and status fields.", success)

		if tx.Hash() != newTx(t).Hash() {
			t.Fatalf("\t%s\tShould get back the same hash for the same fields.", failed)
		}
		t.Logf("\t%s\tShould get back the same hash for the same fields.", success)
	}
}

func Test_EncodeTamper(t *testing.T) {
	type table struct {
		name   string
		tamper func(tx *database.Transaction)
	}

	tt := []table{
		{
			name:   "amount",
			tamper: func(tx *database.Transaction) { tx.Amount = uint256.NewInt(31) },
		},
		{
			name: "recipient",
			tamper: func(tx *database.Transaction) {
				tx.Recipient = "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76"
			},
		},
		{
			name: "sender",
			tamper: func(tx *database.Transaction) {
				from := database.Address("0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9")
				tx.Sender = &from
			},
		},
		{
			name:   "coinbase",
			tamper: func(tx *database.Transaction) { tx.Sender = nil },
		},
		{
			name:   "timestamp",
			tamper: func(tx *database.Transaction) { tx.TimeStamp++ },
		},
		{
			name:   "publickey",
			tamper: func(tx *database.Transaction) { tx.PublicKey[5] ^= 0xff },
		},
	}

	t.Log("Given the need to detect changes to a transaction.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				tx := newTx(t)
				orig := tx.Hash()

				tst.tamper(&tx)

				if tx.Hash() == orig {
					t.Fatalf("\t%s\tTest %d:\tShould get a different hash after changing the %s.", failed, testID, tst.name)
				}
				t.Logf("\t%s\tTest %d:\tShould get a different hash after changing the %s.", success, testID, tst.name)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_ToAddress(t *testing.T) {
	addr, err := database.ToAddress("0xdd6b972ffcc631a62cae1bb9d80b7ff429c8eba4")
	if err != nil {
		t.Fatalf("Should be able to parse a lower case address: %s", err)
	}

	if addr != fromAddress {
		t.Logf("got: %s", addr)
		t.Logf("exp: %s", fromAddress)
		t.Fatalf("Should get back the checksum form of the address.")
	}

	if _, err := database.ToAddress("0x1234"); err == nil {
		t.Fatalf("Should not be able to parse a short address.")
	}

	pk, err := crypto.HexToECDSA(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	account := database.NewAccount(pk.PublicKey)
	if account.Address != fromAddress {
		t.Logf("got: %s", account.Address)
		t.Logf("exp: %s", fromAddress)
		t.Fatalf("Should derive the right address from the public key.")
	}

	if !account.Balance.IsZero() {
		t.Fatalf("Should start a new account with a zero balance.")
	}
}

func Test_Clone(t *testing.T) {
	account := database.Account{
		Address:   fromAddress,
		PublicKey: []byte{1, 2, 3},
		Balance:   uint256.NewInt(100),
	}

	cpy := account.Clone()
	cpy.Balance.SubUint64(cpy.Balance, 40)
	cpy.PublicKey[0] = 9

	if account.Balance.Uint64() != 100 {
		t.Fatalf("Should not change the original balance, got %d", account.Balance.Uint64())
	}

	if account.PublicKey[0] != 1 {
		t.Fatalf("Should not change the original public key.")
	}
}

func Test_Coinbase(t *testing.T) {
	tx := database.NewCoinbase(toAddress, uint256.NewInt(50))

	if !tx.IsCoinbase() {
		t.Fatalf("Should be a coinbase transaction.")
	}

	if tx.TxHash != tx.Hash() {
		t.Logf("got: %s", tx.TxHash)
		t.Logf("exp: %s", tx.Hash())
		t.Fatalf("Should have the hash of the canonical encoding.")
	}

	if tx.Status != database.StatusPending {
		t.Fatalf("Should start as pending, got %s", tx.Status)
	}
}
