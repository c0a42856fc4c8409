package state_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/builder"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Set of keys used by the tests.
const (
	keyA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	keyB = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	keyC = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

func ifErrFailNow(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func mustKey(t *testing.T, hex string) *ecdsa.PrivateKey {
	t.Helper()
	pk, err := crypto.HexToECDSA(hex)
	ifErrFailNow(t, err)
	return pk
}

func address(pk *ecdsa.PrivateKey) database.Address {
	return database.PublicKeyToAddress(pk.PublicKey)
}

// founder builds a genesis account for the key.
func founder(pk *ecdsa.PrivateKey, balance uint64) genesis.Account {
	return genesis.Account{
		PublicKey: hexutil.Encode(crypto.FromECDSAPub(&pk.PublicKey)),
		Balance:   uint256.NewInt(balance),
	}
}

// newState constructs a ledger where A holds 100 and B holds 0.
func newState(t *testing.T, cfg state.Config) *state.State {
	t.Helper()

	if cfg.Storage == nil {
		cfg.Storage = memory.New()
	}

	if cfg.Builder == nil {
		pow, err := builder.NewPOW(builder.Config{Difficulty: 1})
		ifErrFailNow(t, err)
		cfg.Builder = pow
	}

	if cfg.Genesis.Accounts == nil {
		cfg.Genesis.Accounts = []genesis.Account{
			founder(mustKey(t, keyA), 100),
			founder(mustKey(t, keyB), 0),
		}
	}

	st, err := state.New(cfg)
	ifErrFailNow(t, err)

	return st
}

func balance(t *testing.T, st *state.State, address database.Address) uint64 {
	t.Helper()
	account, err := st.QueryAccount(address)
	ifErrFailNow(t, err)
	return account.Balance.Uint64()
}

func total(t *testing.T, st *state.State) uint64 {
	t.Helper()
	accounts, err := st.QueryAccounts()
	ifErrFailNow(t, err)

	var sum uint64
	for _, account := range accounts {
		sum += account.Balance.Uint64()
	}
	return sum
}

// =============================================================================

func Test_Transfer(t *testing.T) {
	pkA, pkB := mustKey(t, keyA), mustKey(t, keyB)

	type table struct {
		name   string
		amount uint64
		balA   uint64
		balB   uint64
		status database.Status
		errMsg string
	}

	tt := []table{
		{name: "funded", amount: 30, balA: 70, balB: 30, status: database.StatusSuccess},
		{name: "exact", amount: 100, balA: 0, balB: 100, status: database.StatusSuccess},
		{name: "overdrawn", amount: 150, balA: 100, balB: 0, status: database.StatusFail, errMsg: database.MsgInsufficientBalance},
	}

	t.Log("Given the need to move value between two accounts.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen sending %d from A with 100 to B with 0.", testID, tst.amount)
			{
				f := func(t *testing.T) {
					st := newState(t, state.Config{})

					tx := database.NewTransaction(address(pkA), address(pkB), uint256.NewInt(tst.amount))
					submitted, err := st.SubmitTransaction(context.Background(), tx, pkA)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to submit the transaction: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to submit the transaction.", success, testID)

					if submitted.Status != database.StatusPending || submitted.TxHash == "" || len(submitted.Sign) != 65 {
						t.Fatalf("\t%s\tTest %d:\tShould get back a signed pending transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back a signed pending transaction.", success, testID)

					block, err := st.MineNewBlock(context.Background())
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to mine a block: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to mine a block.", success, testID)

					if len(block.Transactions) != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould have one transaction in the block, got %d.", failed, testID, len(block.Transactions))
					}

					got := block.Transactions[0]
					if got.Status != tst.status || got.ErrorMessage != tst.errMsg {
						t.Logf("\t%s\tTest %d:\tgot: %s %q", failed, testID, got.Status, got.ErrorMessage)
						t.Logf("\t%s\tTest %d:\texp: %s %q", failed, testID, tst.status, tst.errMsg)
						t.Fatalf("\t%s\tTest %d:\tShould record the outcome.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould record the outcome.", success, testID)

					if got.TxHash != submitted.TxHash {
						t.Fatalf("\t%s\tTest %d:\tShould keep the transaction hash.", failed, testID)
					}

					balA, balB := balance(t, st, address(pkA)), balance(t, st, address(pkB))
					if balA != tst.balA || balB != tst.balB {
						t.Logf("\t%s\tTest %d:\tgot: A=%d B=%d", failed, testID, balA, balB)
						t.Logf("\t%s\tTest %d:\texp: A=%d B=%d", failed, testID, tst.balA, tst.balB)
						t.Fatalf("\t%s\tTest %d:\tShould have the right balances.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould have the right balances.", success, testID)

					if sum := total(t, st); sum != 100 {
						t.Fatalf("\t%s\tTest %d:\tShould conserve value, got %d.", failed, testID, sum)
					}
					t.Logf("\t%s\tTest %d:\tShould conserve value.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_DoubleSpend(t *testing.T) {
	pkA, pkB := mustKey(t, keyA), mustKey(t, keyB)
	st := newState(t, state.Config{})

	for range 2 {
		tx := database.NewTransaction(address(pkA), address(pkB), uint256.NewInt(60))
		_, err := st.SubmitTransaction(context.Background(), tx, pkA)
		ifErrFailNow(t, err)
	}

	block, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	if block.Transactions[0].Status != database.StatusSuccess {
		t.Fatalf("Should apply the first transfer.")
	}

	if block.Transactions[1].Status != database.StatusFail || block.Transactions[1].ErrorMessage != database.MsgInsufficientBalance {
		t.Fatalf("Should reject the second transfer, got %s %q.", block.Transactions[1].Status, block.Transactions[1].ErrorMessage)
	}

	if balance(t, st, address(pkA)) != 40 || balance(t, st, address(pkB)) != 60 {
		t.Fatalf("Should only spend the balance once.")
	}
}

func Test_SelfTransfer(t *testing.T) {
	pkA := mustKey(t, keyA)
	st := newState(t, state.Config{})

	tx := database.NewTransaction(address(pkA), address(pkA), uint256.NewInt(40))
	_, err := st.SubmitTransaction(context.Background(), tx, pkA)
	ifErrFailNow(t, err)

	block, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	if block.Transactions[0].Status != database.StatusSuccess {
		t.Fatalf("Should apply a transfer to yourself.")
	}

	if balance(t, st, address(pkA)) != 100 {
		t.Fatalf("Should leave the balance unchanged.")
	}
}

func Test_WrongKey(t *testing.T) {
	pkA, pkB := mustKey(t, keyA), mustKey(t, keyB)
	st := newState(t, state.Config{})

	// B signs a transfer out of A's account.
	tx := database.NewTransaction(address(pkA), address(pkB), uint256.NewInt(30))
	_, err := st.SubmitTransaction(context.Background(), tx, pkB)
	ifErrFailNow(t, err)

	block, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	got := block.Transactions[0]
	if got.Status != database.StatusFail || got.ErrorMessage != database.MsgInvalidSignature {
		t.Fatalf("Should fail the signature check, got %s %q.", got.Status, got.ErrorMessage)
	}

	if balance(t, st, address(pkA)) != 100 || balance(t, st, address(pkB)) != 0 {
		t.Fatalf("Should leave the ledger untouched.")
	}
}

func Test_Coinbase(t *testing.T) {
	pkC := mustKey(t, keyC)

	st := newState(t, state.Config{
		Beneficiary: &pkC.PublicKey,
		Genesis: genesis.Genesis{
			MiningReward: uint256.NewInt(50),
			Accounts:     []genesis.Account{founder(mustKey(t, keyA), 100)},
		},
	})

	t.Log("Given the need to reward the beneficiary.")
	{
		t.Logf("\tTest 0:\tWhen mining with a reward of 50 to C.")
		{
			if balance(t, st, address(pkC)) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould start the beneficiary at zero.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould start the beneficiary at zero.", success)

			block, err := st.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to mine a block: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine a block.", success)

			if len(block.Transactions) != 1 || !block.Transactions[0].IsCoinbase() || block.Transactions[0].Status != database.StatusSuccess {
				t.Fatalf("\t%s\tTest 0:\tShould apply a coinbase transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould apply a coinbase transaction.", success)

			if bal := balance(t, st, address(pkC)); bal != 50 {
				t.Fatalf("\t%s\tTest 0:\tShould credit 50 to C, got %d.", failed, bal)
			}
			t.Logf("\t%s\tTest 0:\tShould credit 50 to C.", success)

			if sum := total(t, st); sum != 150 {
				t.Fatalf("\t%s\tTest 0:\tShould only mint the reward, got %d.", failed, sum)
			}
			t.Logf("\t%s\tTest 0:\tShould only mint the reward.", success)

			beneficiary, err := st.RetrieveBeneficiary()
			if err != nil || beneficiary.Address != address(pkC) {
				t.Fatalf("\t%s\tTest 0:\tShould retrieve the beneficiary.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould retrieve the beneficiary.", success)
		}
	}
}

func Test_EmptyBlock(t *testing.T) {
	st := newState(t, state.Config{})

	block, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	if len(block.Transactions) != 0 {
		t.Fatalf("Should mine a block with no transactions.")
	}

	if block.Header.Number != 1 || block.Header.PrevBlockHash != signature.ZeroHash {
		t.Fatalf("Should mine the first block of the chain.")
	}

	latest, err := st.RetrieveLatestBlock()
	ifErrFailNow(t, err)

	if latest == nil || latest.Hash != block.Hash {
		t.Fatalf("Should persist the empty block.")
	}

	if _, err := st.RetrieveBeneficiary(); !errors.Is(err, state.ErrAddressNotFound) {
		t.Fatalf("Should not have a beneficiary, got %v", err)
	}
}

func Test_SubmitRejected(t *testing.T) {
	pkA, pkB, pkC := mustKey(t, keyA), mustKey(t, keyB), mustKey(t, keyC)

	type table struct {
		name string
		tx   database.Transaction
		err  error
	}

	tt := []table{
		{name: "unknown-recipient", tx: database.NewTransaction(address(pkA), address(pkC), uint256.NewInt(1)), err: state.ErrAddressNotFound},
		{name: "unknown-sender", tx: database.NewTransaction(address(pkC), address(pkA), uint256.NewInt(1)), err: state.ErrAddressNotFound},
		{name: "bad-address", tx: database.NewTransaction("0x1234", address(pkB), uint256.NewInt(1)), err: state.ErrAddressNotFound},
		{name: "coinbase", tx: database.Transaction{Recipient: address(pkB), Amount: uint256.NewInt(1)}, err: state.ErrAddressNotFound},
		{name: "zero-amount", tx: database.NewTransaction(address(pkA), address(pkB), uint256.NewInt(0)), err: state.ErrInvalidAmount},
		{name: "nil-amount", tx: database.NewTransaction(address(pkA), address(pkB), nil), err: state.ErrInvalidAmount},
	}

	t.Log("Given the need to reject bad submissions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen submitting a %s transaction.", testID, tst.name)
			{
				f := func(t *testing.T) {
					st := newState(t, state.Config{})

					if _, err := st.SubmitTransaction(context.Background(), tst.tx, pkA); !errors.Is(err, tst.err) {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
						t.Fatalf("\t%s\tTest %d:\tShould reject the transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reject the transaction.", success, testID)

					if n := st.QueryMempoolLength(); n != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould leave the mempool unchanged, got %d.", failed, testID, n)
					}
					t.Logf("\t%s\tTest %d:\tShould leave the mempool unchanged.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_LowercaseAddress(t *testing.T) {
	pkA, pkB := mustKey(t, keyA), mustKey(t, keyB)
	st := newState(t, state.Config{})

	lowerB := database.Address(strings.ToLower(string(address(pkB))))

	tx := database.NewTransaction(address(pkA), lowerB, uint256.NewInt(10))
	submitted, err := st.SubmitTransaction(context.Background(), tx, pkA)
	ifErrFailNow(t, err)

	if submitted.Recipient != address(pkB) {
		t.Fatalf("Should normalize the recipient address, got %s.", submitted.Recipient)
	}

	_, err = st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	if balance(t, st, address(pkB)) != 10 {
		t.Fatalf("Should credit the normalized account.")
	}
}

func Test_ConcurrentMining(t *testing.T) {
	pkA, pkB, pkC := mustKey(t, keyA), mustKey(t, keyB), mustKey(t, keyC)

	st := newState(t, state.Config{
		Beneficiary: &pkC.PublicKey,
		Genesis: genesis.Genesis{
			MiningReward: uint256.NewInt(5),
			Accounts: []genesis.Account{
				founder(pkA, 1000),
				founder(pkB, 1000),
			},
		},
	})

	const miners = 4
	const blocksPerMiner = 5
	const submits = 50

	var wg sync.WaitGroup
	wg.Add(miners + 2)

	send := func(from, to *ecdsa.PrivateKey) {
		defer wg.Done()
		for range submits {
			tx := database.NewTransaction(address(from), address(to), uint256.NewInt(7))
			if _, err := st.SubmitTransaction(context.Background(), tx, from); err != nil {
				t.Error(err)
				return
			}
		}
	}
	go send(pkA, pkB)
	go send(pkB, pkA)

	for range miners {
		go func() {
			defer wg.Done()
			for range blocksPerMiner {
				if _, err := st.MineNewBlock(context.Background()); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}

	wg.Wait()

	// Sweep anything submitted after the last block.
	_, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	const blocks = miners*blocksPerMiner + 1

	var mined int
	prevHash := signature.ZeroHash
	for num := uint64(1); num <= blocks; num++ {
		block, err := st.QueryBlock(num)
		ifErrFailNow(t, err)

		if block.Header.PrevBlockHash != prevHash {
			t.Fatalf("Should link block %d to its predecessor.", num)
		}
		prevHash = block.Hash

		for _, tx := range block.Transactions {
			if !tx.IsCoinbase() {
				mined++
			}
		}
	}

	if mined != 2*submits {
		t.Fatalf("Should mine every submitted transaction exactly once, got %d.", mined)
	}

	if sum := total(t, st); sum != 2000+blocks*5 {
		t.Fatalf("Should conserve value plus rewards, got %d.", sum)
	}
}

// =============================================================================

type failingBuilder struct{}

func (failingBuilder) NewBlock(ctx context.Context, prevBlock *database.Block) (database.Block, error) {
	return database.Block{}, errors.New("no work")
}

type failingStorage struct {
	*memory.Memory
}

func (failingStorage) PutBlock(block database.Block) error {
	return errors.New("disk full")
}

// accountFailStorage fails every batched account write that touches the
// address.
type accountFailStorage struct {
	*memory.Memory
	address database.Address
}

func (s accountFailStorage) PutAccounts(accounts ...database.Account) error {
	for _, account := range accounts {
		if account.Address == s.address {
			return errors.New("disk full")
		}
	}
	return s.Memory.PutAccounts(accounts...)
}

func Test_MineFailures(t *testing.T) {
	pkA, pkB := mustKey(t, keyA), mustKey(t, keyB)

	t.Run("builder", func(t *testing.T) {
		st := newState(t, state.Config{Builder: failingBuilder{}})

		tx := database.NewTransaction(address(pkA), address(pkB), uint256.NewInt(30))
		_, err := st.SubmitTransaction(context.Background(), tx, pkA)
		ifErrFailNow(t, err)

		if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrBuilder) {
			t.Fatalf("Should return a builder error, got %v", err)
		}

		if balance(t, st, address(pkA)) != 100 {
			t.Fatalf("Should leave the ledger untouched.")
		}
	})

	t.Run("persistence", func(t *testing.T) {
		st := newState(t, state.Config{Storage: failingStorage{Memory: memory.New()}})

		tx := database.NewTransaction(address(pkA), address(pkB), uint256.NewInt(30))
		_, err := st.SubmitTransaction(context.Background(), tx, pkA)
		ifErrFailNow(t, err)

		if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrPersistence) {
			t.Fatalf("Should return a persistence error, got %v", err)
		}

		if st.QueryMempoolLength() != 0 {
			t.Fatalf("Should not return drained transactions to the mempool.")
		}

		// Balances were applied before the block write failed. They stay
		// applied and still add up to the same total.
		if balance(t, st, address(pkA)) != 70 || balance(t, st, address(pkB)) != 30 {
			t.Fatalf("Should keep the applied balances, got A=%d B=%d.", balance(t, st, address(pkA)), balance(t, st, address(pkB)))
		}

		if total(t, st) != 100 {
			t.Fatalf("Should conserve the total, got %d.", total(t, st))
		}
	})

	t.Run("transfer", func(t *testing.T) {
		strg := accountFailStorage{Memory: memory.New(), address: address(pkB)}
		st := newState(t, state.Config{Storage: strg})

		tx := database.NewTransaction(address(pkA), address(pkB), uint256.NewInt(30))
		_, err := st.SubmitTransaction(context.Background(), tx, pkA)
		ifErrFailNow(t, err)

		if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrPersistence) {
			t.Fatalf("Should return a persistence error, got %v", err)
		}

		if balance(t, st, address(pkA)) != 100 || balance(t, st, address(pkB)) != 0 {
			t.Fatalf("Should not debit the sender when the recipient can't be credited, got A=%d B=%d.", balance(t, st, address(pkA)), balance(t, st, address(pkB)))
		}

		if total(t, st) != 100 {
			t.Fatalf("Should conserve the total, got %d.", total(t, st))
		}

		if last, err := st.RetrieveLatestBlock(); err != nil || last != nil {
			t.Fatalf("Should not commit a block, got %v %v.", last, err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		pow, err := builder.NewPOW(builder.Config{Difficulty: builder.MaxDifficulty})
		ifErrFailNow(t, err)

		st := newState(t, state.Config{Builder: pow})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := st.MineNewBlock(ctx); !errors.Is(err, state.ErrBuilder) || !errors.Is(err, context.Canceled) {
			t.Fatalf("Should stop building when cancelled, got %v", err)
		}
	})
}

func Test_NewAccount(t *testing.T) {
	st := newState(t, state.Config{})

	account, privateKey, err := st.NewAccount(context.Background())
	ifErrFailNow(t, err)

	pk, err := crypto.HexToECDSA(privateKey[2:])
	ifErrFailNow(t, err)

	if address(pk) != account.Address {
		t.Fatalf("Should return the key for the new account.")
	}

	if balance(t, st, account.Address) != 0 {
		t.Fatalf("Should store the account with a zero balance.")
	}

	accounts, err := st.QueryAccounts()
	ifErrFailNow(t, err)

	if len(accounts) != 3 {
		t.Fatalf("Should list every account, got %d.", len(accounts))
	}
}

func Test_QueryBlock(t *testing.T) {
	st := newState(t, state.Config{})

	block, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	got, err := st.QueryBlock(block.Header.Number)
	ifErrFailNow(t, err)

	if got.Hash != block.Hash {
		t.Fatalf("Should read back the mined block.")
	}

	if _, err := st.QueryBlock(block.Header.Number + 1); !errors.Is(err, database.ErrNotFound) || errors.Is(err, state.ErrPersistence) {
		t.Fatalf("Should report an unknown block as not found, got %v", err)
	}
}
