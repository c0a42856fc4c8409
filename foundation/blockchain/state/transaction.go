package state

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// SubmitTransaction accepts a transfer from a wallet for inclusion in the
// next block. The sender's stored public key is placed on the transaction
// before it is hashed and signed with the private key. Balances are not
// checked until the transaction is applied by a mining operation.
func (s *State) SubmitTransaction(ctx context.Context, tx database.Transaction, privateKey *ecdsa.PrivateKey) (database.Transaction, error) {
	if tx.Sender == nil {
		return database.Transaction{}, fmt.Errorf("%w: sender is required", ErrAddressNotFound)
	}

	if tx.Amount == nil || tx.Amount.IsZero() {
		return database.Transaction{}, ErrInvalidAmount
	}

	if privateKey == nil {
		return database.Transaction{}, fmt.Errorf("private key is required")
	}

	sender, err := s.lookupAccount(*tx.Sender, "sender")
	if err != nil {
		return database.Transaction{}, err
	}

	recipient, err := s.lookupAccount(tx.Recipient, "recipient")
	if err != nil {
		return database.Transaction{}, err
	}

	// The submission context is only honored up to the point the
	// transaction is enqueued.
	if err := ctx.Err(); err != nil {
		return database.Transaction{}, err
	}

	tx.Sender = &sender.Address
	tx.Recipient = recipient.Address
	tx.Amount = tx.Amount.Clone()
	tx.PublicKey = sender.PublicKey
	tx.TimeStamp = uint64(time.Now().UTC().UnixMilli())
	tx.Status = database.StatusPending
	tx.ErrorMessage = ""

	data, err := database.Encode(tx)
	if err != nil {
		return database.Transaction{}, fmt.Errorf("encoding transaction: %w", err)
	}

	sig, err := signature.Sign(data, privateKey)
	if err != nil {
		return database.Transaction{}, fmt.Errorf("signing transaction: %w", err)
	}

	tx.TxHash = signature.Hash(data)
	tx.Sign = sig

	n := s.mempool.Enqueue(tx)
	s.evHandler("state: SubmitTransaction: tx[%s] hash[%s] mempool[%d]", tx, tx.TxHash, n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return tx, nil
}

// lookupAccount returns the stored account for the address. The role is
// used to say which side of the transfer could not be found.
func (s *State) lookupAccount(address database.Address, role string) (database.Account, error) {
	if !address.IsAddress() {
		return database.Account{}, fmt.Errorf("%w: %s %q is not a valid address", ErrAddressNotFound, role, address)
	}

	addr, err := database.ToAddress(string(address))
	if err != nil {
		return database.Account{}, fmt.Errorf("%w: %s: %w", ErrAddressNotFound, role, err)
	}

	account, exists, err := s.storage.GetAccount(addr)
	if err != nil {
		return database.Account{}, fmt.Errorf("%w: reading %s: %w", ErrPersistence, role, err)
	}

	if !exists {
		return database.Account{}, fmt.Errorf("%w: %s %s", ErrAddressNotFound, role, addr)
	}

	return account, nil
}
