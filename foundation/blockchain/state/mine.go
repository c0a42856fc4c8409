package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/holiman/uint256"
)

// MineNewBlock builds the next block, drains the mempool into its body,
// applies every transaction to the ledger and persists the block. The
// whole operation holds the state lock so two mining operations can never
// build on the same previous block or interleave balance changes.
//
// A transaction that can't be applied is marked as failed and stays in the
// block. Only a builder or persistence failure fails the operation, and in
// that case the drained transactions are not returned to the mempool. The
// context is only used to cancel the block builder.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	prevBlock, err := s.storage.LastBlock()
	if err != nil {
		return database.Block{}, fmt.Errorf("%w: reading last block: %w", ErrPersistence, err)
	}

	s.evHandler("state: MineNewBlock: MINING: build block")

	block, err := s.builder.NewBlock(ctx, prevBlock)
	if err != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrBuilder, err)
	}

	trans := s.mempool.DrainAll()
	s.evHandler("state: MineNewBlock: MINING: drained mempool: Txs[%d]", len(trans))

	body := make([]database.Transaction, 0, len(trans)+1)
	if s.hasMiner && !s.miningReward.IsZero() {
		body = append(body, database.NewCoinbase(s.beneficiaryID, s.miningReward))
	}
	body = append(body, trans...)

	for i := range body {
		if err := s.applyTransaction(&body[i]); err != nil {
			return database.Block{}, err
		}
		s.evHandler("state: MineNewBlock: MINING: tx[%s] status[%s] %s", body[i], body[i].Status, body[i].ErrorMessage)
	}
	block.Transactions = body

	s.evHandler("state: MineNewBlock: MINING: persist block[%d]", block.Header.Number)

	if err := s.storage.PutBlock(block); err != nil {
		return database.Block{}, fmt.Errorf("%w: writing block: %w", ErrPersistence, err)
	}

	s.blockEvent(block)

	return block, nil
}

// =============================================================================

// applyTransaction applies the balance changes for a single transaction and
// records the outcome on it. Each transaction is applied independently of
// the others in the block. An error is only returned when the store fails.
func (s *State) applyTransaction(tx *database.Transaction) error {
	if tx.Amount == nil {
		tx.Amount = new(uint256.Int)
	}

	if tx.IsCoinbase() {
		return s.applyCoinbase(tx)
	}

	sender, exists, err := s.storage.GetAccount(*tx.Sender)
	if err != nil {
		return fmt.Errorf("%w: reading sender: %w", ErrPersistence, err)
	}
	if !exists {
		tx.Fail(database.MsgAddressNotFound)
		return nil
	}

	recipient, exists, err := s.storage.GetAccount(tx.Recipient)
	if err != nil {
		return fmt.Errorf("%w: reading recipient: %w", ErrPersistence, err)
	}
	if !exists {
		tx.Fail(database.MsgAddressNotFound)
		return nil
	}

	// Clone so a stored account without a balance reads as zero.
	sender, recipient = sender.Clone(), recipient.Clone()

	// The stored public key is the only one trusted to verify the sender.
	data, err := database.Encode(*tx)
	if err != nil || !signature.Verify(sender.PublicKey, tx.Sign, data) {
		tx.Fail(database.MsgInvalidSignature)
		return nil
	}

	if sender.Balance.Lt(tx.Amount) {
		tx.Fail(database.MsgInsufficientBalance)
		return nil
	}

	// Moving value to yourself leaves the balance where it was.
	if sender.Address == recipient.Address {
		tx.Succeed()
		return nil
	}

	credit, overflow := new(uint256.Int).AddOverflow(recipient.Balance, tx.Amount)
	if overflow {
		tx.Fail(database.MsgBalanceOverflow)
		return nil
	}

	sender.Balance = new(uint256.Int).Sub(sender.Balance, tx.Amount)
	recipient.Balance = credit

	// Both sides of the transfer are written together so a store failure
	// can't leave the sender debited without the recipient credited.
	if err := s.storage.PutAccounts(sender, recipient); err != nil {
		return fmt.Errorf("%w: writing transfer: %w", ErrPersistence, err)
	}

	tx.Succeed()

	return nil
}

// applyCoinbase mints the amount into the recipient's account. An unknown
// recipient gets a new account with no public key.
func (s *State) applyCoinbase(tx *database.Transaction) error {
	if !tx.Recipient.IsAddress() {
		tx.Fail(database.MsgAddressNotFound)
		return nil
	}

	recipient, exists, err := s.storage.GetAccount(tx.Recipient)
	if err != nil {
		return fmt.Errorf("%w: reading recipient: %w", ErrPersistence, err)
	}
	if !exists {
		recipient = database.Account{
			Address: tx.Recipient,
			Balance: new(uint256.Int),
		}
	}

	recipient = recipient.Clone()

	credit, overflow := new(uint256.Int).AddOverflow(recipient.Balance, tx.Amount)
	if overflow {
		tx.Fail(database.MsgBalanceOverflow)
		return nil
	}
	recipient.Balance = credit

	if err := s.storage.PutAccount(recipient); err != nil {
		return fmt.Errorf("%w: writing recipient: %w", ErrPersistence, err)
	}

	tx.Succeed()

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Transactions)
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash, string(blockHeaderJSON), string(blockTransJSON))
}
