package database

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Set of messages recorded on a transaction that failed to apply.
const (
	MsgInvalidSignature    = "invalid signature"
	MsgInsufficientBalance = "insufficient balance"
	MsgAddressNotFound     = "address not found"
	MsgBalanceOverflow     = "balance overflow"
)

// EncodingVersion is the version of the canonical transaction encoding. It
// is the first field of every encoded transaction.
const EncodingVersion = 1

// =============================================================================

// Status represents the outcome of applying a transaction to the ledger.
type Status string

// Set of possible transaction states.
const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
)

// =============================================================================

// Transaction is the transactional information between two parties. A
// transaction without a sender is a coinbase transaction that mints value
// into the recipient's account.
type Transaction struct {
	Sender       *Address     `json:"sender,omitempty"`
	Recipient    Address      `json:"recipient"`
	Amount       *uint256.Int `json:"amount"`
	TimeStamp    uint64       `json:"timestamp"`
	PublicKey    []byte       `json:"public_key,omitempty"`
	TxHash       string       `json:"tx_hash,omitempty"`
	Sign         []byte       `json:"sign,omitempty"`
	Status       Status       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// NewTransaction constructs a pending transfer between two accounts.
func NewTransaction(sender Address, recipient Address, amount *uint256.Int) Transaction {
	return Transaction{
		Sender:    &sender,
		Recipient: recipient,
		Amount:    amount,
		Status:    StatusPending,
	}
}

// NewCoinbase constructs a transaction that mints the amount into the
// recipient's account. Only the mining process creates these.
func NewCoinbase(recipient Address, amount *uint256.Int) Transaction {
	tx := Transaction{
		Recipient: recipient,
		Amount:    new(uint256.Int).Set(amount),
		TimeStamp: uint64(time.Now().UTC().UnixMilli()),
		Status:    StatusPending,
	}
	tx.TxHash = tx.Hash()

	return tx
}

// IsCoinbase reports whether the transaction mints new value.
func (tx Transaction) IsCoinbase() bool {
	return tx.Sender == nil
}

// Hash returns the hash of the canonical encoding of the transaction.
func (tx Transaction) Hash() string {
	data, err := Encode(tx)
	if err != nil {
		return signature.ZeroHash
	}

	return signature.Hash(data)
}

// Fail marks the transaction as failed with the specified message.
func (tx *Transaction) Fail(msg string) {
	tx.Status = StatusFail
	tx.ErrorMessage = msg
}

// Succeed marks the transaction as applied.
func (tx *Transaction) Succeed() {
	tx.Status = StatusSuccess
	tx.ErrorMessage = ""
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	from := "coinbase"
	if tx.Sender != nil {
		from = string(*tx.Sender)
	}

	amount := "0"
	if tx.Amount != nil {
		amount = tx.Amount.Dec()
	}

	return fmt.Sprintf("%s->%s:%s", from, tx.Recipient, amount)
}

// =============================================================================

// canonicalTx is the RLP layout of a transaction for hashing and signing.
// Field order is part of the encoding and must never change within a
// version.
type canonicalTx struct {
	Version   uint
	Coinbase  bool
	Sender    [20]byte
	Recipient [20]byte
	Amount    *big.Int
	TimeStamp uint64
	PublicKey []byte
}

// Encode returns the canonical byte representation of the transaction. The
// hash, signature, status and error message are not part of the encoding.
// The same encoding is used for the transaction hash and the signature.
func Encode(tx Transaction) ([]byte, error) {
	ct := canonicalTx{
		Version:   EncodingVersion,
		Coinbase:  tx.Sender == nil,
		Recipient: tx.Recipient.raw(),
		Amount:    new(big.Int),
		TimeStamp: tx.TimeStamp,
		PublicKey: tx.PublicKey,
	}

	if tx.Sender != nil {
		ct.Sender = tx.Sender.raw()
	}

	if tx.Amount != nil {
		ct.Amount = tx.Amount.ToBig()
	}

	return rlp.EncodeToBytes(ct)
}
