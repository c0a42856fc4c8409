package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// newTx is the document a wallet submits to move value. The private key
// signs the transaction on the node and is never stored.
type newTx struct {
	From       string `json:"from" validate:"required,eth_addr"`
	To         string `json:"to" validate:"required,eth_addr"`
	Amount     string `json:"amount" validate:"required,number"`
	PrivateKey string `json:"private_key" validate:"required"`
}

type tx struct {
	TxHash       string           `json:"tx_hash"`
	From         database.Address `json:"from,omitempty"`
	FromName     string           `json:"from_name,omitempty"`
	To           database.Address `json:"to"`
	ToName       string           `json:"to_name"`
	Amount       string           `json:"amount"`
	TimeStamp    uint64           `json:"timestamp"`
	Coinbase     bool             `json:"coinbase"`
	Status       database.Status  `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
	Sig          string           `json:"sig,omitempty"`
}

type account struct {
	Address   database.Address `json:"address"`
	Name      string           `json:"name"`
	PublicKey string           `json:"public_key,omitempty"`
	Balance   string           `json:"balance"`
}

type newAccount struct {
	Account    account `json:"account"`
	PrivateKey string  `json:"private_key"`
}

type block struct {
	Number        uint64           `json:"number"`
	Hash          string           `json:"hash"`
	PrevBlockHash string           `json:"prev_block_hash"`
	TimeStamp     uint64           `json:"timestamp"`
	BeneficiaryID database.Address `json:"beneficiary"`
	Difficulty    uint16           `json:"difficulty"`
	Nonce         uint64           `json:"nonce"`
	Transactions  []tx             `json:"transactions"`
}

// =============================================================================

func (h Handlers) toTx(tran database.Transaction) tx {
	t := tx{
		TxHash:       tran.TxHash,
		To:           tran.Recipient,
		ToName:       h.NS.Lookup(tran.Recipient),
		Amount:       "0",
		TimeStamp:    tran.TimeStamp,
		Coinbase:     tran.IsCoinbase(),
		Status:       tran.Status,
		ErrorMessage: tran.ErrorMessage,
	}

	if tran.Sender != nil {
		t.From = *tran.Sender
		t.FromName = h.NS.Lookup(*tran.Sender)
	}

	if tran.Amount != nil {
		t.Amount = tran.Amount.Dec()
	}

	if len(tran.Sign) > 0 {
		t.Sig = signature.SignatureString(tran.Sign)
	}

	return t
}

func (h Handlers) toAccount(acct database.Account) account {
	a := account{
		Address: acct.Address,
		Name:    h.NS.Lookup(acct.Address),
		Balance: "0",
	}

	if len(acct.PublicKey) > 0 {
		a.PublicKey = hexutil.Encode(acct.PublicKey)
	}

	if acct.Balance != nil {
		a.Balance = acct.Balance.Dec()
	}

	return a
}

func (h Handlers) toBlock(blk database.Block) block {
	trans := make([]tx, len(blk.Transactions))
	for i, tran := range blk.Transactions {
		trans[i] = h.toTx(tran)
	}

	return block{
		Number:        blk.Header.Number,
		Hash:          blk.Hash,
		PrevBlockHash: blk.Header.PrevBlockHash,
		TimeStamp:     blk.Header.TimeStamp,
		BeneficiaryID: blk.Header.BeneficiaryID,
		Difficulty:    blk.Header.Difficulty,
		Nonce:         blk.Header.Nonce,
		Transactions:  trans,
	}
}
