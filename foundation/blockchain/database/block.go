package database

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64  `json:"number"`          // Ethereum: Block number in the chain.
	PrevBlockHash string  `json:"prev_block_hash"` // Bitcoin: Hash of the previous block in the chain.
	TimeStamp     uint64  `json:"timestamp"`       // Bitcoin: Time the block was mined.
	BeneficiaryID Address `json:"beneficiary"`     // Ethereum: The account who is receiving the mining reward.
	Difficulty    uint16  `json:"difficulty"`      // Ethereum: Number of 0's needed to solve the hash solution.
	Nonce         uint64  `json:"nonce"`           // Bitcoin: Value identified to solve the hash solution.
}

// Block represents a group of transactions batched together.
type Block struct {
	Hash         string        `json:"hash"`
	Header       BlockHeader   `json:"header"`
	Transactions []Transaction `json:"transactions"`
}

// HeaderHash returns the unique hash for the block header.
//
// Only the header is hashed, not the transactions, so the chain of blocks can
// be checked by only needing block headers.
func (b Block) HeaderHash() string {
	return signature.HashValue(b.Header)
}

// Clone returns a copy of the block with its own transaction slice.
func (b Block) Clone() Block {
	trans := make([]Transaction, len(b.Transactions))
	copy(trans, b.Transactions)

	return Block{
		Hash:         b.Hash,
		Header:       b.Header,
		Transactions: trans,
	}
}
