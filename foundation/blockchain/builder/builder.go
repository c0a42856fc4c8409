// Package builder constructs the next block skeleton for the ledger by
// solving a proof of work puzzle over the block header.
package builder

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// MaxDifficulty is the largest number of leading zeros a block hash can be
// asked to solve for.
const MaxDifficulty = 16

// ErrInvalidDifficulty is returned when the configured difficulty can't be
// solved for.
var ErrInvalidDifficulty = errors.New("invalid difficulty")

// =============================================================================

// Config represents the configuration required to build blocks.
type Config struct {
	BeneficiaryID database.Address
	Difficulty    uint16
	EvHandler     func(v string, args ...any)
}

// POW builds new block skeletons by performing proof of work.
type POW struct {
	beneficiaryID database.Address
	difficulty    uint16
	evHandler     func(v string, args ...any)
}

// NewPOW constructs a proof of work block builder.
func NewPOW(cfg Config) (*POW, error) {
	if cfg.Difficulty > MaxDifficulty {
		return nil, ErrInvalidDifficulty
	}

	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	pow := POW{
		beneficiaryID: cfg.BeneficiaryID,
		difficulty:    cfg.Difficulty,
		evHandler:     ev,
	}

	return &pow, nil
}

// NewBlock constructs a new block with an empty body that links to the
// previous block, then performs the work to find a nonce that solves the
// cryptographic POW puzzle. A nil previous block produces the first block of
// the chain. The work can be cancelled through the context.
func (p *POW) NewBlock(ctx context.Context, prevBlock *database.Block) (database.Block, error) {

	// When mining the first block, the previous block's hash will be zero.
	prevBlockHash := signature.ZeroHash
	var number uint64 = 1
	if prevBlock != nil {
		prevBlockHash = prevBlock.Hash
		number = prevBlock.Header.Number + 1
	}

	nb := database.Block{
		Header: database.BlockHeader{
			Number:        number,
			PrevBlockHash: prevBlockHash,
			TimeStamp:     uint64(time.Now().UTC().UnixMilli()),
			BeneficiaryID: p.beneficiaryID,
			Difficulty:    p.difficulty,
			Nonce:         0, // Will be identified by the POW algorithm.
		},
		Transactions: []database.Transaction{},
	}

	if err := p.performPOW(ctx, &nb); err != nil {
		return database.Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for the specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (p *POW) performPOW(ctx context.Context, b *database.Block) error {
	p.evHandler("builder: performPOW: MINING: started: blk[%d]", b.Header.Number)
	defer p.evHandler("builder: performPOW: MINING: completed: blk[%d]", b.Header.Number)

	// Choose a random starting point for the nonce. After this, the nonce
	// will be incremented by 1 until a solution is found.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return err
	}
	b.Header.Nonce = nBig.Uint64()

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			p.evHandler("builder: performPOW: MINING: attempts[%d]", attempts)
		}

		if err := ctx.Err(); err != nil {
			p.evHandler("builder: performPOW: MINING: CANCELLED")
			return err
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.HeaderHash()
		if !IsHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		p.evHandler("builder: performPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, hash, attempts)
		b.Hash = hash

		return nil
	}
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0's.
func IsHashSolved(difficulty uint16, hash string) bool {
	hash = strings.TrimPrefix(hash, "0x")
	if len(hash) != 64 || int(difficulty) > MaxDifficulty {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}
