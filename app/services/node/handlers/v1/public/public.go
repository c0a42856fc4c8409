// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction signs the transfer with the provided key and adds it
// to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nt newTx
	if err := web.Decode(r, &nt); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	amount, err := uint256.FromDecimal(nt.Amount)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid amount: %w", err), http.StatusBadRequest)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(nt.PrivateKey, "0x"))
	if err != nil {
		return errs.NewTrusted(errors.New("invalid private key"), http.StatusBadRequest)
	}

	from, err := database.ToAddress(nt.From)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("from: %w", err), http.StatusBadRequest)
	}

	to, err := database.ToAddress(nt.To)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("to: %w", err), http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from", from, "to", to, "amount", amount.Dec())

	tran, err := h.State.SubmitTransaction(ctx, database.NewTransaction(from, to, amount), privateKey)
	if err != nil {
		if errors.Is(err, state.ErrAddressNotFound) || errors.Is(err, state.ErrInvalidAmount) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return err
	}

	return web.Respond(ctx, w, h.toTx(tran), http.StatusOK)
}

// Mine mines the next block from the transactions in the mempool.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk, err := h.State.MineNewBlock(ctx)
	if err != nil {
		return fmt.Errorf("mining block: %w", err)
	}

	return web.Respond(ctx, w, h.toBlock(blk), http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.RetrieveGenesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mempool := h.State.QueryMempool()

	trans := make([]tx, len(mempool))
	for i, tran := range mempool {
		trans[i] = h.toTx(tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the current balances for all accounts or the
// specified account.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if address := web.Param(r, "account"); address != "" {
		acct, err := h.State.QueryAccount(database.Address(address))
		if err != nil {
			if errors.Is(err, state.ErrAddressNotFound) {
				return errs.NewTrusted(err, http.StatusNotFound)
			}
			return err
		}

		return web.Respond(ctx, w, h.toAccount(acct), http.StatusOK)
	}

	accts, err := h.State.QueryAccounts()
	if err != nil {
		return err
	}

	resp := make([]account, len(accts))
	for i, acct := range accts {
		resp[i] = h.toAccount(acct)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// NewAccount creates a new zero balance account and hands back its key.
func (h Handlers) NewAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct, privateKey, err := h.State.NewAccount(ctx)
	if err != nil {
		return err
	}

	resp := newAccount{
		Account:    h.toAccount(acct),
		PrivateKey: privateKey,
	}

	return web.Respond(ctx, w, resp, http.StatusCreated)
}

// Coinbase returns the account that receives the mining reward.
func (h Handlers) Coinbase(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct, err := h.State.RetrieveBeneficiary()
	if err != nil {
		if errors.Is(err, state.ErrAddressNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, h.toAccount(acct), http.StatusOK)
}

// LatestBlock returns the most recently mined block.
func (h Handlers) LatestBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blk, err := h.State.RetrieveLatestBlock()
	if err != nil {
		return err
	}

	if blk == nil {
		return errs.NewTrusted(errors.New("no blocks have been mined"), http.StatusNotFound)
	}

	return web.Respond(ctx, w, h.toBlock(*blk), http.StatusOK)
}

// BlockByNumber returns the block with the specified number.
func (h Handlers) BlockByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	num, err := strconv.ParseUint(web.Param(r, "number"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid block number: %w", err), http.StatusBadRequest)
	}

	blk, err := h.State.QueryBlock(num)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errs.NewTrusted(fmt.Errorf("block %d not found", num), http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, h.toBlock(blk), http.StatusOK)
}
