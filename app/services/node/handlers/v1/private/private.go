// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// Ping reports this node is up and able to take requests.
func (h Handlers) Ping(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := peer.PingResponse{
		Code:   http.StatusOK,
		Status: peer.StatusOK,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// AddNode probes the specified host and adds it to the known peers.
func (h Handlers) AddNode(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var node struct {
		Host string `json:"host" validate:"required,hostname_port"`
	}
	if err := web.Decode(r, &node); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("add node", "traceid", v.TraceID, "host", node.Host)

	if !h.State.AddNode(ctx, node.Host) {
		return errs.NewTrusted(errors.New("node did not respond to ping"), http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "node added",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Peers returns the set of known peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveKnownPeers(), http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest, err := h.State.RetrieveLatestBlock()
	if err != nil {
		return err
	}

	status := struct {
		LatestBlockHash   string      `json:"latest_block_hash"`
		LatestBlockNumber uint64      `json:"latest_block_number"`
		Mempool           int         `json:"mempool"`
		KnownPeers        []peer.Peer `json:"known_peers"`
	}{
		Mempool:    h.State.QueryMempoolLength(),
		KnownPeers: h.State.RetrieveKnownPeers(),
	}

	if latest != nil {
		status.LatestBlockHash = latest.Hash
		status.LatestBlockNumber = latest.Header.Number
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
