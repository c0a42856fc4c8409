package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// probeTimeout bounds how long a candidate node has to answer a ping.
const probeTimeout = 5 * time.Second

// StatusOK is the status a healthy node reports from its ping endpoint.
const StatusOK = "ok"

// PingResponse is the document returned by a node's ping endpoint.
type PingResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
}

// Registry admits peers to the set only after they answer a liveness probe.
type Registry struct {
	peers  *PeerSet
	client *http.Client
}

// NewRegistry constructs a registry on top of the peer set.
func NewRegistry(peers *PeerSet) *Registry {
	return &Registry{
		peers:  peers,
		client: &http.Client{Timeout: probeTimeout},
	}
}

// AddNode probes the host and adds it to the set when it reports itself
// healthy. Any failure to reach the host or an unhealthy answer returns
// false.
func (r *Registry) AddNode(ctx context.Context, host string) bool {
	if host == "" {
		return false
	}

	if err := r.ping(ctx, host); err != nil {
		return false
	}

	r.peers.Add(New(host))

	return true
}

// Copy returns the known peers leaving out the specified host.
func (r *Registry) Copy(host string) []Peer {
	return r.peers.Copy(host)
}

// ping calls the node's ping endpoint and validates the answer.
func (r *Registry) ping(ctx context.Context, host string) error {
	url := fmt.Sprintf("http://%s/v1/node/ping", host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	var pr PingResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fmt.Errorf("decoding ping: %w", err)
	}

	if pr.Status != StatusOK {
		return fmt.Errorf("node reported status %q", pr.Status)
	}

	return nil
}
