package peer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/peer"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host3"}, {Host: "host1"}, {Host: "host2"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer)
			}

			if ps.Add(tst.peers[0]) {
				t.Fatalf("Test %s:\tShould not add a known peer twice.", tst.name)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			if peers[0].Host != "host1" || peers[2].Host != "host3" {
				t.Fatalf("Test %s:\tShould get back the peers ordered by host.", tst.name)
			}

			peers = ps.Copy("host2")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			ps.Remove(peer.New("host1"))
			if len(ps.Copy("")) != len(tst.peers)-1 {
				t.Fatalf("Test %s:\tShould be able to remove a peer.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_AddNode(t *testing.T) {
	type table struct {
		name    string
		handler http.HandlerFunc
		added   bool
	}

	tt := []table{
		{
			name: "healthy",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code":200,"status":"ok"}`))
			},
			added: true,
		},
		{
			name: "unhealthy",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code":200,"status":"syncing"}`))
			},
		},
		{
			name: "error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "garbage",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
	}

	t.Log("Given the need to admit only healthy nodes.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen probing a %s node.", testID, tst.name)
			{
				f := func(t *testing.T) {
					mux := http.NewServeMux()
					mux.HandleFunc("/v1/node/ping", tst.handler)

					srv := httptest.NewServer(mux)
					defer srv.Close()

					host := strings.TrimPrefix(srv.URL, "http://")
					reg := peer.NewRegistry(peer.NewPeerSet())

					if added := reg.AddNode(context.Background(), host); added != tst.added {
						t.Fatalf("\t%s\tTest %d:\tShould get added[%t], got[%t].", failed, testID, tst.added, added)
					}
					t.Logf("\t%s\tTest %d:\tShould get added[%t].", success, testID, tst.added)

					exp := 0
					if tst.added {
						exp = 1
					}
					if n := len(reg.Copy("")); n != exp {
						t.Fatalf("\t%s\tTest %d:\tShould have %d known peers, got %d.", failed, testID, exp, n)
					}
					t.Logf("\t%s\tTest %d:\tShould have %d known peers.", success, testID, exp)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_AddNodeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	reg := peer.NewRegistry(peer.NewPeerSet())
	if reg.AddNode(context.Background(), host) {
		t.Fatalf("Should not add a node that can't be reached.")
	}

	if reg.AddNode(context.Background(), "") {
		t.Fatalf("Should not add an empty host.")
	}
}
