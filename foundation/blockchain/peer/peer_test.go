package peer_test

import (
	"testing"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/peer"
)

func Test_CRUD(t *testing.T) {
	type table struct {
		name  string
		peers []peer.Peer
	}

	tt := []table{
		{
			name:  "basic",
			peers: []peer.Peer{{Host: "host1"}, {Host: "host2"}, {Host: "host3"}},
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			ps := peer.NewPeerSet()

			for _, peer := range tst.peers {
				ps.Add(peer)
			}

			peers := ps.Copy("")
			if len(peers) != len(tst.peers) {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers))
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}

			peers = ps.Copy("host2")
			if len(peers) != len(tst.peers)-1 {
				t.Logf("Test %s:\tgot: %d", tst.name, len(peers))
				t.Logf("Test %s:\texp: %d", tst.name, len(tst.peers)-1)
				t.Fatalf("Test %s:\tShould get back the right peers.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_BroadcastSkipsSelf(t *testing.T) {
	ps := peer.NewPeerSet()
	ps.Add(peer.Peer{Host: "host1"})
	ps.Add(peer.Peer{Host: "host2"})
	ps.Add(peer.Peer{Host: "host3"})

	var reached []string
	ps.Broadcast("host2", []byte("payload"), func(p peer.Peer, payload []byte) {
		reached = append(reached, p.Host)
	})

	if len(reached) != 2 {
		t.Fatalf("got %d broadcasts, want 2", len(reached))
	}
	for _, host := range reached {
		if host == "host2" {
			t.Fatalf("broadcast reached self host2")
		}
	}
}
