// Package peer maintains the peer related information such as the set
// of known peers and their status, and provides the stand-in
// peer-broadcast implementation the node boundary consumes for
// single-node operation and tests.
package peer

import (
	"sync"

	"github.com/nonagon-chain/nonagon/foundation/blockchain/crypto"
)

// Peer represents information about a Node in the network.
type Peer struct {
	Host string
}

// New contructs a new info value.
func New(host string) Peer {
	return Peer{
		Host: host,
	}
}

// Match validates if the specified host matches this node.
func (p Peer) Match(host string) bool {
	return p.Host == host
}

// =============================================================================

// PeerStatus represents information about the status
// of any given peer.
type PeerStatus struct {
	LatestBlockHash   crypto.Hash `json:"latest_block_hash"`
	LatestBlockNumber uint64      `json:"latest_block_number"`
	LatestBatchID     uint64      `json:"latest_batch_id"`
	KnownPeers        []Peer      `json:"known_peers"`
}

// =============================================================================

// PeerSet represents the data representation to maintain a set of known peers.
type PeerSet struct {
	mu  sync.RWMutex
	set map[Peer]struct{}
}

// NewPeerSet constructs a new info set to manage node peer information.
func NewPeerSet() *PeerSet {
	return &PeerSet{
		set: make(map[Peer]struct{}),
	}
}

// Add adds a new node to the set.
func (ps *PeerSet) Add(peer Peer) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	_, exists := ps.set[peer]
	if !exists {
		ps.set[peer] = struct{}{}
		return true
	}

	return false
}

// Remove removes a node from the set.
func (ps *PeerSet) Remove(peer Peer) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	delete(ps.set, peer)
}

// Copy returns a list of the known peers.
func (ps *PeerSet) Copy(host string) []Peer {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	var peers []Peer
	for peer := range ps.set {
		if !peer.Match(host) {
			peers = append(peers, peer)
		}
	}

	return peers
}

// BroadcastFunc is called once per known peer when a block or transaction
// is gossiped. A real P2P transport would dial the peer's host; this
// stand-in exists so a single-node deployment and the test suite have
// something to satisfy the node boundary's peer_broadcast dependency
// without a network.
type BroadcastFunc func(peer Peer, payload []byte)

// Broadcast invokes fn for every known peer other than host. It is the
// PeerSet's implementation of the peer_broadcast interface the node
// boundary consumes.
func (ps *PeerSet) Broadcast(host string, payload []byte, fn BroadcastFunc) {
	for _, peer := range ps.Copy(host) {
		fn(peer, payload)
	}
}
