package p2p

import "sync"

// PeerSet is the node's registered peer list (spec §4.5 register_nodes):
// append-only membership, deduped against both the local peer list and this
// node's own address, safe for concurrent use.
type PeerSet struct {
	mu    sync.Mutex
	self  Peer
	peers []Peer
}

// NewPeerSet creates a peer set that will never register self (this node's
// own address).
func NewPeerSet(self Peer) *PeerSet {
	return &PeerSet{self: self}
}

// Add registers peer if it is not this node's own address and not already
// present. Returns true if it was newly added.
func (s *PeerSet) Add(peer Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if peer.Equal(s.self) {
		return false
	}
	for _, p := range s.peers {
		if p.Equal(peer) {
			return false
		}
	}
	s.peers = append(s.peers, peer)
	return true
}

// Remove unregisters peer, if present.
func (s *PeerSet) Remove(peer Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.peers {
		if p.Equal(peer) {
			s.peers = append(s.peers[:i], s.peers[i+1:]...)
			return
		}
	}
}

// List returns a snapshot of the currently registered peers.
func (s *PeerSet) List() []Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Peer(nil), s.peers...)
}

// Self returns this node's own advertised address.
func (s *PeerSet) Self() Peer { return s.self }
