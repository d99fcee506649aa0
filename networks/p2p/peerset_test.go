package p2p

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeerSetAddDedupesAndRejectsSelf(t *testing.T) {
	self := Peer{Host: "127.0.0.1", Port: 5000}
	s := NewPeerSet(self)

	assert.False(t, s.Add(self))
	assert.True(t, s.Add(Peer{Host: "127.0.0.1", Port: 5001}))
	assert.False(t, s.Add(Peer{Host: "127.0.0.1", Port: 5001}))

	assert.Len(t, s.List(), 1)
}

func TestPeerSetRemove(t *testing.T) {
	self := Peer{Host: "h", Port: 1}
	s := NewPeerSet(self)
	peer := Peer{Host: "h", Port: 2}
	s.Add(peer)

	s.Remove(peer)
	assert.Empty(t, s.List())

	// removing an absent peer is a no-op, not an error
	s.Remove(peer)
}

func TestPeerAddressAndEqual(t *testing.T) {
	p := Peer{Host: "10.0.0.1", Port: 9000}
	assert.Equal(t, "10.0.0.1:9000", p.Address())
	assert.True(t, p.Equal(Peer{Host: "10.0.0.1", Port: 9000}))
	assert.False(t, p.Equal(Peer{Host: "10.0.0.1", Port: 9001}))
}
