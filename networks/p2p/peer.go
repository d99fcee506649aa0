package p2p

import "fmt"

// Peer identifies a remote node by its listening address (spec §4.5
// register_nodes: peers are [host, port] pairs).
type Peer struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Address returns the dialable "host:port" form.
func (p Peer) Address() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// Equal reports whether p and other name the same address.
func (p Peer) Equal(other Peer) bool {
	return p.Host == other.Host && p.Port == other.Port
}
