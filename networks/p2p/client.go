package p2p

import (
	"bufio"
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/sjpacwa/sbchain-go/log"
)

// DialTimeout bounds connection setup; spec §9 flags the absence of any
// peer socket timeout as a known weakness and asks for "a generous
// read/write timeout" without prescribing a value.
var DialTimeout = 10 * time.Second

// IOTimeout bounds a single frame's read or write once connected.
var IOTimeout = 30 * time.Second

var clientLog = log.New("module", "p2p")

// SingleConnectionHandler drives one outbound peer connection: open, send a
// request, optionally read its response, optionally keep the connection
// open for a follow-on paginated exchange (spec §4.1).
type SingleConnectionHandler struct {
	peer   Peer
	conn   net.Conn
	reader *bufio.Reader
}

// Dial opens a connection to peer. Connection refusal is returned to the
// caller (never treated as fatal by the caller — spec §4.1).
func Dial(peer Peer) (*SingleConnectionHandler, error) {
	conn, err := net.DialTimeout("tcp", peer.Address(), DialTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", peer.Address())
	}
	return &SingleConnectionHandler{peer: peer, conn: conn, reader: bufio.NewReader(conn)}, nil
}

// Peer returns the peer this handler is connected to.
func (s *SingleConnectionHandler) Peer() Peer { return s.peer }

// Close closes the underlying connection.
func (s *SingleConnectionHandler) Close() error {
	return s.conn.Close()
}

// SendWithResponse sends msg and waits for exactly one response frame.
func (s *SingleConnectionHandler) SendWithResponse(action string, params interface{}) (json.RawMessage, error) {
	if err := s.send(action, params); err != nil {
		return nil, err
	}
	s.conn.SetReadDeadline(time.Now().Add(IOTimeout))
	body, err := ReadFrame(s.reader)
	s.conn.SetReadDeadline(time.Time{})
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	return json.RawMessage(body), nil
}

// SendWithoutResponse sends msg and does not wait for a reply
// (fire-and-forget).
func (s *SingleConnectionHandler) SendWithoutResponse(action string, params interface{}) error {
	return s.send(action, params)
}

func (s *SingleConnectionHandler) send(action string, params interface{}) error {
	req, err := NewRequest(action, params)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "encoding frame")
	}
	s.conn.SetWriteDeadline(time.Now().Add(IOTimeout))
	defer s.conn.SetWriteDeadline(time.Time{})
	return WriteFrame(s.conn, payload)
}

// Next reads the next frame off an already-established connection, used by
// the paginated exchange in resolve_conflicts (spec §4.5, §4.9).
func (s *SingleConnectionHandler) Next() (json.RawMessage, error) {
	s.conn.SetReadDeadline(time.Now().Add(IOTimeout))
	body, err := ReadFrame(s.reader)
	s.conn.SetReadDeadline(time.Time{})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// PeerResult pairs a peer with the outcome of a single fanned-out send.
type PeerResult struct {
	Peer     Peer
	Response json.RawMessage
	Err      error
}

// MultipleConnectionHandler opens a connection to each of a list of peers,
// skipping (and logging) refused ones, and fans a single action out across
// all of them (spec §4.1).
type MultipleConnectionHandler struct {
	conns []*SingleConnectionHandler
}

// DialAll connects to every peer in order. Peers that refuse the connection
// are logged and dropped, never fatal to the caller.
func DialAll(peers []Peer) *MultipleConnectionHandler {
	m := &MultipleConnectionHandler{}
	for _, peer := range peers {
		conn, err := Dial(peer)
		if err != nil {
			clientLog.Warn("Peer connection refused", "peer", peer.Address(), "err", err)
			continue
		}
		m.conns = append(m.conns, conn)
	}
	return m
}

// SendWithResponse broadcasts action/params to every connected peer and
// collects their responses in dial order.
func (m *MultipleConnectionHandler) SendWithResponse(action string, params interface{}) []PeerResult {
	results := make([]PeerResult, 0, len(m.conns))
	for _, conn := range m.conns {
		resp, err := conn.SendWithResponse(action, params)
		results = append(results, PeerResult{Peer: conn.Peer(), Response: resp, Err: err})
		conn.Close()
	}
	return results
}

// SendWithoutResponse broadcasts action/params to every connected peer and
// closes each connection without waiting for a reply.
func (m *MultipleConnectionHandler) SendWithoutResponse(action string, params interface{}) {
	for _, conn := range m.conns {
		if err := conn.SendWithoutResponse(action, params); err != nil {
			clientLog.Warn("Broadcast failed", "peer", conn.Peer().Address(), "err", err)
		}
		conn.Close()
	}
}

// Peers returns the peers this handler successfully connected to.
func (m *MultipleConnectionHandler) Peers() []Peer {
	peers := make([]Peer, 0, len(m.conns))
	for _, c := range m.conns {
		peers = append(peers, c.Peer())
	}
	return peers
}
