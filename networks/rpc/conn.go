// Package rpc is the server half of the peer protocol (spec §4.2, §6): a
// listener that reads one framed request per accepted connection, a task
// queue, and a fixed worker pool that dispatches to a name->function action
// table.
package rpc

import (
	"bufio"
	"encoding/json"
	"net"
	"time"

	"github.com/sjpacwa/sbchain-go/networks/p2p"
)

// ServerConn wraps one accepted connection for the duration of a task,
// giving a handler everything it needs to reply: a single response, no
// response at all, or a paginated sequence of frames followed by client
// ACK/STOP replies (spec §4.5).
type ServerConn struct {
	conn   net.Conn
	reader *bufio.Reader
	kept   bool
}

func newServerConn(conn net.Conn) *ServerConn {
	return &ServerConn{conn: conn, reader: bufio.NewReader(conn)}
}

// WriteResponse writes v as a single JSON response frame.
func (c *ServerConn) WriteResponse(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(p2p.IOTimeout))
	defer c.conn.SetWriteDeadline(time.Time{})
	return p2p.WriteFrame(c.conn, payload)
}

// WriteError writes msg as a plain-string error frame (spec §7).
func (c *ServerConn) WriteError(msg string) error {
	return c.WriteResponse(msg)
}

// ReadRequest reads the client's next framed request, used during a
// paginated exchange to read the {"action":"inform", ...} ACK/STOP (spec
// §4.5).
func (c *ServerConn) ReadRequest() (p2p.Request, error) {
	c.conn.SetReadDeadline(time.Now().Add(p2p.IOTimeout))
	defer c.conn.SetReadDeadline(time.Time{})
	body, err := p2p.ReadFrame(c.reader)
	if err != nil {
		return p2p.Request{}, err
	}
	var req p2p.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return p2p.Request{}, err
	}
	return req, nil
}

// Keep marks the connection as retained for a follow-on paginated exchange,
// so the worker pool does not close it once the handler returns (spec
// §4.2).
func (c *ServerConn) Keep() { c.kept = true }

// RemoteAddr returns the connection's remote address.
func (c *ServerConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close closes the underlying connection.
func (c *ServerConn) Close() error { return c.conn.Close() }
