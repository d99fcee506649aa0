package rpc

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjpacwa/sbchain-go/networks/p2p"
)

func startTestServer(t *testing.T, actions map[string]HandlerFunc) *Server {
	t.Helper()
	s := NewServer("127.0.0.1", 0, 4, actions)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	return s
}

func dialServer(t *testing.T, s *Server) *p2p.SingleConnectionHandler {
	t.Helper()
	addr := s.Addr().(*net.TCPAddr)
	conn, err := p2p.Dial(p2p.Peer{Host: "127.0.0.1", Port: addr.Port})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerDispatchesKnownAction(t *testing.T) {
	actions := map[string]HandlerFunc{
		"echo": func(params json.RawMessage, conn *ServerConn) {
			conn.WriteResponse(params)
		},
	}
	s := startTestServer(t, actions)
	conn := dialServer(t, s)

	resp, err := conn.SendWithResponse("echo", []int{1, 2, 3})
	require.NoError(t, err)
	assert.JSONEq(t, "[1,2,3]", string(resp))
}

func TestServerUnknownActionRepliesBadRequest(t *testing.T) {
	s := startTestServer(t, map[string]HandlerFunc{})
	conn := dialServer(t, s)

	resp, err := conn.SendWithResponse("no_such_action", nil)
	require.NoError(t, err)

	var msg string
	require.NoError(t, json.Unmarshal(resp, &msg))
	assert.Equal(t, string(p2p.BadRequest), msg)
}

func TestServerRecoversFromHandlerPanic(t *testing.T) {
	actions := map[string]HandlerFunc{
		"boom": func(params json.RawMessage, conn *ServerConn) {
			panic("handler exploded")
		},
	}
	s := startTestServer(t, actions)
	conn := dialServer(t, s)

	resp, err := conn.SendWithResponse("boom", nil)
	require.NoError(t, err)

	var msg string
	require.NoError(t, json.Unmarshal(resp, &msg))
	assert.Equal(t, string(p2p.InvalidData), msg)

	// the worker pool must still be alive for the next request
	conn2 := dialServer(t, s)
	_, err = conn2.SendWithResponse("no_such_action", nil)
	require.NoError(t, err)
}

func TestServerKeptConnectionSupportsMultipleFrames(t *testing.T) {
	actions := map[string]HandlerFunc{
		"paginate": func(params json.RawMessage, conn *ServerConn) {
			conn.Keep()
			defer conn.Close()
			conn.WriteResponse("frame-1")
			req, err := conn.ReadRequest()
			if err != nil {
				return
			}
			if req.Action == "ack" {
				conn.WriteResponse("frame-2")
			}
		},
	}
	s := startTestServer(t, actions)
	conn := dialServer(t, s)

	resp, err := conn.SendWithResponse("paginate", nil)
	require.NoError(t, err)
	var first string
	require.NoError(t, json.Unmarshal(resp, &first))
	assert.Equal(t, "frame-1", first)

	resp, err = conn.SendWithResponse("ack", nil)
	require.NoError(t, err)
	var second string
	require.NoError(t, json.Unmarshal(resp, &second))
	assert.Equal(t, "frame-2", second)
}

func TestServerStopClosesListener(t *testing.T) {
	s := NewServer("127.0.0.1", 0, 2, map[string]HandlerFunc{})
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())

	time.Sleep(10 * time.Millisecond)
	_, err := p2p.Dial(p2p.Peer{Host: "127.0.0.1", Port: s.Addr().(*net.TCPAddr).Port})
	assert.Error(t, err)
}
