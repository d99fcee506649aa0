package rpc

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/sjpacwa/sbchain-go/log"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/queue"
)

var serverLog = log.New("module", "rpc")

// HandlerFunc is a task handler: given the request's decoded params and the
// connection to reply on, it does whatever the action requires. It writes
// its own response (or none, for fire-and-forget actions) and may call
// conn.Keep() to retain the connection for a paginated follow-on exchange
// (spec §4.2, §4.5).
type HandlerFunc func(params json.RawMessage, conn *ServerConn)

// task is one unit of work handed from the acceptor to a worker: the
// decoded action name plus the connection it arrived on (spec §4.2).
type task struct {
	action string
	params json.RawMessage
	conn   *ServerConn
}

// Server is the listener + worker pool described in spec §4.2: one acceptor
// goroutine hands each connection to a goroutine that reads its framed
// request and enqueues a task; a fixed pool of workers drains the queue and
// dispatches to the action table.
type Server struct {
	host       string
	port       int
	poolSize   int
	actions    map[string]HandlerFunc
	listener   net.Listener
	tasks      *queue.Queue[task]
	quit       chan struct{}
}

// NewServer builds a server bound to host:port, with the given action
// table and worker pool size (spec §4.2: "a fixed pool of worker threads,
// default 10").
func NewServer(host string, port int, poolSize int, actions map[string]HandlerFunc) *Server {
	return &Server{
		host:     host,
		port:     port,
		poolSize: poolSize,
		actions:  actions,
		tasks:    queue.New[task](),
		quit:     make(chan struct{}),
	}
}

// Start binds the listener and spawns the acceptor and worker goroutines.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.host, s.port))
	if err != nil {
		return err
	}
	s.listener = listener

	for i := 0; i < s.poolSize; i++ {
		go s.worker()
	}
	go s.acceptLoop()

	serverLog.Info("RPC server listening", "addr", listener.Addr())
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener. In-flight tasks still complete; the worker pool
// is not torn down (spec §5 "cancellation: none").
func (s *Server) Stop() error {
	close(s.quit)
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				serverLog.Warn("Accept failed", "err", err)
				continue
			}
		}
		go s.readRequest(conn)
	}
}

// readRequest decodes exactly one framed request off a freshly accepted
// connection and enqueues it as a task (spec §4.2). It runs off the
// acceptor goroutine so one slow or malformed peer cannot stall accept().
func (s *Server) readRequest(conn net.Conn) {
	sc := newServerConn(conn)
	req, err := sc.ReadRequest()
	if err != nil {
		serverLog.Debug("Failed to read request", "remote", conn.RemoteAddr(), "err", err)
		sc.WriteError(string(p2p.BadRequest))
		conn.Close()
		return
	}
	s.tasks.Push(task{action: req.Action, params: req.Params, conn: sc})
}

func (s *Server) worker() {
	for {
		t := s.tasks.Pop()
		s.dispatch(t)
	}
}

// dispatch looks up t.action in the action table and invokes it, recovering
// from any panic so one bad handler never takes down the worker pool (spec
// §7: "workers catch all handler exceptions, log with stack, reply with an
// error frame if the connection is still open, then close the socket").
func (s *Server) dispatch(t task) {
	handler, ok := s.actions[t.action]
	if !ok {
		serverLog.Debug("Unknown action", "action", t.action, "remote", t.conn.RemoteAddr())
		t.conn.WriteError(string(p2p.BadRequest))
		t.conn.Close()
		return
	}

	defer func() {
		if r := recover(); r != nil {
			serverLog.Error("Handler panicked", "action", t.action, "recover", r)
			t.conn.WriteError(string(p2p.InvalidData))
			t.conn.Close()
		}
	}()

	handler(t.params, t.conn)
	if !t.conn.kept {
		t.conn.Close()
	}
}
