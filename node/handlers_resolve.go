package node

import (
	"encoding/json"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/networks/rpc"
)

// handleResolveConflicts implements the parameterless resolve_conflicts
// action (spec §6): ask every known peer to actively reconcile against us,
// wait for any resulting blocks to land, and report how many blocks our tip
// advanced by.
func (n *Node) handleResolveConflicts(raw json.RawMessage, conn *rpc.ServerConn) {
	n.ledger.Lock()
	before := n.ledger.Chain.LastBlockIndex()
	n.ledger.Unlock()

	reqID := uuid.NewV4().String()
	n.markResolveRequestSeen(reqID)

	conns := p2p.DialAll(n.peers.List())
	conns.SendWithResponse("resolve_conflicts_internal", []interface{}{reqID, n.self.Host, n.self.Port, before})

	// Peers that find themselves ahead reply to us directly via receive_block
	// (spec §4.10); give the miner a moment to drain that onto the chain
	// before reporting the delta.
	time.Sleep(250 * time.Millisecond)

	n.ledger.Lock()
	after := n.ledger.Chain.LastBlockIndex()
	n.ledger.Unlock()

	conn.WriteResponse(int(after - before))
}

// resolveConflictsInternalRequest is resolve_conflicts_internal's positional
// argument list (spec §4.10).
type resolveConflictsInternalRequest struct {
	RequestID string
	Host      string
	Port      int
	Index     uint64
}

func decodeResolveConflictsInternal(raw json.RawMessage) (resolveConflictsInternalRequest, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 4 {
		return resolveConflictsInternalRequest{}, errInvalidResolveParams
	}
	var req resolveConflictsInternalRequest
	if err := json.Unmarshal(parts[0], &req.RequestID); err != nil {
		return resolveConflictsInternalRequest{}, err
	}
	if err := json.Unmarshal(parts[1], &req.Host); err != nil {
		return resolveConflictsInternalRequest{}, err
	}
	if err := json.Unmarshal(parts[2], &req.Port); err != nil {
		return resolveConflictsInternalRequest{}, err
	}
	if err := json.Unmarshal(parts[3], &req.Index); err != nil {
		return resolveConflictsInternalRequest{}, err
	}
	return req, nil
}

var errInvalidResolveParams = &invalidParamsError{"expected [request_id, host, port, index]"}

type invalidParamsError struct{ msg string }

func (e *invalidParamsError) Error() string { return e.msg }

// handleResolveConflictsInternal implements spec §4.10: cycle-break on a
// previously seen request id, otherwise propagate to our own peers and, if
// our tip is ahead of the requester's reported index, reply directly to the
// requester with our last block via a fresh receive_block.
func (n *Node) handleResolveConflictsInternal(raw json.RawMessage, conn *rpc.ServerConn) {
	req, err := decodeResolveConflictsInternal(raw)
	if err != nil {
		conn.WriteError(string(p2p.InvalidData))
		return
	}

	if n.checkAndMarkResolveRequest(req.RequestID) {
		conn.WriteResponse(0)
		return
	}

	requester := p2p.Peer{Host: req.Host, Port: req.Port}

	n.ledger.Lock()
	ourIndex := n.ledger.Chain.LastBlockIndex()
	ourTip := n.ledger.Chain.LastBlock()
	n.ledger.Unlock()

	total := 0
	if ourIndex > req.Index {
		total++
		go func() {
			conns := p2p.DialAll([]p2p.Peer{requester})
			conns.SendWithoutResponse("receive_block", []interface{}{ourTip, n.self.Host, n.self.Port})
		}()
	}

	others := n.peers.List()
	conns := p2p.DialAll(others)
	results := conns.SendWithResponse("resolve_conflicts_internal", []interface{}{req.RequestID, req.Host, req.Port, req.Index})
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		var count int
		if json.Unmarshal(r.Response, &count) == nil {
			total += count
		}
	}

	conn.WriteResponse(total)
}

// checkAndMarkResolveRequest reports whether id was already seen (cycle
// break) and records it as seen either way, atomically (spec §4.10,
// "resolve_lock guards the resolve_requests set").
func (n *Node) checkAndMarkResolveRequest(id string) bool {
	n.resolveMu.Lock()
	defer n.resolveMu.Unlock()
	seen := n.resolveRequests[id]
	n.resolveRequests[id] = true
	return seen
}

func (n *Node) markResolveRequestSeen(id string) {
	n.resolveMu.Lock()
	defer n.resolveMu.Unlock()
	n.resolveRequests[id] = true
}
