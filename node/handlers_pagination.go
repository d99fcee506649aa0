package node

import (
	"encoding/json"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/networks/rpc"
)

// chainPage is the wire shape get_chain_paginated streams (spec §4.5): a
// newest-block-first window plus a status tag driving the client loop.
type chainPage struct {
	Section []types.Block `json:"section"`
	Status  string        `json:"status"`
}

const (
	pageInitial  = "INITIAL"
	pageContinue = "CONTINUE"
	pageFinished = "FINISHED"
	pageError    = "ERROR"
)

// handleGetChainPaginated streams the chain newest-first in windows of size
// blocks (spec §4.5). A size < 1 yields a single ERROR frame. If the chain's
// version number changes mid-exchange (a concurrent resolve_conflicts
// replaced it), the server restarts from the newest block with a fresh
// INITIAL frame. The client drives continuation with {"action":"inform",
// "params":{"message":"ACK"|"STOP"}}; STOP or a FINISHED frame ends the
// exchange and the connection is closed.
func (n *Node) handleGetChainPaginated(raw json.RawMessage, conn *rpc.ServerConn) {
	var args []int
	if err := json.Unmarshal(raw, &args); err != nil || len(args) != 1 {
		conn.WriteError(string(p2p.InvalidData))
		return
	}
	size := args[0]
	if size < 1 {
		conn.WriteResponse(chainPage{Status: pageError})
		return
	}

	n.ledger.Lock()
	version := n.ledger.Chain.GetVersionNumber()
	top := uint64(n.ledger.Chain.Length())
	n.ledger.Unlock()

	// A multi-frame exchange keeps the connection open past this handler's
	// return; every exit path below must close it itself.
	conn.Keep()
	defer conn.Close()

	first := true
	for {
		n.ledger.Lock()
		curVersion := n.ledger.Chain.GetVersionNumber()
		if curVersion != version {
			version = curVersion
			top = uint64(n.ledger.Chain.Length())
			first = true
		}
		hi := top
		lo := uint64(1)
		if hi > uint64(size-1) {
			lo = hi - uint64(size-1)
		}
		var section []types.Block
		for i := hi; i >= lo && i >= 1; i-- {
			if b, ok := n.ledger.Chain.GetBlock(i); ok {
				section = append(section, b)
			}
			if i == 1 {
				break
			}
		}
		n.ledger.Unlock()

		status := pageContinue
		if first {
			status = pageInitial
		}
		if lo <= 1 {
			status = pageFinished
		}

		if err := conn.WriteResponse(chainPage{Section: section, Status: status}); err != nil {
			return
		}

		if status == pageFinished {
			return
		}
		first = false

		req, err := conn.ReadRequest()
		if err != nil {
			return
		}
		var reply struct {
			Message string `json:"message"`
		}
		json.Unmarshal(req.Params, &reply)
		if reply.Message == "STOP" {
			return
		}
		top = lo - 1
	}
}
