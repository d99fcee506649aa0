package node

import (
	"encoding/json"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/networks/rpc"
)

// chainResponse is the body get_chain replies with (spec §4.5).
type chainResponse struct {
	Chain  []types.Block `json:"chain"`
	Length int           `json:"length"`
}

func (n *Node) handleGetChain(raw json.RawMessage, conn *rpc.ServerConn) {
	n.ledger.Lock()
	snapshot := append([]types.Block(nil), n.ledger.Chain.Chain()...)
	length := n.ledger.Chain.Length()
	n.ledger.Unlock()

	conn.WriteResponse(chainResponse{Chain: snapshot, Length: length})
}

func (n *Node) handleGetBlock(raw json.RawMessage, conn *rpc.ServerConn) {
	var args []uint64
	if err := json.Unmarshal(raw, &args); err != nil || len(args) != 1 {
		conn.WriteError(string(p2p.InvalidData))
		return
	}

	n.ledger.Lock()
	block, ok := n.ledger.Chain.GetBlock(args[0])
	n.ledger.Unlock()

	if !ok {
		conn.WriteError("Error: block does not exist")
		return
	}
	conn.WriteResponse(block)
}

func (n *Node) handleRegisterNodes(raw json.RawMessage, conn *rpc.ServerConn) {
	peers, err := decodePeerList(raw)
	if err != nil {
		nodeLog.Debug("register_nodes: bad params", "err", err)
		return
	}

	for _, peer := range peers {
		if !n.peers.Add(peer) {
			continue
		}
		go n.announceSelf(peer)
	}
}

func (n *Node) handleUnregisterNodes(raw json.RawMessage, conn *rpc.ServerConn) {
	peers, err := decodePeerList(raw)
	if err != nil {
		nodeLog.Debug("unregister_nodes: bad params", "err", err)
		return
	}
	for _, peer := range peers {
		n.peers.Remove(peer)
	}
}

// announceSelf fire-and-forget registers this node's own address with a
// newly added peer, so membership stays roughly symmetric (spec §4.5, the
// original_source/p2p.py reciprocal-registration behavior).
func (n *Node) announceSelf(peer p2p.Peer) {
	c, err := p2p.Dial(peer)
	if err != nil {
		nodeLog.Warn("register_nodes: could not announce self", "peer", peer.Address(), "err", err)
		return
	}
	defer c.Close()
	c.SendWithoutResponse("register_nodes", peerListParams([]p2p.Peer{n.self}))
}
