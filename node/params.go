package node

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/sjpacwa/sbchain-go/networks/p2p"
)

// TxResult is one entry of the per-transaction result list new_transaction
// and receive_transactions reply with (spec §6: "list of per-transaction
// result messages").
type TxResult struct {
	UUID    string `json:"uuid"`
	Message string `json:"message"`
}

const (
	msgSuccess        = "Success"
	msgNotEnoughCoins = "Error: Not enough coins"
	msgNegativeReward = "Error: output exceeds input"
)

// decodePeerList unpacks the `[[[host,port],...]]` shape register_nodes and
// unregister_nodes share: a single-element outer array wrapping a list of
// [host, port] pairs.
func decodePeerList(raw json.RawMessage) ([]p2p.Peer, error) {
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, errors.Wrap(err, "decoding params envelope")
	}
	if len(outer) != 1 {
		return nil, errors.New("expected exactly one argument")
	}

	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(outer[0], &pairs); err != nil {
		return nil, errors.Wrap(err, "decoding peer list")
	}

	peers := make([]p2p.Peer, 0, len(pairs))
	for _, pair := range pairs {
		var host string
		var port int
		if err := json.Unmarshal(pair[0], &host); err != nil {
			return nil, errors.Wrap(err, "decoding peer host")
		}
		if err := json.Unmarshal(pair[1], &port); err != nil {
			return nil, errors.Wrap(err, "decoding peer port")
		}
		if host == "" || port <= 0 {
			continue
		}
		peers = append(peers, p2p.Peer{Host: host, Port: port})
	}
	return peers, nil
}

// peerListParams builds the `[[[host,port],...]]` wire shape from peers, the
// inverse of decodePeerList, used when this node announces itself back to a
// newly registered peer.
func peerListParams(peers []p2p.Peer) interface{} {
	pairs := make([][2]interface{}, len(peers))
	for i, p := range peers {
		pairs[i] = [2]interface{}{p.Host, p.Port}
	}
	return []interface{}{pairs}
}

// decodeBlockAnnouncement unpacks the `[block_json, host, port]` shape shared
// by receive_block and forward_block.
func decodeBlockAnnouncement(raw json.RawMessage) (hostPort p2p.Peer, blockJSON json.RawMessage, err error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return p2p.Peer{}, nil, errors.Wrap(err, "decoding params envelope")
	}
	if len(parts) != 3 {
		return p2p.Peer{}, nil, errors.New("expected exactly three arguments")
	}
	var host string
	var port int
	if err := json.Unmarshal(parts[1], &host); err != nil {
		return p2p.Peer{}, nil, errors.Wrap(err, "decoding origin host")
	}
	if err := json.Unmarshal(parts[2], &port); err != nil {
		return p2p.Peer{}, nil, errors.Wrap(err, "decoding origin port")
	}
	return p2p.Peer{Host: host, Port: port}, parts[0], nil
}
