package node

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/networks/rpc"
	"github.com/sjpacwa/sbchain-go/params"
)

func (n *Node) handleGetBalance(raw json.RawMessage, conn *rpc.ServerConn) {
	conn.WriteResponse(n.ledger.History.Wallet().GetBalance())
}

// benchmarkGenesisTxUUID is the fixed uuid the one-time funding transaction
// benchmark_initialize records is filed under, so repeated lookups of the
// coins it mints always resolve to the same provenance transaction.
const benchmarkGenesisTxUUID = "benchmark-genesis"

// deterministicCoinUUID derives a stable coin uuid from a node id, so
// benchmark runs across a fixed set of node ids are reproducible (spec §8
// scenario 6: "deterministic UUIDs").
func deterministicCoinUUID(nodeID string) string {
	sum := sha1.Sum([]byte(nodeID))
	return hex.EncodeToString(sum[:])
}

// handleBenchmarkInitialize implements benchmark_initialize: seed one coin
// of value per node id, filed under a single synthetic genesis-adjacent
// funding transaction, then release the miner's start gate. Succeeds exactly
// once per process (spec §8 scenario 6).
func (n *Node) handleBenchmarkInitialize(raw json.RawMessage, conn *rpc.ServerConn) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
		conn.WriteError(string(p2p.InvalidData))
		return
	}
	var nodeIDs []string
	if err := json.Unmarshal(parts[0], &nodeIDs); err != nil {
		conn.WriteError(string(p2p.InvalidData))
		return
	}
	var value int64
	if err := json.Unmarshal(parts[1], &value); err != nil {
		conn.WriteError(string(p2p.InvalidData))
		return
	}

	n.benchmarkMu.Lock()
	if n.benchmarkDone {
		n.benchmarkMu.Unlock()
		conn.WriteResponse(false)
		return
	}
	n.benchmarkDone = true
	n.benchmarkMu.Unlock()

	outputs := make(map[string][]types.Coin, len(nodeIDs))
	for _, id := range nodeIDs {
		outputs[id] = []types.Coin{{
			UUID:          deterministicCoinUUID(id),
			TransactionID: benchmarkGenesisTxUUID,
			Value:         value,
		}}
	}
	fundingTx := types.NewTransactionWithUUID(benchmarkGenesisTxUUID, params.SystemRecipient, nil, outputs)

	n.ledger.Lock()
	n.ledger.History.AddTransaction(fundingTx)
	n.ledger.Chain.AddGenesisTransaction(fundingTx)
	n.ledger.Unlock()

	n.miner.ReleaseBenchmarkGate()
	conn.WriteResponse(true)
}

// handleWaitTest and handleResponseTest are a fixed, test-only round-trip
// pair (spec §6 lists both as "test-only") used by connection-layer tests,
// never reachable from production handlers.
func (n *Node) handleWaitTest(raw json.RawMessage, conn *rpc.ServerConn) {
	conn.Keep()
	defer conn.Close()

	if err := conn.WriteResponse("waiting"); err != nil {
		return
	}
	req, err := conn.ReadRequest()
	if err != nil {
		return
	}
	if req.Action == "response_test" {
		conn.WriteResponse("done")
	}
}

func (n *Node) handleResponseTest(raw json.RawMessage, conn *rpc.ServerConn) {
	conn.WriteResponse("ok")
}
