package node

import (
	"encoding/json"

	uuid "github.com/satori/go.uuid"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/metrics"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/networks/rpc"
	"github.com/sjpacwa/sbchain-go/params"
	"github.com/sjpacwa/sbchain-go/verify"
)

// newTransactionRequest is the body new_transaction's single positional
// argument decodes into (spec §4.6).
type newTransactionRequest struct {
	Input  int64            `json:"input"`
	Output map[string]int64 `json:"output"`
}

// handleNewTransaction implements spec §4.6: build a transaction moving
// Input value out of this node's wallet, split across Output, a reward-sink
// coin, and a change coin if the wallet overshoots.
func (n *Node) handleNewTransaction(raw json.RawMessage, conn *rpc.ServerConn) {
	var args []newTransactionRequest
	if err := json.Unmarshal(raw, &args); err != nil || len(args) != 1 {
		conn.WriteError(string(p2p.InvalidData))
		return
	}
	req := args[0]

	var outputTotal int64
	for _, v := range req.Output {
		outputTotal += v
	}
	reward := req.Input - outputTotal
	if reward < 0 {
		conn.WriteResponse([]TxResult{{Message: msgNegativeReward}})
		return
	}

	selected, change, ok := n.ledger.History.Wallet().GetCoins(req.Input)
	if !ok {
		conn.WriteResponse([]TxResult{{Message: msgNotEnoughCoins}})
		return
	}

	txUUID := uuid.NewV4().String()
	outputs := make(map[string][]types.Coin, len(req.Output)+2)
	for recipient, value := range req.Output {
		outputs[recipient] = append(outputs[recipient], types.NewCoin(txUUID, value))
	}
	outputs[params.SystemRecipient] = append(outputs[params.SystemRecipient], types.NewCoin(txUUID, reward))
	if change > 0 {
		outputs[n.id] = append(outputs[n.id], types.NewCoin(txUUID, change))
	}

	tx := types.NewTransactionWithUUID(txUUID, n.id, selected, outputs)
	results := n.receiveTransactionInternal([]types.Transaction{tx})
	conn.WriteResponse(results)
}

// handleReceiveTransactions implements receive_transactions: verify and
// accept a batch of already-built transactions, replying with a per-uuid
// result list.
func (n *Node) handleReceiveTransactions(raw json.RawMessage, conn *rpc.ServerConn) {
	var txs []types.Transaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		conn.WriteError(string(p2p.InvalidData))
		return
	}
	conn.WriteResponse(n.receiveTransactionInternal(txs))
}

// handleForwardTransaction implements forward_transaction: the miner's
// gossip fan-out of a batch it already accepted locally. The params shape is
// a single-element array wrapping the transaction list. No response is sent.
func (n *Node) handleForwardTransaction(raw json.RawMessage, conn *rpc.ServerConn) {
	var wrapped [][]types.Transaction
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped) != 1 {
		return
	}
	n.receiveTransactionInternal(wrapped[0])
}

// receiveTransactionInternal verifies and commits each transaction under the
// ledger lock, then enqueues the accepted ones for the miner to fold into
// its in-progress reward and forward to peers (spec §4.6 step 5, §4.7).
func (n *Node) receiveTransactionInternal(txs []types.Transaction) []TxResult {
	results := make([]TxResult, 0, len(txs))
	var accepted []types.Transaction

	n.ledger.Lock()
	for _, tx := range txs {
		if err := verify.Transaction(n.ledger.History, tx); err != nil {
			results = append(results, TxResult{UUID: tx.UUID, Message: "Error: verification failed: " + err.Error()})
			continue
		}
		n.ledger.History.AddTransaction(tx)
		metrics.TransactionsAcceptedCounter.Inc(1)
		accepted = append(accepted, tx)
		results = append(results, TxResult{UUID: tx.UUID, Message: msgSuccess})
	}
	n.ledger.Unlock()

	for _, tx := range accepted {
		n.miner.EnqueueTransaction(tx)
	}
	return results
}

// handleReceiveBlock implements receive_block: a peer announces a newly
// mined block. Enqueued for the miner to process (spec §4.7 step 3); no
// response is sent.
func (n *Node) handleReceiveBlock(raw json.RawMessage, conn *rpc.ServerConn) {
	origin, blockJSON, err := decodeBlockAnnouncement(raw)
	if err != nil {
		return
	}
	var block types.Block
	if err := json.Unmarshal(blockJSON, &block); err != nil {
		return
	}
	n.miner.EnqueueBlock(origin, block)
}

// handleForwardBlock implements forward_block, the miner's gossip fan-out of
// a block it just committed. Wire shape and handling are identical to
// receive_block.
func (n *Node) handleForwardBlock(raw json.RawMessage, conn *rpc.ServerConn) {
	n.handleReceiveBlock(raw, conn)
}
