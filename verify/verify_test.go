package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/history"
	"github.com/sjpacwa/sbchain-go/params"
)

func seedHistory(t *testing.T, nodeID string, value int64) (*history.History, types.Coin) {
	t.Helper()
	h := history.New(nodeID)
	funding := types.NewTransactionWithUUID("genesis", params.SystemRecipient, nil, map[string][]types.Coin{
		nodeID: {{UUID: "seed-1", TransactionID: "genesis", Value: value}},
	})
	h.AddTransaction(funding)
	coin, ok := h.GetCoin("seed-1")
	require.True(t, ok)
	return h, coin
}

func spendTx(sender string, input types.Coin, recipient string, value int64) types.Transaction {
	tx := types.NewTransaction(sender, []types.Coin{input}, map[string][]types.Coin{
		recipient: {{UUID: "spend-out", TransactionID: "", Value: value}},
	})
	for r := range tx.Outputs {
		for i := range tx.Outputs[r] {
			tx.Outputs[r][i].TransactionID = tx.UUID
		}
	}
	return tx
}

func TestTransactionAcceptsValidSpend(t *testing.T) {
	h, coin := seedHistory(t, "alice", 10)
	tx := spendTx("alice", coin, "bob", 10)

	assert.NoError(t, Transaction(h, tx))
}

func TestTransactionRejectsDuplicateUUID(t *testing.T) {
	h, coin := seedHistory(t, "alice", 10)
	tx := spendTx("alice", coin, "bob", 10)
	h.AddTransaction(tx)

	assert.Error(t, Transaction(h, tx))
}

func TestTransactionRejectsAlreadySpentInput(t *testing.T) {
	h, coin := seedHistory(t, "alice", 10)
	first := spendTx("alice", coin, "bob", 10)
	h.AddTransaction(first)

	// reuse the same (now-dead) coin as input for a second transaction
	second := spendTx("alice", coin, "carol", 10)
	assert.Error(t, Transaction(h, second))
}

func TestTransactionRejectsMismatchedInputValue(t *testing.T) {
	h, coin := seedHistory(t, "alice", 10)
	tampered := coin
	tampered.Value = 999
	tx := spendTx("alice", tampered, "bob", 999)

	assert.Error(t, Transaction(h, tx))
}

func TestTransactionRejectsCollidingOutputCoin(t *testing.T) {
	h, coin := seedHistory(t, "alice", 10)
	tx := spendTx("alice", coin, "bob", 10)
	tx.Outputs["bob"][0].UUID = "seed-1" // collides with a coin already live in history

	assert.Error(t, Transaction(h, tx))
}

func newValidBlock(t *testing.T, h *history.History, lastBlock types.Block, idx uint64, difficulty int) types.Block {
	t.Helper()
	cfg := params.NewBlockchainConfig(difficulty)
	reward := types.NewRewardBuilder("reward-"+lastBlock.Hash(), "miner").Snapshot()

	var proof uint64
	lastHash := lastBlock.Hash()
	for {
		digest, err := types.ProofDigest(lastBlock.Proof, proof, lastHash, nil)
		require.NoError(t, err)
		if types.ValidProof(digest, cfg.DifficultyLevel()) {
			break
		}
		proof++
	}

	return types.Block{
		Index:        idx,
		Timestamp:    "2026-01-01T00:00:00Z",
		Transactions: []types.Transaction{reward},
		Proof:        proof,
		PreviousHash: lastHash,
	}
}

func TestBlockAcceptsValidChainExtension(t *testing.T) {
	h := history.New("miner")
	genesis := types.Genesis()
	block := newValidBlock(t, h, genesis, 2, 0)

	validProof := func(lastProof, proof uint64, lastHash string, txs []types.Transaction) bool {
		digest, _ := types.ProofDigest(lastProof, proof, lastHash, txs)
		return types.ValidProof(digest, 0)
	}

	snap, err := Block(h, genesis, validProof, block)
	require.NoError(t, err)
	assert.True(t, snap.HasTransaction(block.Transactions[0].UUID))
	assert.False(t, h.HasTransaction(block.Transactions[0].UUID), "live history untouched until caller commits")
}

func TestBlockRejectsHashMismatch(t *testing.T) {
	h := history.New("miner")
	genesis := types.Genesis()
	block := newValidBlock(t, h, genesis, 2, 0)
	block.PreviousHash = "not-the-real-hash"

	validProof := func(lastProof, proof uint64, lastHash string, txs []types.Transaction) bool { return true }

	_, err := Block(h, genesis, validProof, block)
	assert.Error(t, err)
}

func TestBlockRejectsMissingRewardTransaction(t *testing.T) {
	h := history.New("miner")
	genesis := types.Genesis()
	block := types.Block{
		Index:        2,
		PreviousHash: genesis.Hash(),
		Transactions: nil,
	}

	validProof := func(lastProof, proof uint64, lastHash string, txs []types.Transaction) bool { return true }

	_, err := Block(h, genesis, validProof, block)
	assert.Error(t, err)
}

func TestBlockRejectsBadProof(t *testing.T) {
	h := history.New("miner")
	genesis := types.Genesis()
	block := newValidBlock(t, h, genesis, 2, 0)

	validProof := func(lastProof, proof uint64, lastHash string, txs []types.Transaction) bool { return false }

	_, err := Block(h, genesis, validProof, block)
	assert.Error(t, err)
}
