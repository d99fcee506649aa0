package work

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjpacwa/sbchain-go/blockchain"
	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/ledger"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/params"
	"github.com/sjpacwa/sbchain-go/queue"
)

func newTestMiner(nodeID string, noMine bool) *Miner {
	self := p2p.Peer{Host: "127.0.0.1", Port: 0}
	l := ledger.New(nodeID, blockchain.New(params.NewBlockchainConfig(0)))
	return New(Config{
		NodeID: nodeID,
		Self:   self,
		Ledger: l,
		Peers:  p2p.NewPeerSet(self),
		Trans:  queue.New[types.Transaction](),
		Blocks: queue.New[BlockMessage](),
		NoMine: noMine,
	})
}

func TestMineOneBlockMintsAtZeroDifficulty(t *testing.T) {
	m := newTestMiner("miner-1", false)

	m.mineOneBlock()

	assert.Equal(t, 2, m.ledger.Chain.Length())
	block := m.ledger.Chain.LastBlock()
	require.Len(t, block.Transactions, 1)
	reward, ok := block.RewardTransaction()
	require.True(t, ok)
	assert.Equal(t, params.SystemRecipient, reward.Sender)
	// the minted coin is paid to the miner's own id, so it counts toward
	// OutputValue, not RewardValue (that field is reserved for reward-sink
	// inputs an ordinary transaction folds in).
	assert.Equal(t, int64(params.RewardCoinValue), reward.OutputValue)
	assert.Equal(t, int64(0), reward.RewardValue)
}

func TestMineOneBlockFoldsPendingTransactionsIntoReward(t *testing.T) {
	m := newTestMiner("miner-1", false)

	tx := types.NewTransaction("alice", nil, map[string][]types.Coin{
		params.SystemRecipient: {{Value: 3}},
	})
	for r := range tx.Outputs {
		for i := range tx.Outputs[r] {
			tx.Outputs[r][i].TransactionID = tx.UUID
		}
	}
	m.EnqueueTransaction(tx)

	m.mineOneBlock()

	block := m.ledger.Chain.LastBlock()
	reward, ok := block.RewardTransaction()
	require.True(t, ok)
	assert.Equal(t, int64(params.RewardCoinValue+3), reward.OutputValue)
	assert.Equal(t, int64(0), reward.RewardValue)

	ordinary := block.OrdinaryTransactions()
	require.Len(t, ordinary, 1)
	assert.Equal(t, tx.UUID, ordinary[0].UUID)
}

func TestMineOneBlockAcceptsValidIncomingBlockInsteadOfMinting(t *testing.T) {
	m := newTestMiner("miner-1", false)

	genesis := m.ledger.Chain.LastBlock()
	incoming := mineValidBlock(t, genesis, m.ledger.Chain.Difficulty(), "other-node")
	m.EnqueueBlock(p2p.Peer{Host: "peer", Port: 1}, incoming)

	m.mineOneBlock()

	assert.Equal(t, 2, m.ledger.Chain.Length())
	got := m.ledger.Chain.LastBlock()
	assert.Equal(t, incoming.Hash(), got.Hash())
}

func TestMineOneBlockAcceptingIncomingBlockPreservesPendingTransactionBehindSlotZero(t *testing.T) {
	m := newTestMiner("miner-1", false)

	genesis := m.ledger.Chain.LastBlock()
	incoming := mineValidBlock(t, genesis, m.ledger.Chain.Difficulty(), "other-node")

	pending := types.NewTransaction("alice", nil, map[string][]types.Coin{
		params.SystemRecipient: {{Value: 3}},
	})
	for r := range pending.Outputs {
		for i := range pending.Outputs[r] {
			pending.Outputs[r][i].TransactionID = pending.UUID
		}
	}
	m.EnqueueTransaction(pending)
	m.EnqueueBlock(p2p.Peer{Host: "peer", Port: 1}, incoming)

	m.mineOneBlock()

	pool := m.ledger.Chain.CurrentTransactions()
	require.Len(t, pool, 2)
	// slot 0 must be a fresh in-progress reward attempt, never the
	// surviving pending transaction it would otherwise clobber.
	assert.True(t, pool[0].IsReward())
	assert.Equal(t, pending.UUID, pool[1].UUID)
}

func TestMineOneBlockDropsStaleBlock(t *testing.T) {
	m := newTestMiner("miner-1", false)

	stale := types.Block{Index: 0, PreviousHash: "garbage"}
	m.EnqueueBlock(p2p.Peer{Host: "peer", Port: 1}, stale)

	m.mineOneBlock()

	// the stale block is dropped, so the miner still mints its own block 2.
	assert.Equal(t, 2, m.ledger.Chain.Length())
	assert.NotEqual(t, stale.Hash(), m.ledger.Chain.LastBlock().Hash())
}

func TestNoMineModeDrainsWithoutMinting(t *testing.T) {
	m := newTestMiner("miner-1", true)

	done := make(chan struct{})
	go func() {
		m.mineOneBlock()
		close(done)
	}()

	genesis := m.ledger.Chain.LastBlock()
	incoming := mineValidBlock(t, genesis, m.ledger.Chain.Difficulty(), "other-node")
	m.EnqueueBlock(p2p.Peer{Host: "peer", Port: 1}, incoming)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no-mine mineOneBlock did not return after accepting a block")
	}

	assert.Equal(t, incoming.Hash(), m.ledger.Chain.LastBlock().Hash())
}

// mineValidBlock builds a real next-index block extending lastBlock, mined
// by minerID, satisfying the given difficulty.
func mineValidBlock(t *testing.T, lastBlock types.Block, difficulty int, minerID string) types.Block {
	t.Helper()
	reward := types.NewRewardBuilder("reward-"+lastBlock.Hash(), minerID).Snapshot()
	lastHash := lastBlock.Hash()

	var proof uint64
	for {
		digest, err := types.ProofDigest(lastBlock.Proof, proof, lastHash, nil)
		require.NoError(t, err)
		if types.ValidProof(digest, difficulty) {
			break
		}
		proof++
	}

	return types.Block{
		Index:        lastBlock.Index + 1,
		Timestamp:    "2026-01-01T00:00:00Z",
		Transactions: []types.Transaction{reward},
		Proof:        proof,
		PreviousHash: lastHash,
	}
}
