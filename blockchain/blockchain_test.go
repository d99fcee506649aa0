package blockchain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/params"
)

func TestNewSeedsGenesis(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))
	assert.Equal(t, 1, b.Length())
	assert.Equal(t, uint64(1), b.LastBlockIndex())
}

func TestNewBlockClearsPoolAndAppends(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))
	tx := types.NewTransaction("alice", nil, nil)
	b.NewTransaction(tx)

	block := b.NewBlock(1, b.LastBlock().Hash(), time.Now())

	assert.Equal(t, uint64(2), block.Index)
	require.Len(t, block.Transactions, 1)
	assert.Equal(t, tx.UUID, block.Transactions[0].UUID)
	assert.Empty(t, b.CurrentTransactions())
	assert.Equal(t, 2, b.Length())
}

func TestUpdateRewardOverwritesSlotZero(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))
	ordinary := types.NewTransaction("alice", nil, nil)
	b.NewTransaction(ordinary)

	reward1 := types.NewTransaction(params.SystemRecipient, nil, nil)
	b.UpdateReward(reward1)
	reward2 := types.NewTransaction(params.SystemRecipient, nil, nil)
	b.UpdateReward(reward2)

	require.Len(t, b.CurrentTransactions(), 2)
	assert.Equal(t, reward2.UUID, b.CurrentTransactions()[0].UUID)

	ordinaryOnly := b.OrdinaryCurrentTransactions()
	require.Len(t, ordinaryOnly, 1)
	assert.Equal(t, ordinary.UUID, ordinaryOnly[0].UUID)
}

func TestOrdinaryCurrentTransactionsEmptyWhenOnlyReward(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))
	b.UpdateReward(types.NewTransaction(params.SystemRecipient, nil, nil))
	assert.Nil(t, b.OrdinaryCurrentTransactions())
}

func TestGetBlockBoundsChecking(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))

	_, ok := b.GetBlock(0)
	assert.False(t, ok)

	blk, ok := b.GetBlock(1)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), blk.Index)

	_, ok = b.GetBlock(99)
	assert.False(t, ok)
}

func TestValidProofRespectsConfiguredDifficulty(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))
	assert.True(t, b.ValidProof(100, 1, "hash", nil))

	hard := New(params.NewBlockchainConfig(64))
	assert.False(t, hard.ValidProof(100, 1, "hash", nil))
}

func TestIncrementVersionNumber(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))
	assert.Equal(t, uint64(0), b.GetVersionNumber())
	b.IncrementVersionNumber()
	assert.Equal(t, uint64(1), b.GetVersionNumber())
	b.SetVersionNumber(9)
	assert.Equal(t, uint64(9), b.GetVersionNumber())
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))
	b.NewTransaction(types.NewTransaction("alice", nil, nil))
	b.NewBlock(1, b.LastBlock().Hash(), time.Now())

	clone := b.Clone()
	clone.NewTransaction(types.NewTransaction("bob", nil, nil))
	clone.NewBlock(2, clone.LastBlock().Hash(), time.Now())

	assert.Equal(t, 2, b.Length())
	assert.Equal(t, 3, clone.Length())
}

func TestSetChainReplacesWholesale(t *testing.T) {
	b := New(params.NewBlockchainConfig(0))
	newChain := []types.Block{types.Genesis()}
	b.SetChain(newChain)
	assert.Equal(t, 1, b.Length())
}
