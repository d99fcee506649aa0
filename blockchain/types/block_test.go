package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjpacwa/sbchain-go/params"
)

func TestGenesisFixedAttributes(t *testing.T) {
	g := Genesis()
	assert.Equal(t, uint64(1), g.Index)
	assert.Equal(t, params.GenesisPreviousHash, g.PreviousHash)
	assert.Equal(t, uint64(params.GenesisProof), g.Proof)
	assert.Empty(t, g.Transactions)
}

func TestBlockMarshalStringRoundTrip(t *testing.T) {
	b := Block{
		Index:        2,
		Timestamp:    "2026-01-01T00:00:00Z",
		Transactions: []Transaction{NewTransaction("alice", nil, nil)},
		Proof:        12345,
		PreviousHash: "deadbeef",
	}

	s, err := b.MarshalString()
	require.NoError(t, err)

	back, err := UnmarshalBlockString(s)
	require.NoError(t, err)

	assert.True(t, b.Equal(back))
}

func TestBlockHashStableUnderReserialization(t *testing.T) {
	b := Block{Index: 1, Timestamp: "t", PreviousHash: "p", Proof: 7}

	h1 := b.Hash()

	s, err := b.MarshalString()
	require.NoError(t, err)
	back, err := UnmarshalBlockString(s)
	require.NoError(t, err)

	assert.Equal(t, h1, back.Hash())
}

func TestBlockEqualIsFieldWise(t *testing.T) {
	a := Block{Index: 1, Timestamp: "t", PreviousHash: "p", Proof: 7}
	b := a
	assert.True(t, a.Equal(b))

	b.Proof = 8
	assert.False(t, a.Equal(b))
}

func TestRewardAndOrdinaryTransactionSplit(t *testing.T) {
	reward := NewTransaction(params.SystemRecipient, nil, nil)
	ordinary := NewTransaction("alice", nil, nil)
	b := Block{Transactions: []Transaction{reward, ordinary}}

	got, ok := b.RewardTransaction()
	require.True(t, ok)
	assert.Equal(t, reward.UUID, got.UUID)

	others := b.OrdinaryTransactions()
	require.Len(t, others, 1)
	assert.Equal(t, ordinary.UUID, others[0].UUID)
}

func TestEmptyBlockHasNoRewardTransaction(t *testing.T) {
	b := Block{}
	_, ok := b.RewardTransaction()
	assert.False(t, ok)
	assert.Nil(t, b.OrdinaryTransactions())
}
