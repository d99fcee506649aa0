package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinJSONRoundTrip(t *testing.T) {
	c := NewCoin("tx-1", 42)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back Coin
	require.NoError(t, json.Unmarshal(data, &back))

	assert.True(t, c.Equal(back))
}

func TestCoinsSumAndSwap(t *testing.T) {
	coins := Coins{
		{UUID: "a", Value: 5},
		{UUID: "b", Value: 1},
		{UUID: "c", Value: 3},
	}
	assert.Equal(t, int64(9), coins.Sum())

	sorted := append(Coins(nil), coins...)
	sorted.Swap(0, 1)
	assert.Equal(t, "a", sorted[1].UUID)
}

func TestRewardCoinFoldsValues(t *testing.T) {
	r := NewRewardCoin("node-1", 5)
	r.Add(3)
	r.Add(2)
	assert.Equal(t, int64(10), r.Value())

	snap := r.Snapshot("tx-reward")
	assert.Equal(t, "tx-reward", snap.TransactionID)
	assert.Equal(t, int64(10), snap.Value)
}
