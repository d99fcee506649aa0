// Package types holds the immutable, content-addressed ledger primitives:
// Coin, Transaction and Block. Their JSON encoding is the wire and hashing
// format for the whole node, so field order and naming here are load
// bearing — Go already serializes struct fields in declaration order and
// map keys in sorted order, which is what makes encoding/json a canonical
// encoder for these types without any extra canonicalization library.
package types

import uuid "github.com/satori/go.uuid"

// Coin is an indivisible unit of currency identified by UUID, carrying a
// value and a reference to the transaction that created it.
type Coin struct {
	UUID          string `json:"uuid"`
	TransactionID string `json:"transaction_id"`
	Value         int64  `json:"value"`
}

// NewCoin mints a fresh coin referencing txID.
func NewCoin(txID string, value int64) Coin {
	return Coin{UUID: uuid.NewV4().String(), TransactionID: txID, Value: value}
}

// Equal reports whether c and other describe the same coin, field-wise.
func (c Coin) Equal(other Coin) bool {
	return c.UUID == other.UUID && c.TransactionID == other.TransactionID && c.Value == other.Value
}

// Coins is a slice of Coin sortable by ascending value, used by wallet coin
// selection (§4.3 get_coins picks from the high-value tail).
type Coins []Coin

func (c Coins) Len() int           { return len(c) }
func (c Coins) Less(i, j int) bool { return c[i].Value < c[j].Value }
func (c Coins) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

// Sum returns the total value of coins.
func (c Coins) Sum() int64 {
	var total int64
	for _, coin := range c {
		total += coin.Value
	}
	return total
}

// RewardCoin is the mutable builder form of a Coin used while a block is
// still being mined: its value grows every time a transaction with a
// reward-sink output is folded into the in-progress reward transaction
// (spec §4.7, §9 "reward coin mutation"). It is never itself serialized to
// the wire — only the Coin snapshot taken when the block is committed is.
type RewardCoin struct {
	uuid  string
	owner string
	value int64
}

// NewRewardCoin starts a reward coin worth value, owned by owner (the
// mining node's id).
func NewRewardCoin(owner string, value int64) *RewardCoin {
	return &RewardCoin{uuid: uuid.NewV4().String(), owner: owner, value: value}
}

// Add grows the reward coin's value by delta.
func (r *RewardCoin) Add(delta int64) {
	r.value += delta
}

// Value returns the coin's current value.
func (r *RewardCoin) Value() int64 { return r.value }

// Snapshot freezes the reward coin as an immutable Coin referencing txID.
func (r *RewardCoin) Snapshot(txID string) Coin {
	return Coin{UUID: r.uuid, TransactionID: txID, Value: r.value}
}
