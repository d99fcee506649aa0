package types

import (
	"time"

	"github.com/sjpacwa/sbchain-go/params"
)

// RewardBuilder is the mutable, in-progress form of a block's reward
// transaction (spec §9: "model the in-progress reward transaction as a
// distinct mutable builder type separate from the immutable committed
// form"). The miner folds inputs into it as transactions carrying
// reward-sink outputs are drained off the transaction queue; Snapshot
// freezes it into an ordinary Transaction once a proof is found.
type RewardBuilder struct {
	uuid   string
	owner  string
	inputs []Coin
	coin   *RewardCoin
}

// NewRewardBuilder starts a fresh reward transaction for a block about to
// be mined by owner.
func NewRewardBuilder(txUUID, owner string) *RewardBuilder {
	return &RewardBuilder{
		uuid:  txUUID,
		owner: owner,
		coin:  NewRewardCoin(owner, params.RewardCoinValue),
	}
}

// FoldInput folds a reward-sink coin's value into the in-progress reward
// coin, growing it (spec §4.7 step 2).
func (b *RewardBuilder) FoldInput(c Coin) {
	b.inputs = append(b.inputs, c)
	b.coin.Add(c.Value)
}

// Reset clears accumulated inputs and resets the reward coin to base value,
// used during resolve_conflicts rollback (spec §4.9 step 5).
func (b *RewardBuilder) Reset(baseValue int64) {
	b.inputs = nil
	b.coin = NewRewardCoin(b.owner, baseValue)
}

// Value returns the reward coin's current (possibly folded-up) value.
func (b *RewardBuilder) Value() int64 { return b.coin.Value() }

// Snapshot freezes the builder into an immutable RewardTransaction. The
// reward coin is paid out under the miner's own id, not params.SystemRecipient
// (that key is reserved for reward-sink *inputs* an ordinary transaction
// folds in), so by Transaction.computeValues()'s own categorization rule it
// counts toward OutputValue, not RewardValue — matching how the original
// reward transaction records its minted coin (original_source/transaction.py
// add_new_inputs: output_value = input_value + REWARD_COIN_VALUE).
func (b *RewardBuilder) Snapshot() Transaction {
	coin := b.coin.Snapshot(b.uuid)
	return Transaction{
		UUID:        b.uuid,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Sender:      params.SystemRecipient,
		Inputs:      append([]Coin(nil), b.inputs...),
		Outputs:     map[string][]Coin{b.owner: {coin}},
		InputValue:  Coins(b.inputs).Sum(),
		OutputValue: coin.Value,
		RewardValue: 0,
	}
}
