package types

import (
	"sort"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/sjpacwa/sbchain-go/params"
)

// Transaction moves value from a sender's inputs to a set of recipients.
// The reserved recipient key params.SystemRecipient marks the block-reward
// sink: coins output under that key contribute to RewardValue, not
// OutputValue. A RewardTransaction is a Transaction whose Sender is
// params.SystemRecipient and whose single output coin is recomputed as
// sum(inputs)+params.RewardCoinValue every time inputs are folded in.
type Transaction struct {
	UUID        string           `json:"uuid"`
	Timestamp   string           `json:"timestamp"`
	Sender      string           `json:"sender"`
	Inputs      []Coin           `json:"inputs"`
	Outputs     map[string][]Coin `json:"outputs"`
	InputValue  int64            `json:"input_value"`
	OutputValue int64            `json:"output_value"`
	RewardValue int64            `json:"reward_value"`
}

// NewTransaction builds a transaction from its inputs and outputs, computing
// the cached input/output/reward totals.
func NewTransaction(sender string, inputs []Coin, outputs map[string][]Coin) Transaction {
	t := Transaction{
		UUID:      uuid.NewV4().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Sender:    sender,
		Inputs:    inputs,
		Outputs:   outputs,
	}
	t.InputValue, t.OutputValue, t.RewardValue = t.computeValues()
	return t
}

// NewTransactionWithUUID builds a transaction like NewTransaction, but with a
// caller-supplied uuid instead of a freshly generated one. new_transaction
// (spec §4.6) needs this: the output/change/reward-sink coins must all carry
// transaction_id == the transaction's own uuid, so the uuid has to exist
// before those coins are minted.
func NewTransactionWithUUID(txUUID, sender string, inputs []Coin, outputs map[string][]Coin) Transaction {
	t := Transaction{
		UUID:      txUUID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Sender:    sender,
		Inputs:    inputs,
		Outputs:   outputs,
	}
	t.InputValue, t.OutputValue, t.RewardValue = t.computeValues()
	return t
}

// IsReward reports whether t is the block's reward transaction.
func (t Transaction) IsReward() bool {
	return t.Sender == params.SystemRecipient
}

// computeValues recomputes input/output/reward totals directly from Inputs
// and Outputs, ignoring any cached fields — this is what Verify checks
// against, so a tampered cache can never pass verification.
func (t Transaction) computeValues() (inputValue, outputValue, rewardValue int64) {
	for _, c := range t.Inputs {
		inputValue += c.Value
	}
	for recipient, coins := range t.Outputs {
		for _, c := range coins {
			if recipient == params.SystemRecipient {
				rewardValue += c.Value
			} else {
				outputValue += c.Value
			}
		}
	}
	return
}

// AllOutputCoins returns every output coin across all recipients, in a
// stable (recipient-sorted) order.
func (t Transaction) AllOutputCoins() []Coin {
	recipients := make([]string, 0, len(t.Outputs))
	for r := range t.Outputs {
		recipients = append(recipients, r)
	}
	sort.Strings(recipients)

	var coins []Coin
	for _, r := range recipients {
		coins = append(coins, t.Outputs[r]...)
	}
	return coins
}

// TransactionLookup is the minimal read surface Verify needs from a history
// store: find the transaction that created a given coin, to confirm that
// coin really was owned by the supposed sender.
type TransactionLookup interface {
	GetTransaction(uuid string) (Transaction, bool)
}

// ownedBySender reports whether coin, per the transaction that minted it
// (looked up through lookup), was in fact output to owner.
func ownedBySender(lookup TransactionLookup, coin Coin, owner string) bool {
	origin, ok := lookup.GetTransaction(coin.TransactionID)
	if !ok {
		return false
	}
	for _, c := range origin.Outputs[owner] {
		if c.UUID == coin.UUID {
			return true
		}
	}
	return false
}

// Verify checks the value equation and ownership/provenance invariants
// described in spec §3 and §4.8. It does not consult whether inputs are
// still live (unspent) in history — that double-spend check is the job of
// the caller (history.AddTransaction's precondition), since it requires the
// live-coin map rather than the immutable transaction-provenance map this
// interface exposes.
func (t Transaction) Verify(lookup TransactionLookup) error {
	inputValue, outputValue, rewardValue := t.computeValues()

	if inputValue < 0 || outputValue < 0 || rewardValue < 0 {
		return errVerification("negative value in transaction")
	}

	if t.IsReward() {
		if inputValue+params.RewardCoinValue != outputValue+rewardValue {
			return errVerification("reward value equation does not hold")
		}
	} else {
		if inputValue != outputValue+rewardValue {
			return errVerification("value equation does not hold")
		}
		for _, c := range t.Inputs {
			if !ownedBySender(lookup, c, t.Sender) {
				return errVerification("input coin not owned by sender")
			}
		}
	}

	for _, c := range t.AllOutputCoins() {
		if c.TransactionID != t.UUID {
			return errVerification("output coin references wrong transaction")
		}
	}

	return nil
}

type verificationError string

func (e verificationError) Error() string { return string(e) }

func errVerification(msg string) error { return verificationError(msg) }
