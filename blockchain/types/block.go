package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/sjpacwa/sbchain-go/params"
)

// Block is an ordered set of transactions sealed by a proof-of-work. Its
// canonical JSON encoding is what Hash hashes; Transactions[0] is always the
// block's reward transaction (spec §3).
type Block struct {
	Index        uint64        `json:"index"`
	Timestamp    string        `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	Proof        uint64        `json:"proof"`
	PreviousHash string        `json:"previous_hash"`
}

// Genesis returns the fixed first block of every chain.
func Genesis() Block {
	return Block{
		Index:        1,
		Timestamp:    params.GenesisTimestamp,
		Transactions: []Transaction{},
		Proof:        params.GenesisProof,
		PreviousHash: params.GenesisPreviousHash,
	}
}

// RewardTransaction returns the block's reward transaction (transactions[0])
// and whether one is present.
func (b Block) RewardTransaction() (Transaction, bool) {
	if len(b.Transactions) == 0 {
		return Transaction{}, false
	}
	return b.Transactions[0], true
}

// OrdinaryTransactions returns transactions[1:], the non-reward content of
// the block.
func (b Block) OrdinaryTransactions() []Transaction {
	if len(b.Transactions) <= 1 {
		return nil
	}
	return b.Transactions[1:]
}

// Equal reports whether b and other are identical across all five
// attributes (spec §3: "Equality is field-wise over all five attributes").
func (b Block) Equal(other Block) bool {
	lhs, err1 := b.canonicalJSON()
	rhs, err2 := other.canonicalJSON()
	if err1 != nil || err2 != nil {
		return false
	}
	return string(lhs) == string(rhs)
}

// canonicalJSON returns the stable JSON encoding used for both hashing and
// equality. encoding/json already serializes struct fields in declaration
// order and map keys in sorted order, which is exactly the canonicalization
// this format needs.
func (b Block) canonicalJSON() ([]byte, error) {
	return json.Marshal(b)
}

// Hash returns the hex-encoded SHA-256 digest of the block's canonical JSON
// form. Stable under re-serialization, as required by spec §8.
func (b Block) Hash() string {
	data, err := b.canonicalJSON()
	if err != nil {
		// canonicalJSON can only fail on a Block holding an unmarshalable
		// value, which Coin/Transaction/Block never do.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MarshalString round-trips the block to its wire string form.
func (b Block) MarshalString() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalBlockString parses the wire string form back into a Block.
func UnmarshalBlockString(s string) (Block, error) {
	var b Block
	err := json.Unmarshal([]byte(s), &b)
	return b, err
}
