// Package verify implements the transaction/block verification pipeline
// (spec §2 component C6(e), §4.8) that protects history and the chain store
// from invalid input. It never mutates the live history itself — callers
// commit the snapshot verify hands back once they've decided to accept it.
package verify

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/history"
)

// Transaction verifies tx against h (which may be the live history or a
// speculative snapshot) per spec §4.8's non-reward semantics: (a) no prior
// transaction with the same uuid, (b) every input coin present in history
// with matching (value, transaction_id) — i.e. still live and unspent, (c)
// no output coin already present in history, (d) the value equation and
// provenance checks from types.Transaction.Verify. It does not mutate h;
// the caller commits via h.AddTransaction once satisfied.
func Transaction(h *history.History, tx types.Transaction) error {
	if h.HasTransaction(tx.UUID) {
		return errors.New("transaction verification failed: duplicate uuid")
	}

	for _, input := range tx.Inputs {
		live, ok := h.GetCoin(input.UUID)
		if !ok {
			return errors.New("transaction verification failed: input coin not live")
		}
		if live.Value != input.Value || live.TransactionID != input.TransactionID {
			return errors.New("transaction verification failed: input coin mismatch")
		}
	}

	for _, output := range tx.AllOutputCoins() {
		if _, ok := h.GetCoin(output.UUID); ok {
			return errors.New("transaction verification failed: output coin already exists")
		}
	}

	if err := tx.Verify(h); err != nil {
		return errors.Wrap(err, "transaction verification failed")
	}

	return nil
}

// Block verifies an incoming block against the current tip (lastBlock) and
// a difficulty validator, on a disposable snapshot of h (spec §4.8). On
// success it returns the snapshot with every transaction in the block
// folded in, ready to be committed by the caller; on failure it returns nil
// and live state is untouched.
func Block(h *history.History, lastBlock types.Block, validProof func(lastProof, proof uint64, lastHash string, txs []types.Transaction) bool, block types.Block) (*history.History, error) {
	snapshot := h.GetCopy()

	for _, tx := range block.OrdinaryTransactions() {
		if existing, ok := snapshot.GetTransaction(tx.UUID); ok {
			if !identicalJSON(existing, tx) {
				return nil, errors.New("block rejected: conflicting duplicate transaction")
			}
			continue
		}
		if err := Transaction(snapshot, tx); err != nil {
			return nil, errors.Wrap(err, "block rejected")
		}
		snapshot.AddTransaction(tx)
	}

	reward, ok := block.RewardTransaction()
	if !ok {
		return nil, errors.New("block rejected: missing reward transaction")
	}
	if snapshot.HasTransaction(reward.UUID) {
		return nil, errors.New("block rejected: duplicate block replay")
	}
	if err := reward.Verify(snapshot); err != nil {
		return nil, errors.Wrap(err, "block rejected: bad reward transaction")
	}
	snapshot.AddTransaction(reward)

	lastHash := lastBlock.Hash()
	if block.PreviousHash != lastHash {
		return nil, errors.New("block rejected: hash mismatch")
	}
	if !validProof(lastBlock.Proof, block.Proof, lastHash, block.OrdinaryTransactions()) {
		return nil, errors.New("block rejected: bad proof")
	}

	return snapshot, nil
}

func identicalJSON(a, b types.Transaction) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
