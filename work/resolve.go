package work

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/ledger"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/params"
	"github.com/sjpacwa/sbchain-go/verify"
)

// pageSize is how many blocks get_chain_paginated returns per window (spec
// §4.5).
const pageSize = 25

// chainPage mirrors the wire shape get_chain_paginated replies with: a
// newest-first window of blocks plus a status tag driving the client's loop
// (spec §4.5).
type chainPage struct {
	Section []types.Block `json:"section"`
	Status  string        `json:"status"`
}

const (
	statusInitial  = "INITIAL"
	statusContinue = "CONTINUE"
	statusFinished = "FINISHED"
	statusError    = "ERROR"
)

// resolveConflicts implements spec §4.9: fetch origin's chain in paginated
// windows, locate the common ancestor, and if origin's chain wins (longer,
// and every block from the ancestor forward verifies), replace ours. Returns
// whether the local chain/history were replaced.
func resolveConflicts(l *ledger.Ledger, origin p2p.Peer, inProgressReward *types.RewardBuilder) bool {
	conn, err := p2p.Dial(origin)
	if err != nil {
		minerLog.Warn("resolve_conflicts: could not reach origin", "peer", origin.Address(), "err", err)
		return false
	}
	defer conn.Close()

	fetched := make(map[uint64]types.Block)
	ancestorBoundary := false

	resp, err := conn.SendWithResponse("get_chain_paginated", []interface{}{pageSize})
	if err != nil {
		minerLog.Warn("resolve_conflicts: pagination request failed", "err", err)
		return false
	}
	page, err := decodeChainPage(resp)
	if err != nil || page.Status == statusError {
		minerLog.Warn("resolve_conflicts: bad pagination response", "err", err)
		return false
	}

	for {
		if len(page.Section) == 0 {
			break
		}
		for _, blk := range page.Section {
			fetched[blk.Index] = blk
		}
		oldest := page.Section[len(page.Section)-1]

		l.Lock()
		ourBlock, ok := l.Chain.GetBlock(oldest.Index)
		l.Unlock()
		if ok && ourBlock.PreviousHash == oldest.PreviousHash {
			conn.SendWithoutResponse("inform", map[string]string{"message": "STOP"})
			ancestorBoundary = true
			break
		}
		if page.Status == statusFinished {
			break
		}

		if err := conn.SendWithoutResponse("inform", map[string]string{"message": "ACK"}); err != nil {
			minerLog.Warn("resolve_conflicts: ack failed", "err", err)
			return false
		}
		raw, err := conn.Next()
		if err != nil {
			minerLog.Warn("resolve_conflicts: continuation read failed", "err", err)
			return false
		}
		page, err = decodeChainPage(raw)
		if err != nil || page.Status == statusError {
			return false
		}
	}
	_ = ancestorBoundary

	ancestorIndex, found := locateCommonAncestor(l, fetched)
	if !found {
		minerLog.Debug("resolve_conflicts: no common ancestor in fetched window")
		return false
	}

	l.Lock()
	chainClone := l.Chain.Clone()
	historySnap := l.History.GetCopy()
	savedPending := chainClone.CurrentTransactions()
	l.Unlock()

	// Pending transactions were recorded in history after the tip's blocks,
	// so they are rolled back first, newest first.
	for i := len(savedPending) - 1; i >= 0; i-- {
		if !savedPending[i].IsReward() {
			historySnap.RemoveTransaction(savedPending[i].UUID)
		}
	}

	for idx := chainClone.LastBlockIndex(); idx > ancestorIndex; idx-- {
		blk, ok := chainClone.GetBlock(idx)
		if !ok {
			continue
		}
		if reward, ok := blk.RewardTransaction(); ok {
			historySnap.RemoveTransaction(reward.UUID)
		}
		for _, tx := range blk.OrdinaryTransactions() {
			historySnap.RemoveTransaction(tx.UUID)
		}
	}
	truncated := append([]types.Block(nil), chainClone.Chain()[:ancestorIndex]...)
	chainClone.SetChain(truncated)
	chainClone.SetCurrentTransactions(nil)

	rollForwardIdx := sortedIndicesAbove(fetched, ancestorIndex)
	lastBlk := chainClone.LastBlock()
	for _, idx := range rollForwardIdx {
		candidate := fetched[idx]
		snap, err := verify.Block(historySnap, lastBlk, chainClone.ValidProof, candidate)
		if err != nil {
			minerLog.Debug("resolve_conflicts: candidate block failed verification", "index", idx, "err", err)
			return false
		}
		historySnap = snap
		chainClone.AddBlock(candidate)
		lastBlk = candidate
	}

	if chainClone.LastBlockIndex() <= func() uint64 { l.Lock(); defer l.Unlock(); return l.Chain.LastBlockIndex() }() {
		minerLog.Debug("resolve_conflicts: origin's chain is not longer, keeping ours")
		return false
	}

	var survivingPending []types.Transaction
	inProgressReward.Reset(params.RewardCoinValue)
	for _, tx := range savedPending {
		if tx.IsReward() {
			continue // the in-progress reward is rebuilt fresh below
		}
		if err := verify.Transaction(historySnap, tx); err != nil {
			continue
		}
		survivingPending = append(survivingPending, tx)
		historySnap.AddTransaction(tx)
	}

	l.Lock()
	l.Chain.SetChain(chainClone.Chain())
	l.Chain.SetCurrentTransactions(append([]types.Transaction{inProgressReward.Snapshot()}, survivingPending...))
	l.Chain.IncrementVersionNumber()
	l.History.ReplaceHistory(historySnap)
	l.Unlock()

	return true
}

func locateCommonAncestor(l *ledger.Ledger, fetched map[uint64]types.Block) (uint64, bool) {
	indices := make([]uint64, 0, len(fetched))
	for idx := range fetched {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	for _, idx := range indices {
		if idx == 0 {
			continue
		}
		l.Lock()
		ourPrev, ok := l.Chain.GetBlock(idx - 1)
		l.Unlock()
		if !ok {
			continue
		}
		if fetched[idx].PreviousHash == ourPrev.Hash() {
			return idx - 1, true
		}
	}
	return 0, false
}

func sortedIndicesAbove(fetched map[uint64]types.Block, floor uint64) []uint64 {
	indices := make([]uint64, 0, len(fetched))
	for idx := range fetched {
		if idx > floor {
			indices = append(indices, idx)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

func decodeChainPage(raw json.RawMessage) (chainPage, error) {
	var page chainPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return chainPage{}, errors.Wrap(err, "decoding chain page")
	}
	return page, nil
}
