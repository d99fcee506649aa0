package history

import (
	"github.com/mitchellh/copystructure"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
)

// History is the canonical map of live coins and every transaction ever
// accepted by this node, plus its Wallet. Like blockchain.Blockchain, its
// methods are not safe for concurrent use by themselves: callers serialize
// mutations through the owning ledger.Ledger's lock, which is what spec §5
// calls "history.lock" — the same lock that also guards the chain store's
// pool/chain, since the two must move together (spec §3, §5). Wallet keeps
// its own nested lock, strictly inside the ledger lock when both are held.
type History struct {
	nodeID       string
	coins        map[string]types.Coin
	transactions map[string]types.Transaction
	wallet       *Wallet
}

// New creates an empty History scoped to nodeID — the node's own id, used
// to decide which coins and transactions belong in its wallet.
func New(nodeID string) *History {
	return &History{
		nodeID:       nodeID,
		coins:        make(map[string]types.Coin),
		transactions: make(map[string]types.Transaction),
		wallet:       NewWallet(),
	}
}

// Wallet returns this node's wallet.
func (h *History) Wallet() *Wallet { return h.wallet }

// NodeID returns the node id this history is scoped to.
func (h *History) NodeID() string { return h.nodeID }

// GetCoin looks up a live coin by uuid.
func (h *History) GetCoin(coinUUID string) (types.Coin, bool) {
	c, ok := h.coins[coinUUID]
	return c, ok
}

// GetTransaction looks up a transaction by uuid. Satisfies
// types.TransactionLookup so Transaction.Verify can use a *History
// directly.
func (h *History) GetTransaction(txUUID string) (types.Transaction, bool) {
	t, ok := h.transactions[txUUID]
	return t, ok
}

// HasTransaction reports whether a transaction with this uuid was already
// accepted.
func (h *History) HasTransaction(txUUID string) bool {
	_, ok := h.transactions[txUUID]
	return ok
}

// AddCoin unconditionally inserts a live coin, bypassing the wallet and
// transaction bookkeeping AddTransaction performs. benchmark_initialize
// does not use it; it records its seed coins through AddTransaction.
func (h *History) AddCoin(c types.Coin) {
	h.coins[c.UUID] = c
}

// AddTransaction records tx as accepted: its input coins stop being live,
// its output coins become live, and if this node is a party to the
// transaction its wallet is updated (spec §4.3 add_transaction).
func (h *History) AddTransaction(tx types.Transaction) {
	for _, c := range tx.Inputs {
		delete(h.coins, c.UUID)
	}
	for _, c := range tx.AllOutputCoins() {
		h.coins[c.UUID] = c
	}
	h.transactions[tx.UUID] = tx

	if tx.Sender == h.nodeID {
		for _, c := range tx.Inputs {
			h.wallet.RemoveCoin(c.UUID)
		}
	}
	for recipient, coins := range tx.Outputs {
		if recipient != h.nodeID {
			continue
		}
		for _, c := range coins {
			h.wallet.AddCoin(c)
		}
	}
}

// RemoveTransaction undoes AddTransaction: input coins become live again,
// output coins stop being live, wallet effects are reversed, and the
// transaction record is deleted. Used only during fork rollback (spec
// §4.7, §4.9).
func (h *History) RemoveTransaction(txUUID string) {
	tx, ok := h.transactions[txUUID]
	if !ok {
		return
	}

	if tx.Sender == h.nodeID {
		for _, c := range tx.Inputs {
			h.wallet.AddCoin(c)
		}
	}
	for recipient, coins := range tx.Outputs {
		if recipient != h.nodeID {
			continue
		}
		for _, c := range coins {
			h.wallet.RemoveCoin(c.UUID)
		}
	}

	for _, c := range tx.AllOutputCoins() {
		delete(h.coins, c.UUID)
	}
	for _, c := range tx.Inputs {
		h.coins[c.UUID] = c
	}
	delete(h.transactions, txUUID)
}

// GetCopy returns a deep, self-consistent snapshot of this history, safe to
// mutate independently — used by the miner and resolve_conflicts while
// speculatively rolling back and replaying blocks (spec §4.7, §4.9).
func (h *History) GetCopy() *History {
	coinsCopy, err := copystructure.Copy(h.coins)
	if err != nil {
		panic(err)
	}
	txCopy, err := copystructure.Copy(h.transactions)
	if err != nil {
		panic(err)
	}
	return &History{
		nodeID:       h.nodeID,
		coins:        coinsCopy.(map[string]types.Coin),
		transactions: txCopy.(map[string]types.Transaction),
		wallet:       h.wallet.snapshot(),
	}
}

// ReplaceHistory atomically replaces h's coin/transaction maps and wallet
// with snap's, committing a speculative snapshot (spec §4.9 step 8).
func (h *History) ReplaceHistory(snap *History) {
	h.coins = snap.coins
	h.transactions = snap.transactions
	h.wallet = snap.wallet
}

// Reset clears all history and wallet state (benchmark and test reuse).
func (h *History) Reset() {
	h.coins = make(map[string]types.Coin)
	h.transactions = make(map[string]types.Transaction)
	h.wallet.Reset()
}
