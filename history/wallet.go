// Package history holds the canonical view of every coin and transaction
// this node has ever accepted, plus this node's own spendable coin set (the
// wallet). Both are guarded by locks; wallet.lock nests strictly inside
// history.lock when a caller must hold both (spec §5).
package history

import (
	"sort"
	"sync"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
)

// Wallet is this node's sorted, spendable coin set. Coins are kept sorted
// ascending by value so get_coins can greedily pop from the high-value tail
// (spec §4.3).
type Wallet struct {
	mu      sync.Mutex
	coins   types.Coins
	index   map[string]int // coin uuid -> position in coins
	balance int64
}

// NewWallet returns an empty wallet.
func NewWallet() *Wallet {
	return &Wallet{index: make(map[string]int)}
}

// AddCoin inserts c into the wallet, keeping coins sorted by value.
func (w *Wallet) AddCoin(c types.Coin) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.addCoinLocked(c)
}

func (w *Wallet) addCoinLocked(c types.Coin) {
	w.coins = append(w.coins, c)
	sort.Sort(w.coins)
	w.reindexLocked()
	w.balance += c.Value
}

func (w *Wallet) reindexLocked() {
	for i, c := range w.coins {
		w.index[c.UUID] = i
	}
}

// RemoveCoin removes the coin with the given uuid from the wallet, if
// present.
func (w *Wallet) RemoveCoin(coinUUID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeCoinLocked(coinUUID)
}

func (w *Wallet) removeCoinLocked(coinUUID string) {
	i, ok := w.index[coinUUID]
	if !ok {
		return
	}
	w.balance -= w.coins[i].Value
	w.coins = append(w.coins[:i], w.coins[i+1:]...)
	delete(w.index, coinUUID)
	w.reindexLocked()
}

// GetCoins greedily selects coins from the high-value tail until their
// cumulative value is at least targetValue. It returns the selected coins,
// the overshoot ("change"), and whether selection succeeded; on
// insufficient funds it returns ok=false without mutating the wallet.
func (w *Wallet) GetCoins(targetValue int64) (selected types.Coins, change int64, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if targetValue < 0 {
		return nil, 0, false
	}
	if w.balance < targetValue {
		return nil, 0, false
	}

	remaining := append(types.Coins(nil), w.coins...)
	var picked types.Coins
	var cumulative int64
	for cumulative < targetValue && len(remaining) > 0 {
		last := remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
		picked = append(picked, last)
		cumulative += last.Value
	}
	if cumulative < targetValue {
		return nil, 0, false
	}

	for _, c := range picked {
		w.removeCoinLocked(c.UUID)
	}

	return picked, cumulative - targetValue, true
}

// GetBalance returns the wallet's cached balance.
func (w *Wallet) GetBalance() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// Reset clears all wallet state.
func (w *Wallet) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.coins = nil
	w.index = make(map[string]int)
	w.balance = 0
}

// snapshot returns a deep copy of the wallet's coin list for GetCopy.
func (w *Wallet) snapshot() *Wallet {
	w.mu.Lock()
	defer w.mu.Unlock()
	clone := NewWallet()
	for _, c := range w.coins {
		clone.addCoinLocked(c)
	}
	return clone
}
