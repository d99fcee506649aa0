// Package blockchain is the chain store (spec §3, §4.4): the ordered list of
// blocks, the pending-transaction pool, and the version counter used to
// invalidate in-flight pagination. None of its methods are thread-safe on
// their own — per spec §4.4/§5, callers serialize chain mutations against
// history mutations by holding the history lock for the duration of any
// compound operation.
package blockchain

import (
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/params"
)

// Blockchain is the ordered sequence of blocks plus the current-transaction
// pool. Slot 0 of the pool is reserved for the in-progress reward
// transaction while mining.
type Blockchain struct {
	chain               []types.Block
	currentTransactions []types.Transaction
	versionNumber       uint64
	config              *params.BlockchainConfig
}

// New creates a chain store seeded with the genesis block.
func New(config *params.BlockchainConfig) *Blockchain {
	return &Blockchain{
		chain:  []types.Block{types.Genesis()},
		config: config,
	}
}

// NewBlock constructs a block from the current pool, clears the pool, and
// appends the block to the chain (spec §4.4 new_block).
func (b *Blockchain) NewBlock(proof uint64, previousHash string, timestamp time.Time) types.Block {
	block := types.Block{
		Index:        uint64(len(b.chain)) + 1,
		Timestamp:    timestamp.UTC().Format(time.RFC3339),
		Transactions: b.currentTransactions,
		Proof:        proof,
		PreviousHash: previousHash,
	}
	b.currentTransactions = nil
	b.chain = append(b.chain, block)
	return block
}

// AddBlock appends an externally constructed block without touching the
// pending-transaction pool (spec §4.4 add_block).
func (b *Blockchain) AddBlock(block types.Block) {
	b.chain = append(b.chain, block)
}

// AddGenesisTransaction splices tx into the genesis block's transaction list
// (spec §8 scenario 6: "genesis block gains one transaction"), used by
// benchmark_initialize to record where its seeded coins came from. This
// changes genesis's hash, so it is only safe to call before any block
// extends it — benchmark mode's miner start gate guarantees that.
func (b *Blockchain) AddGenesisTransaction(tx types.Transaction) {
	genesis := b.chain[0]
	genesis.Transactions = append(genesis.Transactions, tx)
	b.chain[0] = genesis
}

// NewTransaction appends tx to the pending pool and returns the index of the
// block it will land in.
func (b *Blockchain) NewTransaction(tx types.Transaction) uint64 {
	b.currentTransactions = append(b.currentTransactions, tx)
	return b.LastBlockIndex() + 1
}

// UpdateReward installs rewardTx as pool slot 0, overwriting any previous
// in-progress reward transaction. If slot 0 holds an ordinary transaction,
// the pool shifts back by one instead.
func (b *Blockchain) UpdateReward(rewardTx types.Transaction) {
	if len(b.currentTransactions) == 0 || !b.currentTransactions[0].IsReward() {
		b.currentTransactions = append([]types.Transaction{rewardTx}, b.currentTransactions...)
		return
	}
	b.currentTransactions[0] = rewardTx
}

// CurrentTransactions returns the pending-transaction pool.
func (b *Blockchain) CurrentTransactions() []types.Transaction {
	return b.currentTransactions
}

// SetCurrentTransactions replaces the pending pool wholesale, used by
// resolve_conflicts when rolling pending transactions onto a new tip (spec
// §4.9 step 7).
func (b *Blockchain) SetCurrentTransactions(txs []types.Transaction) {
	b.currentTransactions = txs
}

// OrdinaryCurrentTransactions returns the pending pool excluding slot 0 (the
// in-progress reward transaction), used when computing the proof-of-work
// digest (spec §4.4).
func (b *Blockchain) OrdinaryCurrentTransactions() []types.Transaction {
	if len(b.currentTransactions) <= 1 {
		return nil
	}
	return b.currentTransactions[1:]
}

// LastBlock returns the most recently appended block.
func (b *Blockchain) LastBlock() types.Block {
	return b.chain[len(b.chain)-1]
}

// LastBlockIndex returns the index of the most recently appended block.
func (b *Blockchain) LastBlockIndex() uint64 {
	return b.LastBlock().Index
}

// GetBlock returns the block at the given 1-based index, or false if out of
// range.
func (b *Blockchain) GetBlock(index uint64) (types.Block, bool) {
	if index < 1 || index > uint64(len(b.chain)) {
		return types.Block{}, false
	}
	return b.chain[index-1], true
}

// Length returns the number of blocks in the chain.
func (b *Blockchain) Length() int {
	return len(b.chain)
}

// Chain returns the full chain slice. Callers must not mutate it.
func (b *Blockchain) Chain() []types.Block {
	return b.chain
}

// SetChain replaces the chain wholesale, used when committing a replacement
// chain during fork resolution.
func (b *Blockchain) SetChain(chain []types.Block) {
	b.chain = chain
}

// ValidProof reports whether the proof-of-work digest for
// (lastProof, proof, lastHash, currentTransactions) has enough leading hex
// zeroes for this chain's configured difficulty (spec §4.4).
func (b *Blockchain) ValidProof(lastProof, proof uint64, lastHash string, currentTransactions []types.Transaction) bool {
	digest, err := types.ProofDigest(lastProof, proof, lastHash, currentTransactions)
	if err != nil {
		return false
	}
	return types.ValidProof(digest, b.config.DifficultyLevel())
}

// Difficulty returns the configured proof-of-work difficulty.
func (b *Blockchain) Difficulty() int {
	return b.config.DifficultyLevel()
}

// GetVersionNumber returns the chain's current version number.
func (b *Blockchain) GetVersionNumber() uint64 {
	return b.versionNumber
}

// IncrementVersionNumber bumps the version number, signalling in-flight
// paginated readers to restart (spec §4.4, §4.5).
func (b *Blockchain) IncrementVersionNumber() {
	b.versionNumber++
}

// SetVersionNumber forces the version number, used when committing a
// resolve_conflicts replacement atomically with the new chain (spec §4.9
// step 8).
func (b *Blockchain) SetVersionNumber(v uint64) {
	b.versionNumber = v
}

// Clone returns a deep copy of the chain store, used for speculative fork
// resolution (spec §4.9 step 5). The block/transaction slices nest coin
// maps several levels deep, so a manual field-by-field copy would be easy to
// under-copy as the types evolve; copystructure.Copy walks the value
// reflectively instead.
func (b *Blockchain) Clone() *Blockchain {
	chainCopy, err := copystructure.Copy(b.chain)
	if err != nil {
		panic(err)
	}
	txCopy, err := copystructure.Copy(b.currentTransactions)
	if err != nil {
		panic(err)
	}
	return &Blockchain{
		chain:               chainCopy.([]types.Block),
		currentTransactions: txCopy.([]types.Transaction),
		versionNumber:       b.versionNumber,
		config:              b.config,
	}
}
