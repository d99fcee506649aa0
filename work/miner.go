// Package work is the miner (spec §2 component C7, §4.7): a long-running
// proof-of-work search that cooperatively drains the inbound transaction
// and block queues between attempts, resolves forks, and broadcasts mined
// blocks. The package name mirrors the teacher's own "work" package, which
// plays the same role for a very different consensus mechanism.
package work

import (
	"math/rand"
	"runtime"
	"time"

	uuid "github.com/satori/go.uuid"

	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/ledger"
	"github.com/sjpacwa/sbchain-go/log"
	"github.com/sjpacwa/sbchain-go/metrics"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/params"
	"github.com/sjpacwa/sbchain-go/queue"
	"github.com/sjpacwa/sbchain-go/verify"
)

var minerLog = log.New("module", "work")

// maxProof is the modulus the proof counter wraps around at (spec §4.7:
// "Start proof at a random integer in [0, maxsize]... increment proof
// modulo maxsize").
const maxProof = 1 << 62

// BlockMessage pairs a received block with the peer it arrived from, the
// unit carried on the blocks queue (spec §4.7 handle_blocks(origin, block)).
type BlockMessage struct {
	Origin p2p.Peer
	Block  types.Block
}

// Miner owns the blocks/trans queues' consumer side and runs the
// proof-of-work loop described in spec §4.7. It never terminates except
// with the process (spec §5).
type Miner struct {
	nodeID string
	self   p2p.Peer
	ledger *ledger.Ledger
	peers  *p2p.PeerSet

	trans  *queue.Queue[types.Transaction]
	blocks *queue.Queue[BlockMessage]

	benchmarkMode bool
	benchmarkGate chan struct{}

	noMine bool
}

// Config bundles the construction-time parameters for a Miner.
type Config struct {
	NodeID        string
	Self          p2p.Peer
	Ledger        *ledger.Ledger
	Peers         *p2p.PeerSet
	Trans         *queue.Queue[types.Transaction]
	Blocks        *queue.Queue[BlockMessage]
	BenchmarkMode bool
	NoMine        bool
}

// New builds a Miner from cfg.
func New(cfg Config) *Miner {
	m := &Miner{
		nodeID:        cfg.NodeID,
		self:          cfg.Self,
		ledger:        cfg.Ledger,
		peers:         cfg.Peers,
		trans:         cfg.Trans,
		blocks:        cfg.Blocks,
		benchmarkMode: cfg.BenchmarkMode,
		noMine:        cfg.NoMine,
	}
	if m.benchmarkMode {
		m.benchmarkGate = make(chan struct{})
	}
	return m
}

// ReleaseBenchmarkGate releases the miner's start semaphore exactly once,
// called by benchmark_initialize (spec §4.7, §6, §8 scenario 6).
func (m *Miner) ReleaseBenchmarkGate() {
	if m.benchmarkGate == nil {
		return
	}
	select {
	case <-m.benchmarkGate:
		// already closed
	default:
		close(m.benchmarkGate)
	}
}

// Run blocks forever, mining one block after another. In benchmark mode it
// first waits for ReleaseBenchmarkGate. If noMine is set (a collaborator
// "no-mine" startup flag, spec §6) it drains queues without ever searching
// for a proof, so the node still folds peer transactions/blocks into its
// local view without contending for proofs.
func (m *Miner) Run() {
	if m.benchmarkMode {
		<-m.benchmarkGate
	}
	for {
		m.mineOneBlock()
	}
}

func (m *Miner) mineOneBlock() {
	txUUID := uuid.NewV4().String()
	builder := types.NewRewardBuilder(txUUID, m.nodeID)
	m.ledger.With(func() {
		m.ledger.Chain.UpdateReward(builder.Snapshot())
	})

	proof := uint64(rand.Int63n(maxProof))

	for {
		var (
			minted        *types.Block
			restarted     bool
			forwardBlocks []types.Block
			txBatch       []types.Transaction
		)

		m.ledger.Lock()
		txBatch = m.trans.DrainAll()
		for _, tx := range txBatch {
			m.ledger.Chain.NewTransaction(tx)
			for _, c := range tx.Outputs[params.SystemRecipient] {
				builder.FoldInput(c)
			}
		}
		if len(txBatch) > 0 {
			m.ledger.Chain.UpdateReward(builder.Snapshot())
		}

		for _, bm := range m.blocks.DrainAll() {
			changed, tip := m.handleBlockLocked(bm, builder)
			if changed {
				restarted = true
				forwardBlocks = append(forwardBlocks, tip)
			}
		}

		if !restarted && !m.noMine {
			last := m.ledger.Chain.LastBlock()
			lastHash := last.Hash()
			ordinary := m.ledger.Chain.OrdinaryCurrentTransactions()
			metrics.ProofAttemptsCounter.Inc(1)
			if m.ledger.Chain.ValidProof(last.Proof, proof, lastHash, ordinary) {
				m.ledger.History.AddTransaction(builder.Snapshot())
				b := m.ledger.Chain.NewBlock(proof, lastHash, time.Now())
				minted = &b
			}
		}
		m.ledger.Unlock()

		if len(txBatch) > 0 {
			go m.forwardTransactions(txBatch)
		}
		for _, tip := range forwardBlocks {
			go m.forwardBlock(tip)
		}

		if restarted {
			return
		}
		if minted != nil {
			metrics.BlocksMinedCounter.Inc(1)
			minerLog.Info("Mined block", "index", minted.Index, "hash", minted.Hash())
			go m.broadcastReceivedBlock(*minted)
			return
		}
		if m.noMine {
			runtime.Gosched()
			time.Sleep(10 * time.Millisecond)
			continue
		}

		proof = (proof + 1) % maxProof
		runtime.Gosched()
	}
}

// handleBlockLocked implements spec §4.7 step 3. Caller must hold the
// ledger lock; the fork-resolution branch releases it while resolveConflicts
// runs (resolveConflicts takes the lock itself) and reacquires it before
// returning.
func (m *Miner) handleBlockLocked(bm BlockMessage, builder *types.RewardBuilder) (changed bool, tip types.Block) {
	last := m.ledger.Chain.LastBlock()

	switch {
	case bm.Block.Index == last.Index+1:
		snapshot, err := verify.Block(m.ledger.History, last, m.ledger.Chain.ValidProof, bm.Block)
		if err != nil {
			minerLog.Debug("Block rejected", "index", bm.Block.Index, "err", err)
			return false, types.Block{}
		}

		acceptedIDs := make(map[string]bool)
		if reward, ok := bm.Block.RewardTransaction(); ok {
			acceptedIDs[reward.UUID] = true
		}
		for _, tx := range bm.Block.OrdinaryTransactions() {
			acceptedIDs[tx.UUID] = true
		}
		var survivingPending []types.Transaction
		for i, tx := range m.ledger.Chain.CurrentTransactions() {
			if i == 0 {
				continue // drop our own in-progress reward attempt
			}
			if !acceptedIDs[tx.UUID] {
				survivingPending = append(survivingPending, tx)
			}
		}
		// reserve slot 0 for a fresh reward attempt the same way
		// resolveConflicts does, so OrdinaryCurrentTransactions never treats
		// survivingPending[0] as the reward slot.
		builder.Reset(params.RewardCoinValue)
		m.ledger.Chain.AddBlock(bm.Block)
		m.ledger.Chain.SetCurrentTransactions(append([]types.Transaction{builder.Snapshot()}, survivingPending...))
		m.ledger.History.ReplaceHistory(snapshot)
		metrics.BlocksAcceptedCounter.Inc(1)
		return true, bm.Block

	case bm.Block.Index > last.Index+1:
		m.ledger.Unlock()
		replaced := resolveConflicts(m.ledger, bm.Origin, builder)
		m.ledger.Lock()
		if replaced {
			metrics.ChainReplacementsCounter.Inc(1)
			return true, m.ledger.Chain.LastBlock()
		}
		return false, types.Block{}

	default:
		minerLog.Debug("Dropping stale or duplicate block", "index", bm.Block.Index, "our_tip", last.Index)
		return false, types.Block{}
	}
}

func (m *Miner) forwardTransactions(batch []types.Transaction) {
	conns := p2p.DialAll(m.peers.List())
	conns.SendWithoutResponse("forward_transaction", []interface{}{batch})
}

func (m *Miner) forwardBlock(block types.Block) {
	conns := p2p.DialAll(m.peers.List())
	conns.SendWithoutResponse("forward_block", []interface{}{block, m.self.Host, m.self.Port})
}

func (m *Miner) broadcastReceivedBlock(block types.Block) {
	conns := p2p.DialAll(m.peers.List())
	conns.SendWithoutResponse("receive_block", []interface{}{block, m.self.Host, m.self.Port})
}

// EnqueueTransaction adds a verified, already-committed transaction to the
// miner's trans queue (spec §5: "trans: producers = workers, consumer =
// miner only").
func (m *Miner) EnqueueTransaction(tx types.Transaction) {
	m.trans.Push(tx)
}

// EnqueueBlock adds a received block to the miner's blocks queue.
func (m *Miner) EnqueueBlock(origin p2p.Peer, block types.Block) {
	m.blocks.Push(BlockMessage{Origin: origin, Block: block})
}
