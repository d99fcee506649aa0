// Package node wires the chain store, history, peer set, RPC server and
// miner together and implements the named task handlers the server
// dispatches to (spec §2 component C6). It is the equivalent of the
// teacher's node.Node/ServiceContext composition root, generalized from a
// single Ethereum service registry to this ledger's handler table.
package node

import (
	"sync"

	"github.com/sjpacwa/sbchain-go/blockchain"
	"github.com/sjpacwa/sbchain-go/blockchain/types"
	"github.com/sjpacwa/sbchain-go/ledger"
	"github.com/sjpacwa/sbchain-go/log"
	"github.com/sjpacwa/sbchain-go/networks/p2p"
	"github.com/sjpacwa/sbchain-go/networks/rpc"
	"github.com/sjpacwa/sbchain-go/params"
	"github.com/sjpacwa/sbchain-go/queue"
	"github.com/sjpacwa/sbchain-go/work"
)

var nodeLog = log.New("module", "node")

// Config bundles the parameters a CLI entry point gathers before starting a
// node (spec §6 "CLI (collaborator)").
type Config struct {
	NodeID        string
	Host          string
	Port          int
	Config        *params.BlockchainConfig
	InitialPeers  []p2p.Peer
	WorkerPool    int
	BenchmarkMode bool
	NoMine        bool
}

// Node is the composition root: one RPC server, one peer set, one ledger
// (history + chain store behind a shared lock), and one miner.
type Node struct {
	id     string
	self   p2p.Peer
	ledger *ledger.Ledger
	peers  *p2p.PeerSet
	miner  *work.Miner
	server *rpc.Server

	resolveMu       sync.Mutex
	resolveRequests map[string]bool

	benchmarkMu   sync.Mutex
	benchmarkDone bool
}

// New builds a Node from cfg, registers its action table, but does not yet
// start listening or mining — call Start for that.
func New(cfg Config) *Node {
	self := p2p.Peer{Host: cfg.Host, Port: cfg.Port}
	chain := blockchain.New(cfg.Config)
	lg := ledger.New(cfg.NodeID, chain)
	peers := p2p.NewPeerSet(self)
	for _, p := range cfg.InitialPeers {
		peers.Add(p)
	}

	workerPool := cfg.WorkerPool
	if workerPool <= 0 {
		workerPool = params.DefaultWorkerPoolSize
	}

	n := &Node{
		id:              cfg.NodeID,
		self:            self,
		ledger:          lg,
		peers:           peers,
		resolveRequests: make(map[string]bool),
	}

	n.miner = work.New(work.Config{
		NodeID:        cfg.NodeID,
		Self:          self,
		Ledger:        lg,
		Peers:         peers,
		Trans:         queue.New[types.Transaction](),
		Blocks:        queue.New[work.BlockMessage](),
		BenchmarkMode: cfg.BenchmarkMode,
		NoMine:        cfg.NoMine,
	})

	n.server = rpc.NewServer(cfg.Host, cfg.Port, workerPool, n.actionTable())
	return n
}

// Start binds the RPC listener and launches the miner goroutine. It returns
// once the listener is bound; the miner and RPC workers keep running until
// the process exits (spec §5: "the miner loop runs until process exit").
func (n *Node) Start() error {
	if err := n.server.Start(); err != nil {
		return err
	}
	go n.miner.Run()
	nodeLog.Info("Node started", "id", n.id, "addr", n.server.Addr())
	return nil
}

// Stop closes the RPC listener. In-flight tasks still complete (spec §5).
func (n *Node) Stop() error {
	return n.server.Stop()
}

// Self returns this node's advertised peer address.
func (n *Node) Self() p2p.Peer { return n.self }

func (n *Node) actionTable() map[string]rpc.HandlerFunc {
	return map[string]rpc.HandlerFunc{
		"get_chain":                   n.handleGetChain,
		"get_chain_paginated":         n.handleGetChainPaginated,
		"get_block":                   n.handleGetBlock,
		"register_nodes":              n.handleRegisterNodes,
		"unregister_nodes":            n.handleUnregisterNodes,
		"new_transaction":             n.handleNewTransaction,
		"receive_transactions":        n.handleReceiveTransactions,
		"forward_transaction":         n.handleForwardTransaction,
		"receive_block":               n.handleReceiveBlock,
		"forward_block":               n.handleForwardBlock,
		"resolve_conflicts":           n.handleResolveConflicts,
		"resolve_conflicts_internal":  n.handleResolveConflictsInternal,
		"get_balance":                 n.handleGetBalance,
		"benchmark_initialize":        n.handleBenchmarkInitialize,
		"wait_test":                   n.handleWaitTest,
		"response_test":               n.handleResponseTest,
	}
}
