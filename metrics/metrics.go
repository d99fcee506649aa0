// Package metrics is a thin wrapper over rcrowley/go-metrics, mirroring the
// teacher's "metrics.NewRegisteredCounter(name, nil)" convention
// (work/worker.go) for the handful of counters this node tracks.
package metrics

import "github.com/rcrowley/go-metrics"

// Counter is an incrementable count, registered in the default registry.
type Counter = metrics.Counter

// NewRegisteredCounter creates and registers a new Counter under name.
func NewRegisteredCounter(name string) Counter {
	return metrics.NewRegisteredCounter(name, nil)
}

var (
	// BlocksMinedCounter counts blocks this node has successfully mined.
	BlocksMinedCounter = NewRegisteredCounter("miner/blocksmined")
	// ProofAttemptsCounter counts proof-of-work iterations attempted.
	ProofAttemptsCounter = NewRegisteredCounter("miner/proofattempts")
	// TransactionsAcceptedCounter counts transactions accepted through the
	// receive path (new_transaction, receive_transactions,
	// forward_transaction); transactions arriving inside blocks are not
	// counted.
	TransactionsAcceptedCounter = NewRegisteredCounter("ledger/transactionsaccepted")
	// BlocksAcceptedCounter counts peer blocks appended directly onto the
	// tip. Locally mined blocks are counted by BlocksMinedCounter and chain
	// replacements by ChainReplacementsCounter.
	BlocksAcceptedCounter = NewRegisteredCounter("ledger/blocksaccepted")
	// ChainReplacementsCounter counts successful resolve_conflicts chain
	// replacements.
	ChainReplacementsCounter = NewRegisteredCounter("ledger/chainreplacements")
)
