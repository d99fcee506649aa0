package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sjpacwa/sbchain-go/blockchain"
	"github.com/sjpacwa/sbchain-go/params"
)

func TestWithRunsExclusively(t *testing.T) {
	l := New("node-1", blockchain.New(params.NewBlockchainConfig(0)))

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.With(func() {
				counter++
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLockUnlockGuardsChainAndHistoryTogether(t *testing.T) {
	l := New("node-1", blockchain.New(params.NewBlockchainConfig(0)))

	l.Lock()
	assert.Equal(t, 1, l.Chain.Length())
	assert.Equal(t, "node-1", l.History.NodeID())
	l.Unlock()
}
