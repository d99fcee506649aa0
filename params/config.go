// Package params holds the node's static configuration: values read once
// from config.ini at startup (mirrors original_source/blockchainConfig.py)
// and the protocol constants named in the spec.
package params

import (
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const (
	// RewardCoinValue is the value minted for the miner of a block.
	RewardCoinValue = 5

	// BufferSize is the read chunk size used by the framed connection layer.
	BufferSize = 256

	// DefaultWorkerPoolSize is the number of RPC worker goroutines started
	// when a node does not override it.
	DefaultWorkerPoolSize = 10

	// SystemRecipient is the reserved output key denoting the block-reward
	// sink; coins addressed to it contribute to a transaction's reward
	// value instead of its output value.
	SystemRecipient = "SYSTEM"

	// GenesisPreviousHash, GenesisProof and GenesisTimestamp are the fixed
	// attributes of the first block of every chain.
	GenesisPreviousHash = "1"
	GenesisProof        = 100
	GenesisTimestamp    = "0001-01-01T00:00:00Z"

	// MaxDifficulty bounds the clamp applied to the configured difficulty.
	MaxDifficulty = 256
	MinDifficulty = 0
)

// BlockchainConfig exposes the handful of values read from config.ini.
type BlockchainConfig struct {
	difficulty int
}

// LoadBlockchainConfig reads the [General] difficulty key from the ini file
// at path, clamping it to [MinDifficulty, MaxDifficulty].
func LoadBlockchainConfig(path string) (*BlockchainConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading blockchain config %s", path)
	}
	difficulty, err := cfg.Section("General").Key("difficulty").Int()
	if err != nil {
		return nil, errors.Wrap(err, "parsing difficulty")
	}
	return &BlockchainConfig{difficulty: clampDifficulty(difficulty)}, nil
}

// NewBlockchainConfig builds a config directly from an in-memory difficulty,
// useful for tests and benchmark nodes that skip config.ini entirely.
func NewBlockchainConfig(difficulty int) *BlockchainConfig {
	return &BlockchainConfig{difficulty: clampDifficulty(difficulty)}
}

func clampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// DifficultyLevel returns the number of leading hex zeroes a proof-of-work
// digest must have.
func (c *BlockchainConfig) DifficultyLevel() int {
	return c.difficulty
}
