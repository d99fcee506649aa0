package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBlockchainConfigClampsDifficulty(t *testing.T) {
	assert.Equal(t, 0, NewBlockchainConfig(-5).DifficultyLevel())
	assert.Equal(t, MaxDifficulty, NewBlockchainConfig(MaxDifficulty+100).DifficultyLevel())
	assert.Equal(t, 4, NewBlockchainConfig(4).DifficultyLevel())
}

func TestLoadBlockchainConfigMissingFile(t *testing.T) {
	_, err := LoadBlockchainConfig("/nonexistent/config.ini")
	assert.Error(t, err)
}
