package types

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// ProofDigest computes the SHA-256 hex digest of
// "{lastProof}{proof}{lastHash}{transactions}" where transactions is the
// canonical JSON array of txs (spec §4.4's proof-of-work rule). Callers are
// responsible for excluding the reward transaction from txs before calling
// and reinserting it afterward.
func ProofDigest(lastProof, proof uint64, lastHash string, txs []Transaction) (string, error) {
	if txs == nil {
		txs = []Transaction{}
	}
	encoded, err := json.Marshal(txs)
	if err != nil {
		return "", err
	}
	payload := fmt.Sprintf("%d%d%s%s", lastProof, proof, lastHash, encoded)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:]), nil
}

// ValidProof reports whether digest has at least difficulty leading hex
// zero characters.
func ValidProof(digest string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(digest) {
		return false
	}
	return strings.Count(digest[:difficulty], "0") == difficulty
}
