package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// CandidateSetHash computes a deterministic hash of a set of candidate node
// IDs, independent of listing order. Used to key cached ranking decisions so
// two requests seeing the same registry snapshot don't re-run the MCDM
// kernel within the same collector interval.
func CandidateSetHash(nodeIDs []string) string {
	if len(nodeIDs) == 0 {
		return ""
	}

	sorted := make([]string, len(nodeIDs))
	copy(sorted, nodeIDs)
	sort.Strings(sorted)

	var buf []byte
	for _, id := range sorted {
		buf = append(buf, []byte(fmt.Sprintf("n:%s;", id))...)
	}

	hash := sha256.Sum256(buf)
	return hex.EncodeToString(hash[:16])
}

// BuildRankingKey builds a cache key for a ranking decision.
func BuildRankingKey(balancerStrategy, candidateHash string) string {
	return fmt.Sprintf("rank:%s:%s", balancerStrategy, candidateHash)
}

// BuildRankingKeyWithWeights builds a ranking cache key that also accounts
// for the weights strategy, so switching weighting schemes doesn't hit a
// stale key.
func BuildRankingKeyWithWeights(balancerStrategy, weightsStrategy, candidateHash string) string {
	if weightsStrategy == "" {
		return BuildRankingKey(balancerStrategy, candidateHash)
	}
	return fmt.Sprintf("rank:%s:%s:%s", balancerStrategy, weightsStrategy, candidateHash)
}

// QuickHash быстрый хеш для произвольных данных
func QuickHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ShortHash короткий хеш (16 символов)
func ShortHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
