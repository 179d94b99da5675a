package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

const (
	// ChunkerVersion identifies the chunking algorithm. Update when cut rules change.
	ChunkerVersion = "v2.0"
	// TokensPerRune approximates token counts (4 chars per token).
	TokensPerRune = 4.0
)

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// IndexVersion identifies an index build: chunker version, embedding model and chunk parameters.
func IndexVersion(embeddingModel string, maxChars, overlapChars int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d", ChunkerVersion, embeddingModel, maxChars, overlapChars)))
	return hex.EncodeToString(sum[:8])
}

// estimateTokens approximates the token count of a chunk, minimum 1.
func estimateTokens(s string) int {
	n := int(math.Round(float64(utf8.RuneCountInString(s)) / TokensPerRune))
	if n < 1 {
		return 1
	}
	return n
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range tokenCounts {
		sum += count
	}
	mean := float64(sum) / float64(len(tokenCounts))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[p95Index],
	}
}
