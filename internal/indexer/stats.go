package indexer

import (
	"math"
	"sort"
)

// TokenCounter counts tokens in a piece of text.
type TokenCounter interface {
	Count(text string) int
}

// ChunkStats summarizes token counts across the chunks of one split.
type ChunkStats struct {
	// Chunks is the number of chunks produced.
	Chunks int `json:"chunks"`
	// Min is the minimum token count across all chunks.
	Min int `json:"min"`
	// Max is the maximum token count across all chunks.
	Max int `json:"max"`
	// Mean is the mean token count, rounded to two decimals.
	Mean float64 `json:"mean"`
	// P95 is the 95th percentile token count.
	P95 int `json:"p95"`
}

// ComputeStats counts tokens for every chunk and summarizes them.
func ComputeStats(chunks []Chunk, counter TokenCounter) ChunkStats {
	counts := make([]int, len(chunks))
	for i, c := range chunks {
		counts[i] = counter.Count(c.Text)
	}
	return computeTokenStats(counts)
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkStats {
	if len(tokenCounts) == 0 {
		return ChunkStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	// Nearest-rank percentile.
	rank := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	rank = max(0, min(rank, len(sorted)-1))

	return ChunkStats{
		Chunks: len(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   math.Round(mean*100) / 100,
		P95:    sorted[rank],
	}
}
