package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_builder.go -package=mocks storyteller-ai/internal/vectorstore Builder,Index

import (
	"cmp"
	"context"
	"slices"
)

// Point is a chunk text with its embedding. Position is the point's place in
// the caller's input and breaks ties between equal scores.
type Point struct {
	ID       string
	Position int
	Text     string
	Vec      []float32
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID  string
	Position int
	Text     string
	Score    float32
}

// Index is a similarity index that lives for a single request.
type Index interface {
	// Search returns the k points most similar to query by cosine similarity,
	// highest score first, equal scores in position order. k larger than the
	// number of points is clamped.
	Search(ctx context.Context, query []float32, k int) ([]SearchResult, error)

	// Close releases the index and any backing storage.
	Close(ctx context.Context) error
}

// Builder creates an Index from a set of points.
type Builder interface {
	Build(ctx context.Context, points []Point) (Index, error)
}

// sortResults orders results by descending score, then by input position.
func sortResults(results []SearchResult) {
	slices.SortStableFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
}
