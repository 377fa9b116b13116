package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"storyteller-ai/internal/contextutil"
)

const positionKey = "position"

// errNoEmbeddingFunc guards against chromem embedding text on its own;
// every document and query arrives with a precomputed vector.
var errNoEmbeddingFunc = errors.New("vectors must be supplied by the caller")

// ChromemBuilder builds in-process chromem-go collections.
type ChromemBuilder struct {
	concurrency int
}

// NewChromemBuilder creates a builder that adds documents with one goroutine per CPU.
func NewChromemBuilder() *ChromemBuilder {
	return &ChromemBuilder{concurrency: runtime.NumCPU()}
}

// Build creates a fresh in-memory database holding points.
func (b *ChromemBuilder) Build(ctx context.Context, points []Point) (Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil, fmt.Errorf("no points to index")
	}

	db := chromem.NewDB()
	name := "request-" + uuid.NewString()
	collection, err := db.CreateCollection(name, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		docs[i] = chromem.Document{
			ID:        id,
			Content:   p.Text,
			Embedding: p.Vec,
			Metadata:  map[string]string{positionKey: strconv.Itoa(p.Position)},
		}
	}

	if err := collection.AddDocuments(ctx, docs, max(b.concurrency, 1)); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	logger.DebugContext(ctx, "built chromem index", "collection", name, "points", len(points))
	return &chromemIndex{db: db, collection: collection}, nil
}

type chromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func (i *chromemIndex) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	// Every point is scored so that equal scores at the k cut are decided by
	// position rather than by chromem's concurrent top-k.
	found, err := i.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: query,
		NResults:       i.collection.Count(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	results := make([]SearchResult, 0, len(found))
	for _, r := range found {
		pos, _ := strconv.Atoi(r.Metadata[positionKey])
		results = append(results, SearchResult{
			PointID:  r.ID,
			Position: pos,
			Text:     r.Content,
			Score:    r.Similarity,
		})
	}
	sortResults(results)

	return results[:min(k, len(results))], nil
}

func (i *chromemIndex) Close(context.Context) error {
	return i.db.Reset()
}
