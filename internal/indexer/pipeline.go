package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks storyteller-ai/internal/indexer Embedder
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_indexer.go -package=mocks storyteller-ai/internal/indexer Indexer

import (
	"context"
	"fmt"
	"time"

	"storyteller-ai/internal/contextutil"
	"storyteller-ai/internal/service"
)

// Embedder turns texts into vectors, one per text, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer splits documents into chunks and embeds them.
type Indexer interface {
	SplitAndEmbed(ctx context.Context, req SplitRequest) (SplitResult, error)
}

// Pipeline chunks a document and embeds every chunk. It keeps no state
// between calls; the caller owns the returned nodes.
type Pipeline struct {
	embedder     Embedder
	counter      TokenCounter
	chunkSize    int
	chunkOverlap int
}

// NewPipeline creates a new indexing pipeline with default chunk parameters.
func NewPipeline(embedder Embedder, counter TokenCounter, chunkSize, chunkOverlap int) *Pipeline {
	return &Pipeline{
		embedder:     embedder,
		counter:      counter,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// SplitAndEmbed validates the request, splits the document and embeds each chunk.
func (p *Pipeline) SplitAndEmbed(ctx context.Context, req SplitRequest) (SplitResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.Document == "" {
		logger.WarnContext(ctx, "empty document in split request")
		return SplitResult{}, service.NewValidationError("document", "cannot be empty")
	}

	size, overlap, err := p.resolveParams(req)
	if err != nil {
		logger.WarnContext(ctx, "invalid chunk parameters", "error", err)
		return SplitResult{}, err
	}

	chunks, err := Split(req.Document, size, overlap)
	if err != nil {
		return SplitResult{}, service.WrapError(service.ErrInvalidInput, err.Error())
	}

	if len(chunks) == 0 {
		logger.InfoContext(ctx, "document produced no chunks", "document_length", len(req.Document))
		return SplitResult{Nodes: []Node{}}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	start := time.Now()
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed chunks", "chunks", len(chunks), "error", err)
		return SplitResult{}, service.ExternalError(err, "failed to embed chunks")
	}
	if len(vectors) != len(chunks) {
		logger.ErrorContext(ctx, "embedding count mismatch", "chunks", len(chunks), "vectors", len(vectors))
		return SplitResult{}, service.ExternalError(fmt.Errorf("provider returned %d vectors for %d chunks", len(vectors), len(chunks)), "failed to embed chunks")
	}

	nodes := make([]Node, len(chunks))
	for i, c := range chunks {
		nodes[i] = Node{Text: c.Text, Embedding: vectors[i]}
	}

	stats := ComputeStats(chunks, p.counter)
	logger.InfoContext(ctx, "document split and embedded",
		"chunks", stats.Chunks,
		"chunk_size", size,
		"chunk_overlap", overlap,
		"tokens_p95", stats.P95,
		"embed_ms", time.Since(start).Milliseconds(),
	)

	return SplitResult{Nodes: nodes, Stats: stats}, nil
}

// resolveParams applies defaults for omitted chunk parameters and validates the result.
// An omitted overlap that does not fit the requested size is dropped to 0.
func (p *Pipeline) resolveParams(req SplitRequest) (int, int, error) {
	size := p.chunkSize
	if req.ChunkSize != nil {
		size = *req.ChunkSize
	}
	if size <= 0 {
		return 0, 0, service.NewValidationError("chunkSize", "must be greater than 0, got %d", size)
	}

	overlap := p.chunkOverlap
	if req.ChunkOverlap != nil {
		overlap = *req.ChunkOverlap
	} else if overlap >= size {
		overlap = 0
	}
	if overlap < 0 {
		return 0, 0, service.NewValidationError("chunkOverlap", "must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return 0, 0, service.NewValidationError("chunkOverlap", "must be less than chunkSize (%d), got %d", size, overlap)
	}

	return size, overlap, nil
}
