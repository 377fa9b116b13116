package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks storyteller-ai/internal/rag Engine
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_deps.go -package=mocks storyteller-ai/internal/rag Embedder,ChatClient

import (
	"context"
	"errors"
	"fmt"
	"math"

	"storyteller-ai/internal/contextutil"
	"storyteller-ai/internal/indexer"
	"storyteller-ai/internal/llm"
	"storyteller-ai/internal/service"
	"storyteller-ai/internal/vectorstore"
)

// errZeroQueryVector is returned when the provider embeds the query as a
// vector with no direction, which cosine similarity cannot rank against.
var errZeroQueryVector = errors.New("query embedding has zero norm")

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// RetrieveAndQuery rebuilds an index from the request's nodes, retrieves the
	// chunks closest to the query and asks the model to answer from them.
	RetrieveAndQuery(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// Embedder embeds a single query string.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatClient sends a non-streaming chat completion request.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Options holds the defaults applied when a request omits a value.
type Options struct {
	TopK        int
	Temperature float64
	TopP        float64
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	embedder Embedder
	builder  vectorstore.Builder
	chat     ChatClient
	opts     Options
}

// NewEngine creates a new RAG engine.
func NewEngine(embedder Embedder, builder vectorstore.Builder, chat ChatClient, opts Options) Engine {
	if opts.TopK <= 0 {
		opts.TopK = 2
	}
	return &ragEngine{
		embedder: embedder,
		builder:  builder,
		chat:     chat,
		opts:     opts,
	}
}

// RetrieveAndQuery answers the query from the top-K most similar nodes.
func (e *ragEngine) RetrieveAndQuery(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	k, err := e.validate(req)
	if err != nil {
		logger.WarnContext(ctx, "invalid retrieve-and-query request", "error", err)
		return QueryResponse{}, err
	}

	logger.InfoContext(ctx, "RAG query started", "nodes", len(req.Nodes), "k", k)

	queryVector, err := e.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err, "provider_status", llm.StatusCode(err))
		return QueryResponse{}, service.ExternalError(err, "failed to embed query")
	}
	if !rankable(queryVector) {
		logger.ErrorContext(ctx, "provider returned an unusable query embedding", "dimensions", len(queryVector))
		return QueryResponse{}, service.ExternalError(errZeroQueryVector, "failed to embed query")
	}
	if len(queryVector) != len(req.Nodes[0].Embedding) {
		logger.ErrorContext(ctx, "query dimension mismatch", "query_dim", len(queryVector), "node_dim", len(req.Nodes[0].Embedding))
		return QueryResponse{}, service.WrapError(service.ErrInvalidInput,
			fmt.Sprintf("query embedding has %d dimensions, nodes have %d", len(queryVector), len(req.Nodes[0].Embedding)))
	}

	results, err := e.retrieve(ctx, req.Nodes, queryVector, k)
	if err != nil {
		return QueryResponse{}, err
	}

	logger.InfoContext(ctx, "vector search completed", "results_count", len(results), "k_requested", k)
	if len(results) > 0 {
		logger.DebugContext(ctx, "top search result", "score", results[0].Score, "position", results[0].Position)
	}

	prompt, err := buildPrompt(req.Query, results)
	if err != nil {
		return QueryResponse{}, err
	}
	logger.DebugContext(ctx, "prompt rendered", "prompt_length", len(prompt))

	messages := []llm.Message{{Role: llm.RoleUser, Content: prompt}}
	answer, err := e.chat.ChatWithMessages(ctx, messages, llm.ChatParams{
		Temperature: llm.Float(valueOr(req.Temperature, e.opts.Temperature)),
		TopP:        llm.Float(valueOr(req.TopP, e.opts.TopP)),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err, "provider_status", llm.StatusCode(err))
		return QueryResponse{}, service.ExternalError(err, "failed to get LLM response")
	}

	characters := ExtractCharacters(answer)
	logger.InfoContext(ctx, "RAG query completed", "answer_length", len(answer), "characters", len(characters))

	resp := QueryResponse{
		Response:   answer,
		Characters: characters,
	}
	if req.Debug {
		resp.Retrieved = make([]RetrievedChunk, len(results))
		for i, r := range results {
			resp.Retrieved[i] = RetrievedChunk{
				Position: r.Position,
				Score:    r.Score,
				Rank:     i + 1,
				Text:     r.Text,
			}
		}
	}
	return resp, nil
}

// retrieve builds a throwaway index over nodes and searches it.
func (e *ragEngine) retrieve(ctx context.Context, nodes []indexer.Node, query []float32, k int) ([]vectorstore.SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	points := make([]vectorstore.Point, len(nodes))
	for i, n := range nodes {
		points[i] = vectorstore.Point{Position: i, Text: n.Text, Vec: n.Embedding}
	}

	idx, err := e.builder.Build(ctx, points)
	if err != nil {
		logger.ErrorContext(ctx, "failed to build index", "nodes", len(nodes), "error", err)
		return nil, service.ExternalError(err, "failed to build index")
	}
	defer func() {
		if err := idx.Close(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "failed to release index", "error", err)
		}
	}()

	results, err := idx.Search(ctx, query, k)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search index", "k", k, "error", err)
		return nil, service.ExternalError(err, "failed to search index")
	}
	return results, nil
}

// validate checks the request and returns the effective top-K.
func (e *ragEngine) validate(req QueryRequest) (int, error) {
	if req.Query == "" {
		return 0, service.NewValidationError("query", "cannot be empty")
	}
	if len(req.Nodes) == 0 {
		return 0, service.NewValidationError("nodesWithEmbedding", "must contain at least one node")
	}

	dim := len(req.Nodes[0].Embedding)
	for i, n := range req.Nodes {
		if len(n.Embedding) == 0 {
			return 0, service.NewValidationError("nodesWithEmbedding", "node %d has an empty embedding", i)
		}
		if len(n.Embedding) != dim {
			return 0, service.NewValidationError("nodesWithEmbedding", "node %d has %d dimensions, expected %d", i, len(n.Embedding), dim)
		}
		if !rankable(n.Embedding) {
			return 0, service.NewValidationError("nodesWithEmbedding", "node %d embedding must be finite and non-zero", i)
		}
	}

	k := e.opts.TopK
	if req.TopK != nil {
		if *req.TopK < 0 {
			return 0, service.NewValidationError("topK", "must not be negative, got %d", *req.TopK)
		}
		if *req.TopK > 0 {
			k = *req.TopK
		}
	}
	return min(k, len(req.Nodes)), nil
}

// rankable reports whether v is finite with a non-zero norm.
func rankable(v []float32) bool {
	var norm float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
		norm += f * f
	}
	return norm > 0 && !math.IsInf(norm, 0)
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
