package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
)

// DefaultEmbeddingBatchSize is the number of texts sent per embeddings request
// when no batch size is configured.
const DefaultEmbeddingBatchSize = 100

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API.
type EmbeddingsClient struct {
	client openai.Client
	Model  string
	// Dimensions, when positive, is requested from the provider and every
	// returned vector is validated against it.
	Dimensions int
	BatchSize  int
}

// NewEmbeddingsClient creates a new embeddings client.
func NewEmbeddingsClient(baseURL, apiKey, model string, dimensions, batchSize int, httpClient *http.Client) *EmbeddingsClient {
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	return &EmbeddingsClient{
		client:     openai.NewClient(requestOptions(baseURL, apiKey, httpClient)...),
		Model:      model,
		Dimensions: dimensions,
		BatchSize:  batchSize,
	}
}

// EmbedTexts generates embeddings for the given texts.
// Returns one float32 vector per input text, in input order.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.BatchSize {
		end := min(start+c.BatchSize, len(texts))
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		result = append(result, vecs...)
	}

	return result, nil
}

// EmbedQuery generates the embedding for a single query string.
func (c *EmbeddingsClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *EmbeddingsClient) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.Model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if c.Dimensions > 0 {
		params.Dimensions = openai.Int(int64(c.Dimensions))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Providers report each vector's input position; do not rely on response order.
	result := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) || result[idx] != nil {
			return nil, fmt.Errorf("embedding index %d out of range or duplicated", idx)
		}
		if c.Dimensions > 0 && len(data.Embedding) != c.Dimensions {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", idx, len(data.Embedding), c.Dimensions)
		}
		if len(data.Embedding) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", idx)
		}

		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[idx] = vec
	}

	return result, nil
}
