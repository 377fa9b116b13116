package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"storyteller-ai/internal/contextutil"
)

const (
	payloadText     = "text"
	payloadPosition = "position"
)

// QdrantBuilder builds throwaway Qdrant collections, one per request.
// Collections are created on Build and dropped on Close, so the server
// never holds data between requests.
type QdrantBuilder struct {
	client *qdrant.Client
}

// NewQdrantBuilder creates a Qdrant client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port is derived from the HTTP port.
func NewQdrantBuilder(urlStr, apiKey string) (*QdrantBuilder, error) {
	host, port, useTLS, err := parseGRPCAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantBuilder{client: client}, nil
}

// parseGRPCAddress maps a Qdrant HTTP URL to its gRPC host and port.
// The gRPC port is the HTTP port + 1, or 6334 when the URL has no port.
func parseGRPCAddress(urlStr string) (string, int, bool, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if p := parsedURL.Port(); p != "" {
		httpPort, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("invalid Qdrant port %q: %w", p, err)
		}
		port = httpPort + 1
	}

	return host, port, parsedURL.Scheme == "https", nil
}

// Build creates a collection sized to the points' dimension and upserts them.
func (b *QdrantBuilder) Build(ctx context.Context, points []Point) (Index, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil, fmt.Errorf("no points to index")
	}

	name := "storyteller-" + uuid.NewString()
	err := b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(len(points[0].Vec)),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	idx := &qdrantIndex{client: b.client, collection: name, count: len(points)}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		qdrantPoints = append(qdrantPoints, &qdrant.PointStruct{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(p.Vec...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadText:     p.Text,
				payloadPosition: p.Position,
			}),
		})
	}

	_, err = b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", name, "count", len(points), "error", err)
		if closeErr := idx.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.WarnContext(ctx, "failed to drop collection", "collection", name, "error", closeErr)
		}
		return nil, fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.DebugContext(ctx, "built qdrant index", "collection", name, "points", len(points))
	return idx, nil
}

// HealthCheck reports whether the Qdrant server answers.
func (b *QdrantBuilder) HealthCheck(ctx context.Context) error {
	if _, err := b.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (b *QdrantBuilder) Close() error {
	return b.client.Close()
}

type qdrantIndex struct {
	client     *qdrant.Client
	collection string
	count      int
}

func (i *qdrantIndex) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	// Collections hold one request's nodes, so all of them are fetched and
	// ties at the k cut are resolved locally.
	limit := uint64(i.count)
	scoredPoints, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to search points", "collection", i.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	results := make([]SearchResult, 0, len(scoredPoints))
	for _, sp := range scoredPoints {
		r := SearchResult{Score: sp.Score}
		if sp.Id != nil {
			r.PointID = sp.Id.GetUuid()
		}
		if v, ok := sp.Payload[payloadText]; ok {
			r.Text = v.GetStringValue()
		}
		if v, ok := sp.Payload[payloadPosition]; ok {
			r.Position = int(v.GetIntegerValue())
		}
		results = append(results, r)
	}
	sortResults(results)

	return results[:min(k, len(results))], nil
}

func (i *qdrantIndex) Close(ctx context.Context) error {
	if err := i.client.DeleteCollection(ctx, i.collection); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", i.collection, err)
	}
	return nil
}
