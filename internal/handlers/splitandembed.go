package handlers

import (
	"encoding/json"
	"net/http"

	"storyteller-ai/internal/contextutil"
	"storyteller-ai/internal/indexer"
)

// SplitAndEmbedHandler handles HTTP requests for chunking and embedding a document.
type SplitAndEmbedHandler struct {
	indexer indexer.Indexer
}

// NewSplitAndEmbedHandler creates a new SplitAndEmbedHandler.
func NewSplitAndEmbedHandler(idx indexer.Indexer) *SplitAndEmbedHandler {
	return &SplitAndEmbedHandler{indexer: idx}
}

// SplitAndEmbedRequest represents the HTTP request payload for /api/splitandembed.
// Omitted chunk parameters use the server defaults.
//
// swagger:model SplitAndEmbedRequest
type SplitAndEmbedRequest struct {
	Document     string `json:"document"`
	ChunkSize    *int   `json:"chunkSize,omitempty"`
	ChunkOverlap *int   `json:"chunkOverlap,omitempty"`
}

// SplitAndEmbedPayload carries the embedded chunks in document order.
type SplitAndEmbedPayload struct {
	NodesWithEmbedding []indexer.Node     `json:"nodesWithEmbedding"`
	Stats              indexer.ChunkStats `json:"stats"`
}

// SplitAndEmbedResponse represents the HTTP response payload for /api/splitandembed.
//
// swagger:model SplitAndEmbedResponse
type SplitAndEmbedResponse struct {
	Payload SplitAndEmbedPayload `json:"payload"`
}

// ServeHTTP handles HTTP requests for split-and-embed.
//
// swagger:route POST /api/splitandembed splitAndEmbed
//
// Splits the document into overlapping chunks and embeds each chunk.
//
// responses:
//
//	'200': SplitAndEmbedResponse
//	'400': ErrorResponse
//	'405': ErrorResponse
//	'502': ErrorResponse
func (h *SplitAndEmbedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if !methodAllowed(w, r, http.MethodPost) {
		return
	}

	var req SplitAndEmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.indexer.SplitAndEmbed(ctx, indexer.SplitRequest{
		Document:     req.Document,
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to split and embed document")
		return
	}

	nodes := result.Nodes
	if nodes == nil {
		nodes = []indexer.Node{}
	}

	writeJSON(w, ctx, SplitAndEmbedResponse{
		Payload: SplitAndEmbedPayload{
			NodesWithEmbedding: nodes,
			Stats:              result.Stats,
		},
	})
}
