package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"storyteller-ai/internal/contextutil"
	"storyteller-ai/internal/indexer"
	"storyteller-ai/internal/rag"
)

// RetrieveAndQueryHandler handles HTTP requests for retrieval-augmented character extraction.
type RetrieveAndQueryHandler struct {
	engine rag.Engine
}

// NewRetrieveAndQueryHandler creates a new RetrieveAndQueryHandler.
func NewRetrieveAndQueryHandler(engine rag.Engine) *RetrieveAndQueryHandler {
	return &RetrieveAndQueryHandler{engine: engine}
}

// RetrieveAndQueryRequest represents the HTTP request payload for /api/retrieveandquery.
//
// swagger:model RetrieveAndQueryRequest
type RetrieveAndQueryRequest struct {
	Query              string         `json:"query"`
	TopK               *int           `json:"topK,omitempty"`
	NodesWithEmbedding []indexer.Node `json:"nodesWithEmbedding"`
	Temperature        *float64       `json:"temperature,omitempty"`
	TopP               *float64       `json:"topP,omitempty"`
}

// RetrieveAndQueryPayload carries the raw model reply and the characters parsed from it.
type RetrieveAndQueryPayload struct {
	Response   string               `json:"response"`
	Characters []rag.Character      `json:"characters"`
	Retrieved  []rag.RetrievedChunk `json:"retrieved,omitempty"`
}

// RetrieveAndQueryResponse represents the HTTP response payload for /api/retrieveandquery.
//
// swagger:model RetrieveAndQueryResponse
type RetrieveAndQueryResponse struct {
	Payload RetrieveAndQueryPayload `json:"payload"`
}

// ServeHTTP handles HTTP requests for retrieve-and-query.
// Use the `debug=true` query parameter to include the retrieved chunks.
func (h *RetrieveAndQueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if !methodAllowed(w, r, http.MethodPost) {
		return
	}

	var req RetrieveAndQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	debug := false
	if debugParam := r.URL.Query().Get("debug"); debugParam != "" {
		debug = strings.ToLower(debugParam) == "true" || debugParam == "1"
	}

	resp, err := h.engine.RetrieveAndQuery(ctx, rag.QueryRequest{
		Query:       req.Query,
		TopK:        req.TopK,
		Nodes:       req.NodesWithEmbedding,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Debug:       debug,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to run query")
		return
	}

	characters := resp.Characters
	if characters == nil {
		characters = []rag.Character{}
	}

	writeJSON(w, ctx, RetrieveAndQueryResponse{
		Payload: RetrieveAndQueryPayload{
			Response:   resp.Response,
			Characters: characters,
			Retrieved:  resp.Retrieved,
		},
	})
}
