package rag

import "storyteller-ai/internal/indexer"

// QueryRequest represents a retrieve-and-query request.
type QueryRequest struct {
	// Query is the instruction sent to the model together with the retrieved context.
	Query string
	// TopK is the number of chunks to retrieve. Nil or 0 uses the engine default.
	TopK *int
	// Nodes are the embedded chunks the index is rebuilt from.
	Nodes []indexer.Node
	// Temperature and TopP are passed to the model. Nil uses the engine default.
	Temperature *float64
	TopP        *float64
	// Debug enables debug mode, returning the retrieved chunks with their scores.
	Debug bool
}

// Character is one name/description/personality triple extracted from the model reply.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Personality string `json:"personality"`
}

// QueryResponse represents the response from a retrieve-and-query call.
type QueryResponse struct {
	// Response is the raw model reply.
	Response string
	// Characters are the records parsed from Response, in order of appearance.
	Characters []Character
	// Retrieved is set only when debug mode is enabled.
	Retrieved []RetrievedChunk
}

// RetrievedChunk represents a retrieved chunk with scoring information.
type RetrievedChunk struct {
	// Position is the chunk's index in the request's node list.
	Position int `json:"position"`
	// Score is the cosine similarity to the query.
	Score float32 `json:"score"`
	// Rank is the rank of this chunk in the retrieval results (1-based).
	Rank int `json:"rank"`
	// Text is the chunk text.
	Text string `json:"text"`
}
