package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyteller-ai/internal/indexer"
	"storyteller-ai/internal/rag"
	ragmocks "storyteller-ai/internal/rag/mocks"
	"storyteller-ai/internal/service"

	"go.uber.org/mock/gomock"
)

func TestRetrieveAndQueryHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	topK := 3
	nodes := []indexer.Node{{Text: "Alice is brave.", Embedding: []float32{1, 0}}}

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		mockSetup  func(*ragmocks.MockEngine)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "returns response and characters",
			method: http.MethodPost,
			target: "/api/retrieveandquery",
			body:   `{"query":"list characters","topK":3,"nodesWithEmbedding":[{"text":"Alice is brave.","embedding":[1,0]}]}`,
			mockSetup: func(m *ragmocks.MockEngine) {
				m.EXPECT().
					RetrieveAndQuery(gomock.Any(), rag.QueryRequest{
						Query: "list characters",
						TopK:  &topK,
						Nodes: nodes,
					}).
					Return(rag.QueryResponse{
						Response:   "Name: Alice\nDescription: a girl\nPersonality: brave",
						Characters: []rag.Character{{Name: "Alice", Description: "a girl", Personality: "brave"}},
					}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"payload":{"response":"Name: Alice\nDescription: a girl\nPersonality: brave","characters":[{"name":"Alice","description":"a girl","personality":"brave"}]}}`,
		},
		{
			name:   "no characters encodes empty list",
			method: http.MethodPost,
			target: "/api/retrieveandquery",
			body:   `{"query":"q","nodesWithEmbedding":[{"text":"x","embedding":[1]}]}`,
			mockSetup: func(m *ragmocks.MockEngine) {
				m.EXPECT().
					RetrieveAndQuery(gomock.Any(), gomock.Any()).
					Return(rag.QueryResponse{Response: "nobody"}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"payload":{"response":"nobody","characters":[]}}`,
		},
		{
			name:   "debug includes retrieved chunks",
			method: http.MethodPost,
			target: "/api/retrieveandquery?debug=1",
			body:   `{"query":"q","nodesWithEmbedding":[{"text":"x","embedding":[1]}]}`,
			mockSetup: func(m *ragmocks.MockEngine) {
				m.EXPECT().
					RetrieveAndQuery(gomock.Any(), gomock.Cond(func(req rag.QueryRequest) bool {
						return req.Debug
					})).
					Return(rag.QueryResponse{
						Response:  "r",
						Retrieved: []rag.RetrievedChunk{{Position: 0, Score: 1, Rank: 1, Text: "x"}},
					}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"payload":{"response":"r","characters":[],"retrieved":[{"position":0,"score":1,"rank":1,"text":"x"}]}}`,
		},
		{
			name:   "method not allowed",
			method: http.MethodPut,
			target: "/api/retrieveandquery",
			mockSetup: func(m *ragmocks.MockEngine) {
				// No calls expected
			},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:   "invalid JSON body",
			method: http.MethodPost,
			target: "/api/retrieveandquery",
			body:   `not json`,
			mockSetup: func(m *ragmocks.MockEngine) {
				// No calls expected
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "empty nodes",
			method: http.MethodPost,
			target: "/api/retrieveandquery",
			body:   `{"query":"q","nodesWithEmbedding":[]}`,
			mockSetup: func(m *ragmocks.MockEngine) {
				m.EXPECT().
					RetrieveAndQuery(gomock.Any(), gomock.Any()).
					Return(rag.QueryResponse{}, service.NewValidationError("nodesWithEmbedding", "cannot be empty"))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "dimension mismatch",
			method: http.MethodPost,
			target: "/api/retrieveandquery",
			body:   `{"query":"q","nodesWithEmbedding":[{"text":"x","embedding":[1]}]}`,
			mockSetup: func(m *ragmocks.MockEngine) {
				m.EXPECT().
					RetrieveAndQuery(gomock.Any(), gomock.Any()).
					Return(rag.QueryResponse{}, service.WrapError(service.ErrInvalidInput, "query embedding has 2 dimensions, nodes have 1"))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Invalid input"}`,
		},
		{
			name:   "model failure",
			method: http.MethodPost,
			target: "/api/retrieveandquery",
			body:   `{"query":"q","nodesWithEmbedding":[{"text":"x","embedding":[1]}]}`,
			mockSetup: func(m *ragmocks.MockEngine) {
				m.EXPECT().
					RetrieveAndQuery(gomock.Any(), gomock.Any()).
					Return(rag.QueryResponse{}, service.ExternalError(errors.New("503"), "failed to query model"))
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEngine := ragmocks.NewMockEngine(ctrl)
			tt.mockSetup(mockEngine)

			handler := NewRetrieveAndQueryHandler(mockEngine)
			req := httptest.NewRequest(tt.method, tt.target, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && strings.TrimSpace(w.Body.String()) != tt.wantBody {
				t.Errorf("ServeHTTP() body = %s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}
