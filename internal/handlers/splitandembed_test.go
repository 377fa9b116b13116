package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyteller-ai/internal/indexer"
	idxmocks "storyteller-ai/internal/indexer/mocks"
	"storyteller-ai/internal/service"

	"go.uber.org/mock/gomock"
)

func TestSplitAndEmbedHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	size, overlap := 64, 8

	tests := []struct {
		name       string
		method     string
		body       string
		mockSetup  func(*idxmocks.MockIndexer)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "passes chunk params through",
			method: http.MethodPost,
			body:   `{"document":"Alice met Bob.","chunkSize":64,"chunkOverlap":8}`,
			mockSetup: func(m *idxmocks.MockIndexer) {
				m.EXPECT().
					SplitAndEmbed(gomock.Any(), indexer.SplitRequest{
						Document:     "Alice met Bob.",
						ChunkSize:    &size,
						ChunkOverlap: &overlap,
					}).
					Return(indexer.SplitResult{
						Nodes: []indexer.Node{{Text: "Alice met Bob.", Embedding: []float32{0.5, 1}}},
						Stats: indexer.ChunkStats{Chunks: 1, Min: 4, Max: 4, Mean: 4, P95: 4},
					}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"payload":{"nodesWithEmbedding":[{"text":"Alice met Bob.","embedding":[0.5,1]}],"stats":{"chunks":1,"min":4,"max":4,"mean":4,"p95":4}}}`,
		},
		{
			name:   "omitted params stay nil",
			method: http.MethodPost,
			body:   `{"document":"   "}`,
			mockSetup: func(m *idxmocks.MockIndexer) {
				m.EXPECT().
					SplitAndEmbed(gomock.Any(), indexer.SplitRequest{Document: "   "}).
					Return(indexer.SplitResult{}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"payload":{"nodesWithEmbedding":[],"stats":{"chunks":0,"min":0,"max":0,"mean":0,"p95":0}}}`,
		},
		{
			name:   "method not allowed",
			method: http.MethodGet,
			mockSetup: func(m *idxmocks.MockIndexer) {
				// No calls expected
			},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:   "invalid JSON body",
			method: http.MethodPost,
			body:   `{"document":`,
			mockSetup: func(m *idxmocks.MockIndexer) {
				// No calls expected
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "invalid chunk size",
			method: http.MethodPost,
			body:   `{"document":"text","chunkSize":0}`,
			mockSetup: func(m *idxmocks.MockIndexer) {
				m.EXPECT().
					SplitAndEmbed(gomock.Any(), gomock.Any()).
					Return(indexer.SplitResult{}, service.NewValidationError("chunkSize", "must be positive"))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "embedding provider failure",
			method: http.MethodPost,
			body:   `{"document":"text"}`,
			mockSetup: func(m *idxmocks.MockIndexer) {
				m.EXPECT().
					SplitAndEmbed(gomock.Any(), gomock.Any()).
					Return(indexer.SplitResult{}, service.ExternalError(errors.New("timeout"), "failed to embed chunks"))
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"External service error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIndexer := idxmocks.NewMockIndexer(ctrl)
			tt.mockSetup(mockIndexer)

			handler := NewSplitAndEmbedHandler(mockIndexer)
			req := httptest.NewRequest(tt.method, "/api/splitandembed", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && strings.TrimSpace(w.Body.String()) != tt.wantBody {
				t.Errorf("ServeHTTP() body = %s, want %s", w.Body.String(), tt.wantBody)
			}
			if tt.wantStatus == http.StatusOK {
				var resp SplitAndEmbedResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Errorf("ServeHTTP() invalid JSON: %v", err)
				}
			}
		})
	}
}
