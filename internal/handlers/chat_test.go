package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storyteller-ai/internal/llm"
	"storyteller-ai/internal/service"
	"storyteller-ai/internal/service/mocks"

	"go.uber.org/mock/gomock"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func storyRequest() service.ChatRequest {
	return service.ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: `{"characters":[]}`}}}
}

func TestNewChatHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockChatService := mocks.NewMockChatService(ctrl)
	handler := NewChatHandler(mockChatService)

	if handler == nil {
		t.Fatal("NewChatHandler() returned nil")
	}
	if handler.chatService != mockChatService {
		t.Error("NewChatHandler() chatService not set correctly")
	}
}

func TestChatHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name          string
		method        string
		body          any
		mockSetup     func(*mocks.MockChatService)
		wantStatus    int
		checkResponse func(*httptest.ResponseRecorder) bool
	}{
		{
			name:   "successful POST request",
			method: http.MethodPost,
			body:   ChatRequest{Messages: storyRequest().Messages},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), storyRequest()).
					Return(service.ChatResponse{Reply: "Once upon a time."}, nil)
			},
			wantStatus: http.StatusOK,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var resp ChatResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					return false
				}
				return resp.Reply == "Once upon a time."
			},
		},
		{
			name:   "method not allowed",
			method: http.MethodGet,
			mockSetup: func(m *mocks.MockChatService) {
				// No calls expected
			},
			wantStatus: http.StatusMethodNotAllowed,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				var resp ErrorResponse
				_ = json.NewDecoder(w.Body).Decode(&resp)
				return resp.Error == "Method not allowed"
			},
		},
		{
			name:   "invalid JSON body",
			method: http.MethodPost,
			body:   "invalid json",
			mockSetup: func(m *mocks.MockChatService) {
				// No calls expected
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "validation error",
			method: http.MethodPost,
			body:   ChatRequest{},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), gomock.Any()).
					Return(service.ChatResponse{}, &service.ValidationError{
						Field:   "messages",
						Message: "cannot be empty",
					})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "service error",
			method: http.MethodPost,
			body:   ChatRequest{Messages: storyRequest().Messages},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), gomock.Any()).
					Return(service.ChatResponse{}, errors.New("service error"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:   "ErrExternalService",
			method: http.MethodPost,
			body:   ChatRequest{Messages: storyRequest().Messages},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					ProcessChat(gomock.Any(), gomock.Any()).
					Return(service.ChatResponse{}, service.ExternalError(errors.New("401 from provider: bad key"), "failed"))
			},
			wantStatus: http.StatusBadGateway,
			checkResponse: func(w *httptest.ResponseRecorder) bool {
				return !strings.Contains(w.Body.String(), "bad key")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockChatService := mocks.NewMockChatService(ctrl)
			tt.mockSetup(mockChatService)

			handler := NewChatHandler(mockChatService)

			var bodyBytes []byte
			if s, ok := tt.body.(string); ok {
				bodyBytes = []byte(s)
			} else if tt.body != nil {
				bodyBytes, _ = json.Marshal(tt.body)
			}

			req := httptest.NewRequest(tt.method, "/api/chat", bytes.NewBuffer(bodyBytes))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}

			if tt.checkResponse != nil && !tt.checkResponse(w) {
				t.Errorf("ServeHTTP() response validation failed: %s", w.Body.String())
			}
		})
	}
}

func TestChatHandler_handleStreamingChat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		body       any
		mockSetup  func(*mocks.MockChatService)
		wantStatus int
		wantBody   string
		wantSSE    bool
	}{
		{
			name: "successful streaming",
			body: ChatRequest{Messages: storyRequest().Messages},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					StreamChat(gomock.Any(), storyRequest(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req service.ChatRequest, callback func(chunk string) error) error {
						for _, chunk := range []string{"Once", " upon\na time", ""} {
							if err := callback(chunk); err != nil {
								return err
							}
						}
						return nil
					})
			},
			wantStatus: http.StatusOK,
			wantBody:   "data: Once\n\ndata:  upon\ndata: a time\n\ndata: [DONE]\n\n",
			wantSSE:    true,
		},
		{
			name: "invalid JSON body",
			body: "invalid json",
			mockSetup: func(m *mocks.MockChatService) {
				// No calls expected for invalid JSON
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "error before first chunk",
			body: ChatRequest{Messages: storyRequest().Messages},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					StreamChat(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(service.ExternalError(errors.New("quota"), "failed to stream"))
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   "{\"error\":\"External service error\"}\n",
		},
		{
			name: "error mid-stream",
			body: ChatRequest{Messages: storyRequest().Messages},
			mockSetup: func(m *mocks.MockChatService) {
				m.EXPECT().
					StreamChat(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req service.ChatRequest, callback func(chunk string) error) error {
						_ = callback("Once")
						return service.ExternalError(errors.New("reset"), "failed to stream")
					})
			},
			wantStatus: http.StatusOK, // SSE sends error in stream, not HTTP status
			wantBody:   "data: Once\n\nevent: error\ndata: {\"error\":\"External service error\"}\n\n",
			wantSSE:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockChatService := mocks.NewMockChatService(ctrl)
			tt.mockSetup(mockChatService)

			handler := NewChatHandler(mockChatService)

			var bodyBytes []byte
			if s, ok := tt.body.(string); ok {
				bodyBytes = []byte(s)
			} else {
				bodyBytes, _ = json.Marshal(tt.body)
			}
			req := httptest.NewRequest(http.MethodPost, "/api/chat?stream=true", bytes.NewBuffer(bodyBytes))
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("handleStreamingChat() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("handleStreamingChat() body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if tt.wantSSE && w.Header().Get("Content-Type") != "text/event-stream" {
				t.Error("handleStreamingChat() missing Content-Type header")
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	writeError(w, http.StatusBadRequest, "test error")

	if w.Code != http.StatusBadRequest {
		t.Errorf("writeError() status = %v, want %v", w.Code, http.StatusBadRequest)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("writeError() invalid JSON: %v", err)
	}

	if resp.Error != "test error" {
		t.Errorf("writeError() error = %v, want test error", resp.Error)
	}
}

func TestWriteSSE(t *testing.T) {
	tests := []struct {
		name  string
		event string
		data  string
		want  string
	}{
		{name: "single line", data: "Once", want: "data: Once\n\n"},
		{name: "LF", data: "a\nb", want: "data: a\ndata: b\n\n"},
		{name: "CRLF folds to LF", data: " upon\r\n", want: "data:  upon\ndata: \n\n"},
		{name: "bare CR folds to LF", data: "a\rb", want: "data: a\ndata: b\n\n"},
		{name: "named event", event: "error", data: "x", want: "event: error\ndata: x\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if err := writeSSE(w, tt.event, tt.data); err != nil {
				t.Fatalf("writeSSE() error = %v", err)
			}
			if w.Body.String() != tt.want {
				t.Errorf("writeSSE() = %q, want %q", w.Body.String(), tt.want)
			}
		})
	}
}
