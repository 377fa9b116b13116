package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"storyteller-ai/internal/contextutil"
	"storyteller-ai/internal/llm"
	"storyteller-ai/internal/service"
)

// SSEDone terminates a successful chat stream.
const SSEDone = "[DONE]"

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Messages    []llm.Message `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ServeHTTP handles HTTP requests for chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if !methodAllowed(w, r, http.MethodPost) {
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Convert HTTP request to service request
	svcReq := service.ChatRequest{
		Messages:    req.Messages,
		Temperature: req.Temperature,
	}

	// Check if streaming is requested
	if r.URL.Query().Get("stream") == "true" {
		h.handleStreamingChat(w, ctx, svcReq)
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, svcReq)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	writeJSON(w, ctx, ChatResponse{
		Reply: svcResp.Reply,
	})
}

// handleStreamingChat streams the reply as Server-Sent Events.
// Headers are only committed once the first chunk arrives, so failures before
// that point still get a regular JSON error with the mapped status code.
func (h *ChatHandler) handleStreamingChat(w http.ResponseWriter, ctx context.Context, svcReq service.ChatRequest) {
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}

	chunks := 0
	err := h.chatService.StreamChat(ctx, svcReq, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		start()
		if err := writeSSE(w, "", chunk); err != nil {
			return err
		}
		flusher.Flush()
		chunks++
		return nil
	})

	if err != nil {
		if !started {
			handleServiceError(w, ctx, err, "Failed to stream chat response")
			return
		}
		logger.ErrorContext(ctx, "error streaming chat", "error", err, "chunks_sent", chunks)
		_, msg := errorStatus(err, "Failed to stream chat response")
		body, _ := json.Marshal(ErrorResponse{Error: msg})
		_ = writeSSE(w, "error", string(body))
		flusher.Flush()
		return
	}

	start()
	_ = writeSSE(w, "", SSEDone)
	flusher.Flush()
	logger.DebugContext(ctx, "chat stream completed", "chunks_sent", chunks)
}

// sseLineEndings folds CRLF and bare CR into LF. SSE treats all three as line
// breaks, so a reader only ever gets LF back.
var sseLineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// writeSSE writes one event. Multi-line data is split across data: lines,
// which SSE readers join back with newlines.
func writeSSE(w http.ResponseWriter, event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	for _, line := range strings.Split(sseLineEndings.Replace(data), "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := w.Write([]byte(b.String()))
	return err
}
