package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm_client.go -package=mocks storyteller-ai/internal/service LLMClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService storyteller-ai/internal/service ChatService

import (
	"context"

	"storyteller-ai/internal/contextutil"
	"storyteller-ai/internal/llm"
)

// LLMClient is an interface for interacting with an LLM API.
// This interface is defined from the service layer's perspective (consumer-first).
type LLMClient interface {
	// ChatWithMessages sends a conversation to the LLM and returns the reply.
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	// StreamChatWithMessages sends a conversation to the LLM and streams the reply via callback.
	StreamChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
}

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	Messages []llm.Message
	// Temperature is optional; nil leaves the provider default.
	Temperature *float64
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Reply string
}

// ChatService provides chat functionality.
type ChatService interface {
	// ProcessChat processes a chat request and returns a response.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// StreamChat processes a chat request and streams the response via callback.
	StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) error
}

// chatService implements ChatService.
type chatService struct {
	llmClient    LLMClient
	systemPrompt string
}

// NewChatService creates a new ChatService. A non-empty systemPrompt is
// sent ahead of every conversation.
func NewChatService(llmClient LLMClient, systemPrompt string) ChatService {
	return &chatService{
		llmClient:    llmClient,
		systemPrompt: systemPrompt,
	}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	messages, err := s.prepare(req)
	if err != nil {
		logger.WarnContext(ctx, "invalid chat request", "error", err)
		return ChatResponse{}, err
	}

	reply, err := s.llmClient.ChatWithMessages(ctx, messages, llm.ChatParams{Temperature: req.Temperature})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err, "provider_status", llm.StatusCode(err))
		return ChatResponse{}, ExternalError(err, "failed to get LLM response")
	}

	logger.InfoContext(ctx, "chat request processed successfully", "messages", len(req.Messages), "reply_length", len(reply))
	return ChatResponse{
		Reply: reply,
	}, nil
}

// StreamChat processes a chat request and streams the response.
func (s *chatService) StreamChat(ctx context.Context, req ChatRequest, callback func(chunk string) error) error {
	logger := contextutil.LoggerFromContext(ctx)

	messages, err := s.prepare(req)
	if err != nil {
		logger.WarnContext(ctx, "invalid streaming chat request", "error", err)
		return err
	}

	err = s.llmClient.StreamChatWithMessages(ctx, messages, llm.ChatParams{Temperature: req.Temperature}, callback)
	if err != nil {
		logger.ErrorContext(ctx, "failed to stream LLM response", "error", err, "provider_status", llm.StatusCode(err))
		return ExternalError(err, "failed to stream LLM response")
	}

	logger.InfoContext(ctx, "streaming chat request processed successfully", "messages", len(req.Messages))
	return nil
}

// prepare validates the conversation and prepends the system prompt.
func (s *chatService) prepare(req ChatRequest) ([]llm.Message, error) {
	if len(req.Messages) == 0 {
		return nil, NewValidationError("messages", "cannot be empty")
	}

	messages := make([]llm.Message, 0, len(req.Messages)+1)
	if s.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt})
	}
	for i, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleSystem:
		default:
			return nil, NewValidationError("messages", "message %d has unknown role %q", i, m.Role)
		}
		if m.Content == "" {
			return nil, NewValidationError("messages", "message %d has empty content", i)
		}
		messages = append(messages, m)
	}
	return messages, nil
}
