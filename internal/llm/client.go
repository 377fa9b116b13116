package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	client openai.Client
	Model  string
}

// NewClient creates a new LLM client. Retries are disabled; callers surface
// provider failures directly.
func NewClient(baseURL, apiKey, model string, httpClient *http.Client) *Client {
	return &Client{
		client: openai.NewClient(requestOptions(baseURL, apiKey, httpClient)...),
		Model:  model,
	}
}

func requestOptions(baseURL, apiKey string, httpClient *http.Client) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return opts
}

// ChatWithMessages sends a full conversation and returns the first choice's content.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	req, err := c.buildParams(messages, params)
	if err != nil {
		return "", err
	}

	completion, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

// StreamChatWithMessages streams the completion and calls callback for every
// non-empty content delta, in order.
func (c *Client) StreamChatWithMessages(ctx context.Context, messages []Message, params ChatParams, callback func(chunk string) error) error {
	req, err := c.buildParams(messages, params)
	if err != nil {
		return err
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, req)
	defer func() {
		_ = stream.Close()
	}()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}

		if content := chunk.Choices[0].Delta.Content; content != "" {
			if err := callback(content); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}

		if chunk.Choices[0].FinishReason != "" {
			break
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}

	return nil
}

func (c *Client) buildParams(messages []Message, params ChatParams) (openai.ChatCompletionNewParams, error) {
	if len(messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("no messages to send")
	}

	model := c.Model
	if params.Model != "" {
		model = params.Model
	}

	req := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			req.Messages = append(req.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			req.Messages = append(req.Messages, openai.AssistantMessage(m.Content))
		case RoleUser, "":
			req.Messages = append(req.Messages, openai.UserMessage(m.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	if params.Temperature != nil {
		req.Temperature = openai.Float(*params.Temperature)
	}
	if params.TopP != nil {
		req.TopP = openai.Float(*params.TopP)
	}

	return req, nil
}

// StatusCode returns the HTTP status reported by the provider, or 0 when err
// did not come from an API response.
func StatusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
