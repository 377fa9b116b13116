// Package apiclient talks to the storyteller HTTP API.
package apiclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"storyteller-ai/internal/handlers"
	"storyteller-ai/internal/llm"
)

// APIError is a non-2xx response decoded from the server's {error} body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, e.Message)
}

// StreamError is an error event received after a stream had started.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "stream failed: " + e.Message
}

// ErrStreamTruncated is returned when a stream ends without its terminator.
var ErrStreamTruncated = errors.New("stream ended before [DONE]")

// Client calls the storyteller API.
type Client struct {
	baseURL string
	client  *http.Client

	// Debug asks /api/retrieveandquery to include the retrieved chunks.
	Debug bool
}

// New creates a new Client. A nil httpClient uses a client with a two minute timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// SplitAndEmbed chunks and embeds a document.
func (c *Client) SplitAndEmbed(ctx context.Context, req handlers.SplitAndEmbedRequest) (handlers.SplitAndEmbedPayload, error) {
	var resp handlers.SplitAndEmbedResponse
	if err := c.postJSON(ctx, "/api/splitandembed", req, &resp); err != nil {
		return handlers.SplitAndEmbedPayload{}, err
	}
	return resp.Payload, nil
}

// RetrieveAndQuery runs the character extraction query against the supplied nodes.
func (c *Client) RetrieveAndQuery(ctx context.Context, req handlers.RetrieveAndQueryRequest) (handlers.RetrieveAndQueryPayload, error) {
	path := "/api/retrieveandquery"
	if c.Debug {
		path += "?debug=true"
	}
	var resp handlers.RetrieveAndQueryResponse
	if err := c.postJSON(ctx, path, req, &resp); err != nil {
		return handlers.RetrieveAndQueryPayload{}, err
	}
	return resp.Payload, nil
}

// StreamChat streams the reply for messages, calling callback for each event in order.
func (c *Client) StreamChat(ctx context.Context, messages []llm.Message, callback func(chunk string) error) error {
	body, err := json.Marshal(handlers.ChatRequest{Messages: messages})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat?stream=true", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	return readSSE(resp.Body, callback)
}

// readSSE parses an event stream. Data lines of one event are joined with
// newlines; a blank line dispatches the event.
func readSSE(r io.Reader, callback func(chunk string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		event string
		data  []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				event = value
			case "data":
				data = append(data, value)
			}
			continue
		}

		if len(data) == 0 {
			event = ""
			continue
		}
		payload := strings.Join(data, "\n")
		name := event
		event, data = "", nil

		if name == "error" {
			var errResp handlers.ErrorResponse
			if err := json.Unmarshal([]byte(payload), &errResp); err != nil || errResp.Error == "" {
				return &StreamError{Message: payload}
			}
			return &StreamError{Message: errResp.Error}
		}
		if payload == handlers.SSEDone {
			return nil
		}
		if err := callback(payload); err != nil {
			return fmt.Errorf("callback error: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return ErrStreamTruncated
}

// UploadDocument sends a file to /api/document and returns its plain text.
func (c *Client) UploadDocument(ctx context.Context, fileName, contentType string, data []byte) (handlers.DocumentPayload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return handlers.DocumentPayload{}, fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return handlers.DocumentPayload{}, fmt.Errorf("failed to write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return handlers.DocumentPayload{}, fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/document", &buf)
	if err != nil {
		return handlers.DocumentPayload{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp handlers.DocumentResponse
	if err := c.do(req, &resp); err != nil {
		return handlers.DocumentPayload{}, err
	}
	return resp.Payload, nil
}

// Health reports the server's health. An unhealthy server returns the
// decoded body together with an *APIError.
func (c *Client) Health(ctx context.Context) (handlers.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return handlers.HealthResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return handlers.HealthResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var health handlers.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return handlers.HealthResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return health, &APIError{StatusCode: resp.StatusCode, Message: health.Status}
	}
	return health, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	var errResp handlers.ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
}
