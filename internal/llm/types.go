package llm

// Chat roles understood by OpenAI-compatible providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// Model specifies the model to use. If empty, the client's default model is used.
	Model string

	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, no limit is applied.
	MaxTokens int

	// Temperature and TopP are sent only when set; nil leaves the provider default.
	Temperature *float64
	TopP        *float64
}

// Float returns a pointer to v, for populating optional ChatParams fields.
func Float(v float64) *float64 {
	return &v
}
