// Package story builds story-generation prompts and collects streamed replies.
package story

import (
	"encoding/json"
	"fmt"

	"storyteller-ai/internal/llm"
)

// Character is an editable character record. ID is assigned by the client.
type Character struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Personality string `json:"personality"`
}

type promptPayload struct {
	Characters []Character `json:"characters"`
}

// BuildPrompt serialises characters as {"characters":[...]} and wraps it in
// a single-message user conversation.
func BuildPrompt(characters []Character) ([]llm.Message, error) {
	if characters == nil {
		characters = []Character{}
	}
	body, err := json.Marshal(promptPayload{Characters: characters})
	if err != nil {
		return nil, fmt.Errorf("failed to encode characters: %w", err)
	}
	return []llm.Message{{Role: llm.RoleUser, Content: string(body)}}, nil
}

// FilterMessageContent hides the character payload sent as the prompt.
// Content that decodes to a JSON object with a truthy "characters" field
// yields ""; anything else, including malformed JSON, is returned verbatim.
func FilterMessageContent(content string) string {
	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return content
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return content
	}
	if truthy(obj["characters"]) {
		return ""
	}
	return content
}

// truthy mirrors JSON truthiness: null, false, 0 and "" are false; arrays
// and objects are true even when empty.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
