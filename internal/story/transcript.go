package story

import (
	"context"
	"strings"
	"sync"

	"storyteller-ai/internal/llm"
)

// Transcript is the ordered, append-only message log of one story generation.
// A single Consume call feeds it; readers may poll Messages or Visible concurrently.
type Transcript struct {
	mu       sync.RWMutex
	messages []llm.Message
}

// Reset drops all messages.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = nil
}

// Append adds a complete message.
func (t *Transcript) Append(msg llm.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Consume reads chunks until the channel closes or ctx is done, growing a
// single assistant message in arrival order. onChunk, if set, observes
// each chunk after it is recorded.
func (t *Transcript) Consume(ctx context.Context, chunks <-chan string, onChunk func(string)) error {
	t.mu.Lock()
	t.messages = append(t.messages, llm.Message{Role: llm.RoleAssistant})
	idx := len(t.messages) - 1
	t.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			t.mu.Lock()
			t.messages[idx].Content += chunk
			t.mu.Unlock()
			if onChunk != nil {
				onChunk(chunk)
			}
		}
	}
}

// Messages returns a copy of the recorded messages.
func (t *Transcript) Messages() []llm.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]llm.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Visible returns each message's display text after FilterMessageContent.
func (t *Transcript) Visible() []string {
	msgs := t.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = FilterMessageContent(m.Content)
	}
	return out
}

// Story returns the concatenated assistant output.
func (t *Transcript) Story() string {
	var b strings.Builder
	for _, m := range t.Messages() {
		if m.Role == llm.RoleAssistant {
			b.WriteString(m.Content)
		}
	}
	return b.String()
}
