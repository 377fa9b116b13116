package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"storyteller-ai/internal/vectorstore"
)

const questionAnswerTemplate = `Context information is below.
---------------------
{{.context}}
---------------------
Given the context information and not prior knowledge, answer the query.
Query: {{.query}}
Answer:`

var questionAnswerPrompt = prompts.NewPromptTemplate(questionAnswerTemplate, []string{"context", "query"})

// buildPrompt renders the retrieved chunks and the query into a single user message.
// Chunks are joined in retrieval order, separated by blank lines.
func buildPrompt(query string, results []vectorstore.SearchResult) (string, error) {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}

	out, err := questionAnswerPrompt.Format(map[string]any{
		"context": strings.Join(texts, "\n\n"),
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return out, nil
}
