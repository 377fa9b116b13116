package llm

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// RunesPerToken approximates how many characters make one token for English text.
const RunesPerToken = 4.0

// TokenCounter counts tokens with the cl100k_base encoding.
// The zero value falls back to EstimateTokens.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter loads the cl100k_base encoding. Loading may need network
// access the first time; callers can fall back to the zero value on error.
func NewTokenCounter() (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TokenCounter{encoding: enc}, nil
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if c == nil || c.encoding == nil {
		return EstimateTokens(text)
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimateTokens approximates a token count from the rune length.
// Non-empty text counts as at least one token.
func EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	n := int(math.Round(float64(runes) / RunesPerToken))
	if n < 1 {
		n = 1
	}
	return n
}
