package rag

import (
	"regexp"
	"strings"
)

var characterPattern = regexp.MustCompile(`Name:\s*([^.]+)\.\s*Description:\s*([^.]+)\.\s*Personality:\s*([^.]+)\.`)

// ExtractCharacters parses every "Name: X. Description: Y. Personality: Z." record
// in text, left to right, without overlapping matches. Fields are trimmed.
// Text with no match yields an empty, non-nil slice.
func ExtractCharacters(text string) []Character {
	matches := characterPattern.FindAllStringSubmatch(text, -1)

	characters := make([]Character, 0, len(matches))
	for _, m := range matches {
		characters = append(characters, Character{
			Name:        strings.TrimSpace(m[1]),
			Description: strings.TrimSpace(m[2]),
			Personality: strings.TrimSpace(m[3]),
		})
	}
	return characters
}
