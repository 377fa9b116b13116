package indexer

import (
	"fmt"
	"strings"
	"unicode"
)

// Split cuts document into windows of at most size runes. When a window stops
// short of the end of the document, the cut moves back to just after the last
// whitespace in the window, as long as the next window still advances. The next
// window starts overlap runes before the previous cut.
//
// Dropping the first overlap runes of every chunk after the first and
// concatenating the rest reproduces document exactly.
func Split(document string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be greater than 0, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	if strings.TrimSpace(document) == "" {
		return []Chunk{}, nil
	}

	runes := []rune(document)
	n := len(runes)
	chunks := make([]Chunk, 0, n/(size-overlap)+1)

	start := 0
	for {
		end := min(start+size, n)
		if end < n {
			end = softCut(runes, start+overlap, end)
		}

		chunks = append(chunks, Chunk{
			Index:  len(chunks),
			Offset: start,
			Length: end - start,
			Text:   string(runes[start:end]),
		})

		if end == n {
			break
		}
		start = end - overlap
	}

	return chunks, nil
}

// softCut returns the position just after the last whitespace rune in
// (floor, end], or end when there is none. Any result is > floor.
func softCut(runes []rune, floor, end int) int {
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
