package indexer

// Chunk is a contiguous span of the source document.
// Offset and Length are measured in runes, so Text equals
// string([]rune(document)[Offset : Offset+Length]).
type Chunk struct {
	Index  int
	Offset int
	Length int
	Text   string
}

// Node pairs a chunk's text with its embedding vector.
// Nodes are held by the client between the embed and query steps.
type Node struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// SplitRequest asks for a document to be chunked and embedded.
// Nil ChunkSize or ChunkOverlap fall back to the pipeline defaults.
type SplitRequest struct {
	Document     string
	ChunkSize    *int
	ChunkOverlap *int
}

// SplitResult holds the embedded chunks in document order.
type SplitResult struct {
	Nodes []Node
	Stats ChunkStats
}
