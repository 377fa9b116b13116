// Package session holds the client-side state of one extraction and
// storytelling run: the loaded document, its embedded nodes, the extracted
// characters and the story transcript.
package session

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_api.go -package=mocks storyteller-ai/internal/session API

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"storyteller-ai/internal/apiclient"
	"storyteller-ai/internal/config"
	"storyteller-ai/internal/contextutil"
	"storyteller-ai/internal/handlers"
	"storyteller-ai/internal/indexer"
	"storyteller-ai/internal/llm"
	"storyteller-ai/internal/story"
)

// Status texts shown in Answer while work is in flight.
const (
	StatusBuildingIndex = "Building index..."
	StatusBookLoaded    = "Book Loaded!"
	StatusRunningQuery  = "Running query..."
	// DocumentError replaces the document text when an upload cannot be read.
	DocumentError = "Error"
)

var (
	// ErrNotAllowed is returned when an operation is invoked in a state that forbids it.
	ErrNotAllowed = errors.New("operation not allowed in current state")
	// ErrCharacterNotFound is returned when no character has the given id.
	ErrCharacterNotFound = errors.New("character not found")
)

// API is the subset of the storyteller API a session drives.
type API interface {
	SplitAndEmbed(ctx context.Context, req handlers.SplitAndEmbedRequest) (handlers.SplitAndEmbedPayload, error)
	RetrieveAndQuery(ctx context.Context, req handlers.RetrieveAndQueryRequest) (handlers.RetrieveAndQueryPayload, error)
	StreamChat(ctx context.Context, messages []llm.Message, callback func(chunk string) error) error
	UploadDocument(ctx context.Context, fileName, contentType string, data []byte) (handlers.DocumentPayload, error)
}

// Params are the tunables sent with each request.
type Params struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Temperature  float64
	TopP         float64
}

// ParamsFromPipeline copies the request tunables out of p.
func ParamsFromPipeline(p config.Pipeline) Params {
	return Params{
		ChunkSize:    p.ChunkSize,
		ChunkOverlap: p.ChunkOverlap,
		TopK:         p.TopK,
		Temperature:  p.Temperature,
		TopP:         p.TopP,
	}
}

// Session is the orchestration state machine. It is owned by one caller
// and is not safe for concurrent use; only Transcript may be read while
// GenerateStory runs.
type Session struct {
	api API

	NeedsNewIndex bool
	BuildingIndex bool
	RunningQuery  bool

	FileName string
	Document string
	Query    string
	Params   Params

	// Answer holds the last status text, raw model reply or error message.
	Answer     string
	Nodes      []indexer.Node
	Stats      indexer.ChunkStats
	Characters []story.Character
	Transcript *story.Transcript
}

// New creates a session that needs an index before anything can be extracted.
func New(api API, params Params) *Session {
	return &Session{
		api:           api,
		NeedsNewIndex: true,
		Query:         config.DefaultExtractionQuery,
		Params:        params,
		Transcript:    &story.Transcript{},
	}
}

// NewFromPipeline creates a session whose tunables and extraction query
// come from p.
func NewFromPipeline(api API, p config.Pipeline) *Session {
	s := New(api, ParamsFromPipeline(p))
	if p.ExtractionQuery != "" {
		s.Query = p.ExtractionQuery
	}
	return s
}

// LoadDocument replaces the document text and invalidates the current index.
func (s *Session) LoadDocument(text string) {
	s.Document = text
	s.Nodes = nil
	s.Stats = indexer.ChunkStats{}
	s.NeedsNewIndex = true
}

// LoadFile converts an uploaded file to text through the API and loads it.
// An unsupported type sets the document text to DocumentError and is only logged.
func (s *Session) LoadFile(ctx context.Context, fileName, contentType string, data []byte) error {
	logger := contextutil.LoggerFromContext(ctx)
	s.FileName = fileName

	payload, err := s.api.UploadDocument(ctx, fileName, contentType, data)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnsupportedMediaType {
			logger.ErrorContext(ctx, "document parsing not implemented", "file", fileName, "content_type", contentType, "error", apiErr.Message)
			s.Document = DocumentError
			return nil
		}
		return fmt.Errorf("failed to upload %s: %w", fileName, err)
	}

	s.LoadDocument(payload.Document)
	logger.InfoContext(ctx, "document loaded", "file", fileName, "length", len(payload.Document))
	return nil
}

// CanLoadBook reports whether LoadBook is currently allowed.
func (s *Session) CanLoadBook() bool {
	return s.NeedsNewIndex && !s.BuildingIndex && !s.RunningQuery
}

// CanExtract reports whether ExtractCharacters is currently allowed.
func (s *Session) CanExtract() bool {
	return !s.NeedsNewIndex && !s.BuildingIndex && !s.RunningQuery
}

// LoadBook splits and embeds the document. On failure Answer carries the
// error text and the index is marked as needed again.
func (s *Session) LoadBook(ctx context.Context) error {
	if !s.CanLoadBook() {
		return fmt.Errorf("load book: %w", ErrNotAllowed)
	}
	logger := contextutil.LoggerFromContext(ctx)

	s.Answer = StatusBuildingIndex
	s.BuildingIndex = true
	s.NeedsNewIndex = false
	defer func() { s.BuildingIndex = false }()

	chunkSize, chunkOverlap := s.Params.ChunkSize, s.Params.ChunkOverlap
	payload, err := s.api.SplitAndEmbed(ctx, handlers.SplitAndEmbedRequest{
		Document:     s.Document,
		ChunkSize:    &chunkSize,
		ChunkOverlap: &chunkOverlap,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to build index", "error", err)
		s.Answer = errorText(err)
		s.NeedsNewIndex = true
		return err
	}

	s.Nodes = payload.NodesWithEmbedding
	s.Stats = payload.Stats
	s.Answer = StatusBookLoaded
	logger.InfoContext(ctx, "book loaded", "nodes", len(s.Nodes), "p95_tokens", s.Stats.P95)
	return nil
}

// ExtractCharacters runs the extraction query over the loaded nodes and
// replaces the character list, numbering characters from 1.
func (s *Session) ExtractCharacters(ctx context.Context) error {
	if !s.CanExtract() {
		return fmt.Errorf("extract characters: %w", ErrNotAllowed)
	}
	logger := contextutil.LoggerFromContext(ctx)

	s.Answer = StatusRunningQuery
	s.RunningQuery = true
	defer func() { s.RunningQuery = false }()

	topK, temperature, topP := s.Params.TopK, s.Params.Temperature, s.Params.TopP
	payload, err := s.api.RetrieveAndQuery(ctx, handlers.RetrieveAndQueryRequest{
		Query:              s.Query,
		TopK:               &topK,
		NodesWithEmbedding: s.Nodes,
		Temperature:        &temperature,
		TopP:               &topP,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to run query", "error", err)
		s.Answer = errorText(err)
		return err
	}

	s.Answer = payload.Response
	s.Characters = make([]story.Character, len(payload.Characters))
	for i, c := range payload.Characters {
		s.Characters[i] = story.Character{
			ID:          i + 1,
			Name:        c.Name,
			Description: c.Description,
			Personality: c.Personality,
		}
	}
	logger.InfoContext(ctx, "characters extracted", "count", len(s.Characters))
	return nil
}

// AddCharacter appends c with id len(Characters)+1 and returns the stored copy.
func (s *Session) AddCharacter(c story.Character) story.Character {
	c.ID = len(s.Characters) + 1
	s.Characters = append(s.Characters, c)
	return c
}

// EditCharacter replaces the first character whose id matches c.ID.
func (s *Session) EditCharacter(c story.Character) error {
	i := slices.IndexFunc(s.Characters, func(existing story.Character) bool { return existing.ID == c.ID })
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrCharacterNotFound, c.ID)
	}
	s.Characters[i] = c
	return nil
}

// DeleteCharacter removes every character with the given id.
func (s *Session) DeleteCharacter(id int) error {
	before := len(s.Characters)
	s.Characters = slices.DeleteFunc(s.Characters, func(c story.Character) bool { return c.ID == id })
	if len(s.Characters) == before {
		return fmt.Errorf("%w: %d", ErrCharacterNotFound, id)
	}
	return nil
}

// GenerateStory clears the transcript and streams a story about the current
// character list into it. onChunk, if set, sees each chunk in order.
func (s *Session) GenerateStory(ctx context.Context, onChunk func(string)) error {
	if s.BuildingIndex || s.RunningQuery {
		return fmt.Errorf("generate story: %w", ErrNotAllowed)
	}
	logger := contextutil.LoggerFromContext(ctx)

	messages, err := story.BuildPrompt(s.Characters)
	if err != nil {
		return err
	}
	s.Transcript.Reset()
	for _, m := range messages {
		s.Transcript.Append(m)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks := make(chan string)
	streamErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		streamErr <- s.api.StreamChat(ctx, messages, func(chunk string) error {
			select {
			case chunks <- chunk:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	consumeErr := s.Transcript.Consume(ctx, chunks, onChunk)
	cancel()
	if err := <-streamErr; err != nil {
		logger.ErrorContext(ctx, "story stream failed", "error", err)
		return err
	}
	if consumeErr != nil {
		return consumeErr
	}

	logger.InfoContext(ctx, "story generated", "characters", len(s.Characters), "length", len(s.Transcript.Story()))
	return nil
}

func errorText(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
