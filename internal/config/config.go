package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMaxUploadBytes caps /api/document uploads when MAX_UPLOAD_BYTES is unset.
const DefaultMaxUploadBytes = 10 << 20

// DefaultExtractionQuery is the instruction sent to the model when extracting characters.
const DefaultExtractionQuery = "Given the text provided, identify each character mentioned and provide the following details for each character: " +
	"Name: The full name of the character. " +
	"Description: A brief summary of the character's role, actions, or traits in the story. " +
	"Personality: A short description of the character's personality traits or behavioral tendencies, based on their actions and dialogue. " +
	"Format the response exactly like this example: Name: Snow White. Description: She is described as a cape-wearing girl from the land of fancy who lives with seven other men. Personality: She is lively, independent, and not afraid to speak her mind. " +
	"Provide a similar structured answer for each character identified in the text"

// DefaultStorySystemPrompt is the system prompt used for story generation.
const DefaultStorySystemPrompt = "You are a creative storyteller. The user sends a JSON object with a list of characters, " +
	"each with a name, description and personality. Write an original short story in which every character appears " +
	"and behaves according to their personality. Reply with the story text only."

// Pipeline holds tunable defaults for chunking, retrieval and generation.
// Request values override these; zero request values fall back to them.
type Pipeline struct {
	ChunkSize         int     `yaml:"chunk_size"`
	ChunkOverlap      int     `yaml:"chunk_overlap"`
	TopK              int     `yaml:"top_k"`
	Temperature       float64 `yaml:"temperature"`
	TopP              float64 `yaml:"top_p"`
	ExtractionQuery   string  `yaml:"extraction_query"`
	StorySystemPrompt string  `yaml:"story_system_prompt"`
}

// DefaultPipeline returns the built-in pipeline defaults.
func DefaultPipeline() Pipeline {
	return Pipeline{
		ChunkSize:         1024,
		ChunkOverlap:      20,
		TopK:              2,
		Temperature:       0.1,
		TopP:              1,
		ExtractionQuery:   DefaultExtractionQuery,
		StorySystemPrompt: DefaultStorySystemPrompt,
	}
}

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL          string
	LLMModelName        string
	LLMAPIKey           string
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingDimensions int
	EmbeddingBatchSize  int
	VectorBackend       string
	QdrantURL           string
	QdrantAPIKey        string
	APIPort             string
	MaxUploadBytes      int64
	LogLevel            slog.Level
	LogFormat           string
	Pipeline            Pipeline
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	llmBaseURL := getEnv("LLM_BASE_URL", "https://api.openai.com/v1")

	cfg := &Config{
		LLMBaseURL:         llmBaseURL,
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4"),
		LLMAPIKey:          getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", llmBaseURL),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-ada-002"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", "chromem")),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:       getEnv("QDRANT_API_KEY", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	var err error
	if cfg.EmbeddingDimensions, err = getEnvInt("EMBEDDING_DIMENSIONS", 0); err != nil {
		return nil, err
	}
	if cfg.EmbeddingDimensions < 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMENSIONS must not be negative")
	}

	if cfg.EmbeddingBatchSize, err = getEnvInt("EMBEDDING_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.EmbeddingBatchSize <= 0 {
		return nil, fmt.Errorf("EMBEDDING_BATCH_SIZE must be greater than 0")
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be greater than 0")
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	switch cfg.VectorBackend {
	case "chromem", "qdrant":
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be one of chromem, qdrant; got %q", cfg.VectorBackend)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be text or json; got %q", cfg.LogFormat)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	pipeline, err := pipelineFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Pipeline = pipeline

	return cfg, nil
}

// LoadPipeline returns the pipeline defaults with the PIPELINE_CONFIG overlay
// applied. Clients use it to send the same tunables the server would default to.
func LoadPipeline() (Pipeline, error) {
	loadDotEnv()
	return pipelineFromEnv()
}

func pipelineFromEnv() (Pipeline, error) {
	p := DefaultPipeline()
	if path := getEnv("PIPELINE_CONFIG", ""); path != "" {
		if err := loadPipelineFile(path, &p); err != nil {
			return Pipeline{}, err
		}
	}
	if err := p.Validate(); err != nil {
		return Pipeline{}, err
	}
	return p, nil
}

// loadDotEnv loads .env from the working directory, or from the nearest of
// up to five parent directories. Variables already set are kept.
func loadDotEnv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

// Validate checks that pipeline defaults are usable.
func (p Pipeline) Validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be greater than 0")
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size)")
	}
	if p.TopK <= 0 {
		return fmt.Errorf("top_k must be greater than 0")
	}
	if p.ExtractionQuery == "" {
		return fmt.Errorf("extraction_query cannot be empty")
	}
	return nil
}

// loadPipelineFile overlays YAML values on top of the current pipeline defaults.
// Keys missing from the file keep their existing values.
func loadPipelineFile(path string, p *Pipeline) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pipeline config %s: %w", path, err)
	}
	var file struct {
		Pipeline Pipeline `yaml:"pipeline"`
	}
	file.Pipeline = *p
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse pipeline config %s: %w", path, err)
	}
	*p = file.Pipeline
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}
