package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storyteller-ai/internal/handlers"
	"storyteller-ai/internal/indexer"
	"storyteller-ai/internal/rag"
	"storyteller-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Indexer     indexer.Indexer
	RAGEngine   rag.Engine
	ChatService service.ChatService

	// VectorBackend names the index backend reported by /api/health.
	VectorBackend string
	// HealthChecker checks the vector store; nil for in-process backends.
	HealthChecker handlers.HealthChecker
	// MaxUploadBytes caps /api/document uploads; 0 uses the handler default.
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
// Handlers are mounted for every method so they can answer 405 themselves.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	// Add CORS middleware
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Handle("/splitandembed", handlers.NewSplitAndEmbedHandler(deps.Indexer))
		r.Handle("/retrieveandquery", handlers.NewRetrieveAndQueryHandler(deps.RAGEngine))
		r.Handle("/chat", handlers.NewChatHandler(deps.ChatService))
		r.Handle("/document", handlers.NewDocumentHandler(deps.MaxUploadBytes))
		r.Handle("/health", handlers.NewHealthHandler(deps.VectorBackend, deps.HealthChecker))
	})

	return r
}
