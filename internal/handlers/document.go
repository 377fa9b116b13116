package handlers

import (
	"errors"
	"io"
	"net/http"

	"storyteller-ai/internal/config"
	"storyteller-ai/internal/contextutil"
	"storyteller-ai/internal/document"
)

// DocumentHandler converts an uploaded file into plain document text.
type DocumentHandler struct {
	maxBytes int64
}

// NewDocumentHandler creates a new DocumentHandler. maxBytes <= 0 uses config.DefaultMaxUploadBytes.
func NewDocumentHandler(maxBytes int64) *DocumentHandler {
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxUploadBytes
	}
	return &DocumentHandler{maxBytes: maxBytes}
}

// DocumentPayload carries the normalised text of an upload.
type DocumentPayload struct {
	FileName string `json:"fileName"`
	Document string `json:"document"`
}

// DocumentResponse represents the HTTP response payload for /api/document.
type DocumentResponse struct {
	Payload DocumentPayload `json:"payload"`
}

// ServeHTTP reads the multipart field "file" and returns its text.
// Unsupported types get 415 and oversized uploads 413.
func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if !methodAllowed(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			logger.WarnContext(ctx, "upload too large", "limit", maxErr.Limit)
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		logger.WarnContext(ctx, "missing upload", "error", err)
		writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.WarnContext(ctx, "failed to read upload", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	contentType := header.Header.Get("Content-Type")
	text, err := document.Normalize(header.Filename, contentType, data)
	if err != nil {
		if errors.Is(err, document.ErrUnsupportedType) {
			logger.WarnContext(ctx, "unsupported upload type", "file", header.Filename, "content_type", contentType)
		}
		handleServiceError(w, ctx, err, "Failed to read document")
		return
	}

	logger.InfoContext(ctx, "document normalised", "file", header.Filename, "content_type", contentType, "length", len(text))
	writeJSON(w, ctx, DocumentResponse{
		Payload: DocumentPayload{
			FileName: header.Filename,
			Document: text,
		},
	})
}
