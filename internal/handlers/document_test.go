package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"storyteller-ai/internal/config"
)

func multipartBody(t *testing.T, field, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+fileName+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestDocumentHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name         string
		field        string
		fileName     string
		contentType  string
		data         string
		maxBytes     int64
		wantStatus   int
		wantDocument string
	}{
		{
			name:         "plain text",
			field:        "file",
			fileName:     "story.txt",
			contentType:  "text/plain",
			data:         "Alice met Bob.",
			wantStatus:   http.StatusOK,
			wantDocument: "Alice met Bob.",
		},
		{
			name:         "markdown by extension",
			field:        "file",
			fileName:     "story.md",
			contentType:  "application/octet-stream",
			data:         "# Title\n\nAlice met\nBob.",
			wantStatus:   http.StatusOK,
			wantDocument: "Title\n\nAlice met Bob.",
		},
		{
			name:        "unsupported type",
			field:       "file",
			fileName:    "picture.png",
			contentType: "image/png",
			data:        "\x89PNG",
			wantStatus:  http.StatusUnsupportedMediaType,
		},
		{
			name:        "missing file field",
			field:       "upload",
			fileName:    "story.txt",
			contentType: "text/plain",
			data:        "text",
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "upload too large",
			field:       "file",
			fileName:    "story.txt",
			contentType: "text/plain",
			data:        strings.Repeat("a", 4096),
			maxBytes:    1024,
			wantStatus:  http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, formType := multipartBody(t, tt.field, tt.fileName, tt.contentType, []byte(tt.data))
			req := httptest.NewRequest(http.MethodPost, "/api/document", body)
			req.Header.Set("Content-Type", formType)
			w := httptest.NewRecorder()

			NewDocumentHandler(tt.maxBytes).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("ServeHTTP() status = %v, want %v (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				var resp ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
					t.Errorf("ServeHTTP() expected error body, got %s", w.Body.String())
				}
				return
			}

			var resp DocumentResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("ServeHTTP() invalid JSON: %v", err)
			}
			if resp.Payload.FileName != tt.fileName {
				t.Errorf("ServeHTTP() fileName = %q, want %q", resp.Payload.FileName, tt.fileName)
			}
			if resp.Payload.Document != tt.wantDocument {
				t.Errorf("ServeHTTP() document = %q, want %q", resp.Payload.Document, tt.wantDocument)
			}
		})
	}
}

func TestDocumentHandler_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/document", nil)
	w := httptest.NewRecorder()

	NewDocumentHandler(0).ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("ServeHTTP() status = %v, want %v", w.Code, http.StatusMethodNotAllowed)
	}
	if got := w.Header().Get("Allow"); got != http.MethodPost {
		t.Errorf("ServeHTTP() Allow = %q, want POST", got)
	}
}

func TestNewDocumentHandler_DefaultLimit(t *testing.T) {
	if h := NewDocumentHandler(-1); h.maxBytes != config.DefaultMaxUploadBytes {
		t.Errorf("NewDocumentHandler() maxBytes = %d, want %d", h.maxBytes, config.DefaultMaxUploadBytes)
	}
}
