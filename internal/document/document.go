// Package document converts uploaded files into plain text ready for chunking.
package document

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for uploads whose type has no converter.
var ErrUnsupportedType = errors.New("unsupported document type")

// Kind identifies a supported document format.
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindPDF      Kind = "pdf"
	KindDOCX     Kind = "docx"
)

const (
	mimeText     = "text/plain"
	mimeMarkdown = "text/markdown"
	mimePDF      = "application/pdf"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var kindsByMIME = map[string]Kind{
	mimeText:          KindText,
	mimeMarkdown:      KindMarkdown,
	"text/x-markdown": KindMarkdown,
	mimePDF:           KindPDF,
	mimeDOCX:          KindDOCX,
}

var kindsByExt = map[string]Kind{
	".txt":      KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".pdf":      KindPDF,
	".docx":     KindDOCX,
}

// Detect resolves the document kind from the declared content type, falling
// back to the file extension when the type is missing or generic.
func Detect(name, contentType string) (Kind, error) {
	mediaType := ""
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
		}
		mediaType = strings.ToLower(mt)
	}

	if kind, ok := kindsByMIME[mediaType]; ok {
		return kind, nil
	}

	if mediaType == "" || mediaType == "application/octet-stream" {
		if kind, ok := kindsByExt[strings.ToLower(filepath.Ext(name))]; ok {
			return kind, nil
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mediaType)
}

// Normalize converts data to plain text according to its detected kind.
func Normalize(name, contentType string, data []byte) (string, error) {
	kind, err := Detect(name, contentType)
	if err != nil {
		return "", err
	}

	switch kind {
	case KindText:
		return strings.ToValidUTF8(string(data), "�"), nil
	case KindMarkdown:
		return markdownToText(data)
	case KindPDF:
		return pdfToText(data)
	case KindDOCX:
		return docxToText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}
