// Package extract converts raw document bytes into plain text based on the
// file extension.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	docx "github.com/fumiama/go-docx"
	pdf "github.com/ledongthuc/pdf"
)

// Extractor dispatches on the filename extension. PDF and DOCX get real
// parsers; anything else decodes as best-effort raw text.
type Extractor struct{}

// New constructs an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of a document.
func (e *Extractor) Extract(data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	default:
		return string(data), nil
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var builder strings.Builder
	total := reader.NumPage()
	for page := 1; page <= total; page++ {
		p := reader.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	var builder strings.Builder
	for _, item := range doc.Document.Body.Items {
		if para, ok := item.(*docx.Paragraph); ok {
			builder.WriteString(para.String())
			builder.WriteString("\n")
		}
	}
	return builder.String(), nil
}
