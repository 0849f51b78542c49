// Package extract turns source document files into plain text for the
// ingestion pipeline.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extract reads the file at path and returns its text content. PDFs get
// their page text extracted; anything else is treated as plain UTF-8 text.
func Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(content)
	default:
		return extractPlain(content)
	}
}
