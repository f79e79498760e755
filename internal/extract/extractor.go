// Package extract converts raw PDF and Word documents into plain text.
package extract

import (
	"fmt"

	"docrag/internal/domain"
)

// Ensure Extractor implements the interface.
var _ domain.Extractor = (*Extractor)(nil)

// Extractor dispatches on the declared document type.
type Extractor struct{}

// New creates a text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of data interpreted as type t.
// Unsupported types fail before any byte of data is inspected.
func (e *Extractor) Extract(data []byte, t domain.DocumentType) (string, error) {
	switch t {
	case domain.TypePDF:
		return extractPDF(data)
	case domain.TypeDOCX:
		return extractDOCX(data)
	case domain.TypeDOC:
		// Legacy binary .doc is unreadable here; OOXML saved with a .doc name is common.
		if !isZip(data) {
			return "", fmt.Errorf("%w: legacy binary .doc is not supported, save as .docx", domain.ErrCorruptDocument)
		}
		return extractDOCX(data)
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, string(t))
}
