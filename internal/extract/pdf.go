package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

func extractPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty pdf", domain.ErrCorruptDocument)
	}
	// The pdf reader panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", domain.ErrCorruptDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
	}

	n := reader.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, pageText(reader, i))
	}
	return strings.Join(pages, "\n"), nil
}

// pageText returns the text of page i, or "" when that page fails to decode.
func pageText(reader *pdf.Reader, i int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("pdf page %d: decode panic: %v", i, r)
			text = ""
		}
	}()
	page := reader.Page(i)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		logger.Debug("pdf page %d: %v", i, err)
		return ""
	}
	return text
}
