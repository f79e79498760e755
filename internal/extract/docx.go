package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"docrag/internal/domain"
)

const documentPart = "word/document.xml"

var zipMagic = []byte("PK\x03\x04")

func isZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

func extractDOCX(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %v", domain.ErrCorruptDocument, err)
	}

	for _, file := range reader.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrCorruptDocument, err)
		}
		defer rc.Close()
		return parseDocumentXML(rc)
	}
	return "", fmt.Errorf("%w: missing %s", domain.ErrCorruptDocument, documentPart)
}

// parseDocumentXML walks the WordprocessingML body in document order.
// Paragraphs inside tables are included; each paragraph ends with a newline.
// A paragraph nested in a text box is emitted on its own line when it closes,
// and the enclosing paragraph keeps collecting its text. Markup-compatibility
// fallbacks repeat their alternate content and are skipped.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out      strings.Builder
		paras    []*strings.Builder
		inText   bool
		fallback int
		count    int
	)
	current := func() *strings.Builder {
		if len(paras) == 0 {
			return nil
		}
		return paras[len(paras)-1]
	}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrCorruptDocument, documentPart, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "Fallback" {
				fallback++
				continue
			}
			if fallback > 0 {
				continue
			}
			switch el.Name.Local {
			case "p":
				paras = append(paras, new(strings.Builder))
			case "t":
				inText = true
			case "tab":
				if p := current(); p != nil {
					p.WriteByte('\t')
				}
			case "br", "cr":
				if p := current(); p != nil {
					p.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if el.Name.Local == "Fallback" {
				if fallback > 0 {
					fallback--
				}
				continue
			}
			if fallback > 0 {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				p := current()
				if p == nil {
					continue
				}
				paras = paras[:len(paras)-1]
				if count > 0 {
					out.WriteByte('\n')
				}
				out.WriteString(p.String())
				count++
			}
		case xml.CharData:
			if p := current(); inText && fallback == 0 && p != nil {
				p.Write(el)
			}
		}
	}
	return out.String(), nil
}
