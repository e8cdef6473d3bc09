// Package docx normalises Word documents by reading word/document.xml.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the type handled by this normaliser.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// wordNS is the WordprocessingML main namespace.
const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// maxPartSize bounds a single decompressed archive member.
const maxPartSize = 64 << 20

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts paragraph text, one paragraph per line. Paragraphs
// inside tables are included in document order.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %w", domain.ErrUnreadableFile, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnreadableFile, err)
	}

	content, paragraphs, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: word/document.xml: %w", domain.ErrUnreadableFile, err)
	}

	doc := domain.Document{
		Title:    extractTitle(reader, raw.URI),
		MIMEType: raw.MIMEType,
		Content:  content,
		Metadata: copyMetadata(raw.Metadata),
	}
	doc.Metadata["format"] = "docx"
	doc.Metadata["paragraphs"] = paragraphs

	return &driven.NormaliseResult{Document: doc}, nil
}

var errPartMissing = errors.New("part missing")

// readPart returns the decompressed bytes of the named archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(data) > maxPartSize {
			return nil, fmt.Errorf("%s exceeds %d bytes", name, maxPartSize)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", name, errPartMissing)
}

// parseDocumentXML streams the document body. w:t contributes text, w:tab a
// tab, w:br and w:cr a line break, and each w:p ends a line.
func parseDocumentXML(content []byte) (string, int, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var (
		result     strings.Builder
		para       strings.Builder
		inText     bool
		paragraphs int
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if paragraphs > 0 {
					result.WriteByte('\n')
				}
				result.WriteString(para.String())
				para.Reset()
				paragraphs++
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return strings.TrimSpace(result.String()), paragraphs, nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads docProps/core.xml and falls back to the file name.
func extractTitle(reader *zip.Reader, uri string) string {
	if data, err := readPart(reader, "docProps/core.xml"); err == nil {
		var core coreXML
		if err := xml.Unmarshal(data, &core); err == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}

	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}

// copyMetadata returns a shallow copy that is never nil.
func copyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+2)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
