package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

// Document is the normalised plain text of one source file.
// Documents are immutable once loaded.
type Document struct {
	// ID is derived from the source path and is stable and unique per source.
	ID string

	// Path is the file the document was loaded from.
	Path string

	// Title is the human-readable title.
	Title string

	// MIMEType is the detected content type of the source file.
	MIMEType string

	// Content is the full text after normalisation.
	Content string

	// ContentHash is the hex sha256 of Content.
	ContentHash string

	// Metadata contains normaliser-specific key-value pairs.
	Metadata map[string]any

	// LoadedAt is when the document was read from its source.
	LoadedAt time.Time
}

// Chunk is a contiguous window of a document's text.
type Chunk struct {
	// ID is a unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Position is the 0-based sequence number within the document.
	Position int

	// Offset is the rune offset of the chunk within the document content.
	Offset int

	// Content is the raw chunk text.
	Content string
}

// DocumentIDFromPath derives a document identifier from a file path.
// The readable part keeps the stem and extension, so report.pdf and
// report.txt differ. The suffix is a digest of the absolute path, so files
// whose names sanitise alike, or that share a name in different
// directories, never share an ID.
func DocumentIDFromPath(path string) string {
	clean := filepath.Clean(path)
	if abs, err := filepath.Abs(clean); err == nil {
		clean = abs
	}

	base := filepath.Base(clean)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	id := sanitiseID(stem)
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		id += "_" + sanitiseID(ext)
	}

	sum := sha256.Sum256([]byte(clean))
	return id + "-" + hex.EncodeToString(sum[:])[:pathDigestLen]
}

// pathDigestLen is the number of hex digits of the path digest in an ID.
const pathDigestLen = 12

func sanitiseID(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// ContentHash returns the sha256 hex digest of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
