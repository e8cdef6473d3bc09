package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// maxFileSize bounds the bytes read for a single document.
const maxFileSize = 256 << 20

// Source serves documents from a single directory. Subdirectories are not
// scanned.
type Source struct {
	dir       string
	registry  driven.NormaliserRegistry
	supported map[string]bool
	now       func() time.Time
}

// NewSource creates a source over dir using registry for extraction.
func NewSource(dir string, registry driven.NormaliserRegistry) *Source {
	supported := make(map[string]bool)
	for _, t := range registry.SupportedMIMETypes() {
		supported[t] = true
	}
	return &Source{
		dir:       filepath.Clean(dir),
		registry:  registry,
		supported: supported,
		now:       time.Now,
	}
}

// Dir returns the documents directory.
func (s *Source) Dir() string {
	return s.dir
}

// Supports reports whether the file name has a supported type and is not hidden.
func (s *Source) Supports(path string) bool {
	if isHidden(filepath.Base(path)) {
		return false
	}
	return s.supported[detectMIMEType(path)]
}

// List returns the supported documents in the directory, sorted by name.
func (s *Source) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: documents directory %s", domain.ErrNotFound, s.dir)
		}
		return nil, fmt.Errorf("read documents directory: %w", err)
	}

	// os.ReadDir returns entries sorted by file name.
	docs := make([]domain.DocumentInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !s.Supports(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		docs = append(docs, domain.DocumentInfo{
			ID:   domain.DocumentIDFromPath(path),
			Name: entry.Name(),
			Path: path,
			Size: info.Size(),
		})
	}
	return docs, nil
}

// Load reads and normalises the document at path.
func (s *Source) Load(ctx context.Context, path string) (*domain.Document, error) {
	path = LocalPath(path)
	name := filepath.Base(path)

	mimeType := detectMIMEType(path)
	if !s.supported[mimeType] {
		return nil, fmt.Errorf("%w: %w: %s (%s)", domain.ErrExtraction, domain.ErrUnsupportedFormat, name, mimeType)
	}

	content, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrExtraction, domain.ErrUnreadableFile, err)
	}

	result, err := s.registry.Normalise(ctx, &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{"size": int64(len(content))},
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFormat) || errors.Is(err, domain.ErrUnreadableFile) {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, name, err)
		}
		return nil, fmt.Errorf("%w: %w: %s: %w", domain.ErrExtraction, domain.ErrUnreadableFile, name, err)
	}

	doc := result.Document
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: %w: %s contains no extractable text", domain.ErrExtraction, domain.ErrUnreadableFile, name)
	}

	doc.ID = domain.DocumentIDFromPath(path)
	doc.Path = path
	doc.MIMEType = mimeType
	doc.ContentHash = domain.ContentHash(doc.Content)
	doc.LoadedAt = s.now()

	return &doc, nil
}

// Resolve maps a reference to a file path. It accepts, in order: an
// existing path, a file name inside the documents directory, and a
// document ID.
func (s *Source) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(LocalPath(ref))
	if ref == "" {
		return "", fmt.Errorf("%w: empty document reference", domain.ErrInvalidInput)
	}

	if isFile(ref) {
		return filepath.Clean(ref), nil
	}

	if !filepath.IsAbs(ref) {
		if candidate := filepath.Join(s.dir, ref); isFile(candidate) {
			return candidate, nil
		}
	}

	docs, err := s.List(context.Background())
	if err == nil {
		for _, d := range docs {
			if d.ID == ref || strings.EqualFold(d.Name, ref) {
				return d.Path, nil
			}
		}
	}

	return "", fmt.Errorf("%w: document %q in %s", domain.ErrNotFound, ref, s.dir)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// readFile reads path, refusing directories and files over maxFileSize.
func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("%s is %d bytes, over the %d byte limit", path, info.Size(), maxFileSize)
	}
	return os.ReadFile(path)
}
