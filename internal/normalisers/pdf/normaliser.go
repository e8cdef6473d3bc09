// Package pdf normalises PDF files with the poppler pdftotext tool.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the type handled by this normaliser.
const MIMEType = "application/pdf"

const toolName = "pdftotext"

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner CommandRunner
}

// New creates a PDF normaliser that shells out to pdftotext.
func New() *Normaliser {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// InstallInstructions describes how to install pdftotext.
func InstallInstructions() string {
	return `PDF support requires pdftotext from poppler:
  macOS:          brew install poppler
  Debian/Ubuntu:  sudo apt-get install poppler-utils
  Fedora:         sudo dnf install poppler-utils`
}

// Normalise writes the PDF to a temporary file and extracts its text in
// reading order. Pages are separated by a blank line.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	tool, err := n.runner.LookPath(toolName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w\n%s", domain.ErrUnreadableFile, ErrPDFToolNotFound, InstallInstructions())
	}

	if !bytes.HasPrefix(raw.Content, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: %s has no PDF header", domain.ErrUnreadableFile, filepath.Base(raw.URI))
	}

	tmp, err := os.CreateTemp("", "docqa-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %w", domain.ErrUnreadableFile, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: write temp file: %w", domain.ErrUnreadableFile, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: write temp file: %w", domain.ErrUnreadableFile, err)
	}

	out, err := n.runner.Run(ctx, tool, "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("%w: pdftotext failed: %w", domain.ErrUnreadableFile, err)
	}

	content, pages := joinPages(string(out))

	doc := domain.Document{
		Title:    extractTitle(content, raw),
		MIMEType: raw.MIMEType,
		Content:  content,
		Metadata: copyMetadata(raw.Metadata),
	}
	doc.Metadata["format"] = "pdf"
	doc.Metadata["pages"] = pages

	return &driven.NormaliseResult{Document: doc}, nil
}

// joinPages splits pdftotext output on form feeds and rejoins the
// non-empty pages.
func joinPages(out string) (string, int) {
	var pages []string
	for _, page := range strings.Split(out, "\f") {
		if page = strings.TrimSpace(page); page != "" {
			pages = append(pages, page)
		}
	}
	return strings.Join(pages, "\n\n"), len(pages)
}

// extractTitle prefers metadata["title"], then the first non-empty line,
// then the file name.
func extractTitle(content string, raw *domain.RawDocument) string {
	if title, ok := raw.Metadata["title"].(string); ok && title != "" {
		return title
	}

	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			const maxTitle = 100
			if r := []rune(line); len(r) > maxTitle {
				line = string(r[:maxTitle])
			}
			return line
		}
	}

	filename := filepath.Base(raw.URI)
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
