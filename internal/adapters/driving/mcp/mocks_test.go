package mcp

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var _ driving.QAService = (*mockQAService)(nil)

// mockQAService is a mock implementation of driving.QAService.
type mockQAService struct {
	answer     *domain.Answer
	manifest   *domain.IndexManifest
	documents  []domain.DocumentInfo
	err        error
	resolveErr error

	askedPath     string
	askedQuestion string
	askedK        int
	rebuild       bool
}

func (m *mockQAService) Ask(_ context.Context, path, question string, k int) (*domain.Answer, error) {
	m.askedPath, m.askedQuestion, m.askedK = path, question, k
	return m.answer, m.err
}

func (m *mockQAService) Index(_ context.Context, path string, rebuild bool) (*domain.IndexManifest, error) {
	m.askedPath, m.rebuild = path, rebuild
	return m.manifest, m.err
}

func (m *mockQAService) Documents(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.err
}

func (m *mockQAService) Resolve(_ context.Context, ref string) (string, error) {
	if m.resolveErr != nil {
		return "", m.resolveErr
	}
	return "/docs/" + ref, nil
}
